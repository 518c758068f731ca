package pipeline

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/yumyai/orpheus/internal/util"
	"github.com/yumyai/orpheus/logger"
	"go.uber.org/zap"
)

// Layout of a work directory produced by the upstream assembly steps.
const (
	TransDecoderResultsDir = "transdecoder_results"
	SequencesFileName      = "cdhit_result.fasta"
	HomologyFileName       = "blastp_results.outfmt6"

	gffSuffix         = ".transdecoder.gff3"
	transDecoderDir   = ".transdecoder_dir"
	longestORFsGFF    = "longest_orfs.gff3"
	buscoAfterDirName = "busco_after"
	buscoBeforeDir    = "busco_before"
)

// Artifacts are the input files of one scoring run.
type Artifacts struct {
	GFF3        string
	Sequences   string
	OrthologDir string
	Homology    string
}

// Discover fills the empty fields of explicit from the conventional layout
// under workDir. Paths set in explicit are always kept. Fields that cannot
// be resolved stay empty, except Sequences which defaults to the
// conventional path so a later failure can name it.
func Discover(workDir string, explicit Artifacts) Artifacts {
	a := explicit

	if a.GFF3 == "" {
		a.GFF3 = findGFF3(workDir)
	}
	if a.Sequences == "" {
		a.Sequences = filepath.Join(workDir, SequencesFileName)
	}
	if a.OrthologDir == "" {
		for _, name := range []string{buscoAfterDirName, buscoBeforeDir} {
			if dir := filepath.Join(workDir, name); util.DirExists(dir) {
				a.OrthologDir = dir
				break
			}
		}
	}
	if a.Homology == "" && a.GFF3 != "" {
		a.Homology = homologyBeside(a.GFF3)
	}

	logger.Info("Resolved inputs",
		zap.String("work_dir", workDir),
		zap.String("gff3", a.GFF3),
		zap.String("sequences", a.Sequences),
		zap.String("busco_dir", a.OrthologDir),
		zap.String("homology", a.Homology),
	)
	return a
}

func firstGlob(pattern string) string {
	matches, _ := filepath.Glob(pattern)
	if len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[0]
}

func findGFF3(workDir string) string {
	tdDir := filepath.Join(workDir, TransDecoderResultsDir)
	if gff := firstGlob(filepath.Join(tdDir, "*"+gffSuffix)); gff != "" {
		return gff
	}
	if gff := firstGlob(filepath.Join(tdDir, "*"+transDecoderDir, longestORFsGFF)); gff != "" {
		logger.Warn("Using intermediate LongOrfs GFF3, run TransDecoder.Predict for final predictions",
			zap.String("path", gff))
		return gff
	}
	return ""
}

// homologyBeside locates the search results TransDecoder keeps next to its
// GFF3: "<base>.transdecoder_dir/blastp_results.outfmt6".
func homologyBeside(gff string) string {
	var dir string
	switch name := filepath.Base(gff); {
	case strings.HasSuffix(name, gffSuffix):
		dir = filepath.Join(filepath.Dir(gff), strings.TrimSuffix(name, gffSuffix)+transDecoderDir)
	case name == longestORFsGFF:
		dir = filepath.Dir(gff)
	default:
		return ""
	}

	path := filepath.Join(dir, HomologyFileName)
	if !util.FileExists(path) {
		logger.Debug("No homology results beside GFF3", zap.String("path", path))
		return ""
	}
	return path
}
