package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yumyai/orpheus/logger"
	"github.com/yumyai/orpheus/pkg/db"
	"github.com/yumyai/orpheus/pkg/middle"
	"github.com/yumyai/orpheus/pkg/model"
	"github.com/yumyai/orpheus/pkg/render"
	"go.uber.org/zap"
)

const SequencesOutputFileName = "high_confidence_transcripts.fasta"

var (
	ErrNoORFs         = errors.New("no ORF predictions")
	ErrEmptySelection = errors.New("no transcript passed the score threshold")
	ErrSequenceFile   = errors.New("sequence file unavailable")
)

// Request is one scoring run. Empty OrthologDir or HomologyPath disable that
// line of evidence.
type Request struct {
	GFF3Path     string
	SequencePath string
	OrthologDir  string
	HomologyPath string
	OutputDir    string
	Threshold    float64
	TopN         int
	Weights      *model.WeightSet // nil selects the default weights
	ExportSQLite bool
}

type Outputs struct {
	Sequences  string
	ScoreTable string
	Report     string
	ResultsDB  string
}

// Outcome summarizes a finished run.
type Outcome struct {
	RunID             string
	ORFs              int
	OrthologMatches   int
	HomologyGroups    int
	Scored            int
	Selected          int
	ExportedSequences int
	Genes             int
	Weights           model.WeightSet
	Outputs           Outputs
}

type evidence struct {
	orfs      *model.ORFTable
	orthologs *model.OrthologTable
	homology  *model.HomologyTable
}

// Run parses the evidence, scores and selects transcripts, and writes the
// exports. Missing ortholog or homology evidence only degrades the score;
// missing ORF predictions, a missing sequence file, an empty selection and
// any write failure end the run with an error. Nothing is written unless the
// selection is non-empty.
func Run(ctx context.Context, req Request) (*Outcome, error) {
	ctx, log, runID := middle.WithRunID(ctx, logger.With())
	started := time.Now()
	out := &Outcome{RunID: runID}

	log.Info("Starting scoring run",
		zap.String("gff3", req.GFF3Path),
		zap.String("sequences", req.SequencePath),
		zap.String("busco_dir", req.OrthologDir),
		zap.String("homology", req.HomologyPath),
		zap.String("output_dir", req.OutputDir),
		zap.Float64("threshold", req.Threshold),
		zap.Int("top_n", req.TopN),
	)

	var seqdb *db.SequenceDB
	err := middle.RunStage(ctx, log, "sequences", func(ctx context.Context) error {
		var err error
		seqdb, err = db.NewSequenceDB(req.SequencePath)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrSequenceFile, err)
		}
		return nil
	})
	if err != nil {
		return out, err
	}

	var ev evidence
	err = middle.RunStage(ctx, log, "parse", func(ctx context.Context) error {
		var err error
		ev, err = parseEvidence(log, req)
		return err
	})
	if err != nil {
		return out, err
	}
	out.ORFs = ev.orfs.Len()
	out.OrthologMatches = ev.orthologs.Len()
	out.HomologyGroups = ev.homology.Len()

	var scores *model.ScoreTable
	err = middle.RunStage(ctx, log, "score", func(ctx context.Context) error {
		scores, out.Weights = model.Score(ev.orfs, ev.orthologs, ev.homology, req.Weights)
		return nil
	})
	if err != nil {
		return out, err
	}
	out.Scored = scores.Len()

	var selected []string
	err = middle.RunStage(ctx, log, "select", func(ctx context.Context) error {
		selected = model.Select(scores, req.Threshold, req.TopN)
		if len(selected) == 0 {
			return ErrEmptySelection
		}
		return nil
	})
	if err != nil {
		return out, err
	}
	out.Selected = len(selected)

	err = middle.RunStage(ctx, log, "export", func(ctx context.Context) error {
		return export(ctx, req, seqdb, ev, scores, selected, started, out)
	})
	if err != nil {
		return out, err
	}

	log.Info("Scoring run finished",
		zap.Int("orfs", out.ORFs),
		zap.Int("scored", out.Scored),
		zap.Int("selected", out.Selected),
		zap.Int("exported_sequences", out.ExportedSequences),
		zap.Int("genes", out.Genes),
		zap.Duration("elapsed", time.Since(started)),
	)
	return out, nil
}

func parseEvidence(log *zap.Logger, req Request) (evidence, error) {
	ev := evidence{
		orthologs: model.NewOrthologTable(),
		homology:  model.NewHomologyTable(),
	}

	if req.GFF3Path == "" {
		return ev, fmt.Errorf("%w: no GFF3 file", ErrNoORFs)
	}
	orfs, err := model.ParseGFF3(req.GFF3Path)
	if err != nil {
		return ev, fmt.Errorf("%w: %w", ErrNoORFs, err)
	}
	if orfs.Len() == 0 {
		return ev, fmt.Errorf("%w: %s has no usable CDS rows", ErrNoORFs, req.GFF3Path)
	}
	ev.orfs = orfs

	if req.OrthologDir != "" {
		orthologs, err := model.ParseOrthologDir(req.OrthologDir)
		if err != nil {
			log.Warn("Ignoring ortholog evidence", zap.Error(err))
		} else {
			ev.orthologs = orthologs
		}
	} else {
		log.Warn("No BUSCO directory, ortholog evidence disabled")
	}

	if req.HomologyPath != "" {
		homology, err := model.ParseHomology(req.HomologyPath)
		if err != nil {
			log.Warn("Ignoring homology evidence", zap.Error(err))
		} else {
			ev.homology = homology
		}
	} else {
		log.Info("No homology results, homology evidence disabled")
	}

	return ev, nil
}

func export(ctx context.Context, req Request, seqdb *db.SequenceDB, ev evidence, scores *model.ScoreTable,
	selected []string, started time.Time, out *Outcome) error {

	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	outputs := Outputs{
		Sequences:  filepath.Join(req.OutputDir, SequencesOutputFileName),
		ScoreTable: filepath.Join(req.OutputDir, render.ScoreTableFileName),
		Report:     filepath.Join(req.OutputDir, render.IntegratedReportFileName),
	}

	written, err := seqdb.ExportSelected(outputs.Sequences, selected)
	if err != nil {
		return err
	}
	out.ExportedSequences = len(written)

	// The tables only list transcripts that made it into the FASTA export.
	exported := keepExported(selected, written)
	if len(exported) == 0 {
		_ = os.Remove(outputs.Sequences)
		return fmt.Errorf("%w: no selected transcript is in %s", ErrEmptySelection, seqdb.Path)
	}
	if dropped := len(selected) - len(exported); dropped > 0 {
		middle.Logger(ctx, logger.With()).Warn("Dropping selected transcripts without sequences from the reports",
			zap.Int("dropped", dropped))
	}

	scoreRows := model.BuildScoreRows(exported, scores, ev.orfs, ev.orthologs, ev.homology)
	if err := render.WriteScoreTable(outputs.ScoreTable, scoreRows); err != nil {
		return err
	}

	geneRows := model.BuildGeneReport(exported, scores, ev.orfs, ev.orthologs, ev.homology)
	if err := render.WriteIntegratedReport(outputs.Report, geneRows); err != nil {
		return err
	}
	out.Genes = len(geneRows)

	if req.ExportSQLite {
		outputs.ResultsDB = filepath.Join(req.OutputDir, db.ResultsFileName)
		err := db.WriteResults(ctx, outputs.ResultsDB, db.Results{
			Run: db.Run{
				ID:        out.RunID,
				StartedAt: started,
				Threshold: req.Threshold,
				TopN:      req.TopN,
				Weights:   out.Weights,
				Scored:    out.Scored,
				Selected:  out.Selected,
			},
			Scores: scoreRows,
			Genes:  geneRows,
		})
		if err != nil {
			return err
		}
	}

	out.Outputs = outputs
	return nil
}

// keepExported returns the ids of selected that are also in written, in
// selection order.
func keepExported(selected, written []string) []string {
	in := make(map[string]struct{}, len(written))
	for _, id := range written {
		in[id] = struct{}{}
	}
	kept := make([]string, 0, len(written))
	for _, id := range selected {
		if _, ok := in[id]; ok {
			kept = append(kept, id)
		}
	}
	return kept
}
