package model

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/yumyai/orpheus/logger"
	"go.uber.org/zap"
)

const (
	gffColumns    = 9
	maxLineLength = 4 * 1024 * 1024
)

// Checked in order against the mRNA Name attribute, which TransDecoder writes
// either plainly ("type:complete") or percent-encoded ("type%3Acomplete").
var completenessTokens = []struct {
	token string
	class Completeness
}{
	{"complete", CompletenessComplete},
	{"internal", CompletenessInternal},
	{"5prime_partial", CompletenessFivePrimePartial},
	{"3prime_partial", CompletenessThreePrimePartial},
}

type gffRow struct {
	seqID       string
	featureType string
	start       string
	end         string
	score       string
	strand      string
	attrs       map[string]string
}

// splitGFFRow returns false for comments, blank lines and rows with fewer
// than nine tab separated columns.
func splitGFFRow(line string) (gffRow, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return gffRow{}, false
	}
	fields := strings.Split(line, "\t")
	if len(fields) < gffColumns {
		return gffRow{}, false
	}
	return gffRow{
		seqID:       fields[0],
		featureType: fields[2],
		start:       fields[3],
		end:         fields[4],
		score:       fields[5],
		strand:      fields[6],
		attrs:       parseAttributes(fields[8]),
	}, true
}

func parseAttributes(col string) map[string]string {
	attrs := make(map[string]string)
	for _, kv := range strings.Split(col, ";") {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		attrs[strings.TrimSpace(key)] = value
	}
	return attrs
}

func classifyName(name string) Completeness {
	for _, t := range completenessTokens {
		if strings.Contains(name, "type:"+t.token) || strings.Contains(name, "type%3A"+t.token) {
			return t.class
		}
	}
	return CompletenessUnknown
}

// scanGFF calls fn for every well formed row of the file.
func scanGFF(path string, fn func(lineNo int, row gffRow)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineLength)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		row, ok := splitGFFRow(scanner.Text())
		if !ok {
			continue
		}
		fn(lineNo, row)
	}
	return scanner.Err()
}

// ParseGFF3 reads a TransDecoder GFF3 file and keeps, per transcript, the
// single CDS segment with the greatest amino acid length. Segments sharing a
// parent are not summed.
//
// A missing file yields an empty table together with the open error.
func ParseGFF3(path string) (*ORFTable, error) {
	logger.Info("Parsing GFF3", zap.String("path", path))

	orfs := NewORFTable()

	// Pass 1: mRNA id -> completeness class.
	mrna := make(map[string]Completeness)
	err := scanGFF(path, func(_ int, row gffRow) {
		if row.featureType != "mRNA" {
			return
		}
		id := row.attrs["ID"]
		if id == "" {
			return
		}
		mrna[id] = classifyName(row.attrs["Name"])
	})
	if err != nil {
		logger.Error("Cannot read GFF3", zap.String("path", path), zap.Error(err))
		return orfs, fmt.Errorf("gff3 %s: %w", path, err)
	}

	// Pass 2: CDS rows, longest segment per transcript.
	skipped := 0
	err = scanGFF(path, func(lineNo int, row gffRow) {
		if row.featureType != "CDS" {
			return
		}
		rec, rowErr := cdsRecord(row)
		if rowErr != "" {
			skipped++
			logger.Debug("Skipping CDS row", zap.Error(&RowError{File: path, Line: lineNo, Msg: rowErr}))
			return
		}
		if c, ok := mrna[rec.ParentID]; ok {
			rec.Completeness = c
		}
		if prev, ok := orfs.Get(rec.TranscriptID); !ok || rec.Length > prev.Length {
			orfs.Set(rec.TranscriptID, rec)
		}
	})
	if err != nil {
		logger.Error("Cannot read GFF3", zap.String("path", path), zap.Error(err))
		return orfs, fmt.Errorf("gff3 %s: %w", path, err)
	}

	logger.Info("Parsed GFF3",
		zap.Int("mrna", len(mrna)),
		zap.Int("transcripts", orfs.Len()),
		zap.Int("skipped_cds", skipped),
	)
	logCompleteness(orfs)

	return orfs, nil
}

// cdsRecord builds a record from a CDS row, or returns why it was rejected.
func cdsRecord(row gffRow) (*ORFRecord, string) {
	parent := row.attrs["Parent"]
	if parent == "" {
		return nil, "CDS without Parent"
	}
	start, err := strconv.Atoi(row.start)
	if err != nil {
		return nil, "bad start " + strconv.Quote(row.start)
	}
	end, err := strconv.Atoi(row.end)
	if err != nil {
		return nil, "bad end " + strconv.Quote(row.end)
	}
	if end < start {
		return nil, fmt.Sprintf("end %d before start %d", end, start)
	}

	score := 0.0
	if row.score != "." {
		if v, err := strconv.ParseFloat(row.score, 64); err == nil {
			score = v
		}
	}

	return &ORFRecord{
		TranscriptID: row.seqID,
		ParentID:     parent,
		Completeness: CompletenessUnknown,
		Length:       (end - start + 1) / 3,
		RawScore:     score,
		Start:        start,
		End:          end,
		Strand:       row.strand,
	}, ""
}

func logCompleteness(orfs *ORFTable) {
	counts := make(map[Completeness]int)
	orfs.Each(func(_ string, o *ORFRecord) {
		counts[o.Completeness]++
	})
	fields := make([]zap.Field, 0, 5)
	for _, c := range []Completeness{
		CompletenessComplete,
		CompletenessFivePrimePartial,
		CompletenessThreePrimePartial,
		CompletenessInternal,
		CompletenessUnknown,
	} {
		fields = append(fields, zap.Int(c.String(), counts[c]))
	}
	logger.Info("ORF type distribution", fields...)
}
