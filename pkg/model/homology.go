package model

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/yumyai/orpheus/logger"
	"go.uber.org/zap"
)

// Zero based positions of the outfmt6 columns that are reported.
const (
	colIdentity = 2
	colEvalue   = 10
	colBitScore = 11
)

func column(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return "-"
}

// ParseHomology reads a BLASTP/DIAMOND tabular (outfmt 6) result and keeps the
// first hit per gene grouping. The search tools already emit hits best first,
// so nothing is sorted here.
//
// A missing file yields an empty table and no error.
func ParseHomology(path string) (*HomologyTable, error) {
	logger.Info("Parsing homology results", zap.String("path", path))

	hits := NewHomologyTable()

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Homology results not found, homology evidence disabled", zap.String("path", path))
		return hits, nil
	}
	if err != nil {
		return hits, fmt.Errorf("homology %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineLength)

	rows := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		rows++

		gene := StripORFSuffix(fields[0])
		if hits.Has(gene) {
			continue
		}
		hits.Set(gene, HomologyHit{
			QueryID:         fields[0],
			SubjectID:       fields[1],
			PercentIdentity: column(fields, colIdentity),
			EValue:          column(fields, colEvalue),
			BitScore:        column(fields, colBitScore),
		})
	}
	if err := scanner.Err(); err != nil {
		logger.Error("Cannot read homology results", zap.String("path", path), zap.Error(err))
		return NewHomologyTable(), fmt.Errorf("homology %s: %w", path, err)
	}

	logger.Info("Parsed homology results", zap.Int("rows", rows), zap.Int("genes", hits.Len()))
	return hits, nil
}
