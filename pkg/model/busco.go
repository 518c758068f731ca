package model

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/yumyai/orpheus/internal/util"
	"github.com/yumyai/orpheus/logger"
	"go.uber.org/zap"
)

const OrthologTableName = "full_table.tsv"

// FindOrthologTable looks for a BUSCO full table under dir. The search runs
// recursively first (shallowest match wins, lexical order within a depth),
// then one directory level down, then dir itself.
func FindOrthologTable(dir string) (string, bool) {
	best, bestDepth := "", -1
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtree; keep walking the rest.
			if d != nil && d.IsDir() && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || d.Name() != OrthologTableName {
			return nil
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return nil
		}
		depth := strings.Count(rel, string(filepath.Separator))
		if bestDepth < 0 || depth < bestDepth {
			best, bestDepth = path, depth
		}
		return nil
	})
	if best != "" {
		return best, true
	}

	if matches, _ := filepath.Glob(filepath.Join(dir, "*", OrthologTableName)); len(matches) > 0 {
		return matches[0], true
	}

	root := filepath.Join(dir, OrthologTableName)
	if util.FileExists(root) {
		return root, true
	}
	return "", false
}

// ParseOrthologDir locates and parses the BUSCO full table under dir. A
// missing directory or table is not an error: the result is simply empty and
// scoring falls back to the no-ortholog weights.
func ParseOrthologDir(dir string) (*OrthologTable, error) {
	logger.Info("Parsing BUSCO results", zap.String("dir", dir))

	if !util.DirExists(dir) {
		logger.Warn("BUSCO directory not found, ortholog evidence disabled", zap.String("dir", dir))
		return NewOrthologTable(), nil
	}

	path, ok := FindOrthologTable(dir)
	if !ok {
		logger.Warn("No BUSCO full table found, ortholog evidence disabled", zap.String("dir", dir))
		return NewOrthologTable(), nil
	}

	logger.Info("Found BUSCO full table", zap.String("path", path))
	return ParseOrthologTable(path)
}

// ParseOrthologTable parses a BUSCO full table. Columns are
// {busco id, status, sequence, score, length}; only Complete, Duplicated and
// Fragmented rows with a sequence are kept. When a transcript appears more
// than once the last row wins.
func ParseOrthologTable(path string) (*OrthologTable, error) {
	table := NewOrthologTable()

	f, err := os.Open(path)
	if err != nil {
		logger.Warn("Cannot open BUSCO full table", zap.String("path", path), zap.Error(err))
		return table, fmt.Errorf("busco table %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineLength)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			continue
		}

		status := OrthologStatus(fields[1])
		sequence := fields[2]
		if !status.Matched() || sequence == "-" {
			continue
		}

		match := OrthologMatch{
			OrthologID: fields[0],
			Status:     status,
			SequenceID: sequence,
		}
		if len(fields) > 3 {
			match.RawScore, _ = strconv.ParseFloat(fields[3], 64)
		}
		if len(fields) > 4 {
			match.ReportedLength, _ = strconv.Atoi(fields[4])
		}

		table.Set(StripORFSuffix(sequence), match)
	}
	if err := scanner.Err(); err != nil {
		logger.Error("Cannot read BUSCO full table", zap.String("path", path), zap.Error(err))
		return NewOrthologTable(), fmt.Errorf("busco table %s: %w", path, err)
	}

	logger.Info("Parsed BUSCO full table", zap.Int("matched_transcripts", table.Len()))
	logStatusCounts(table)

	return table, nil
}

func logStatusCounts(table *OrthologTable) {
	counts := make(map[string]int)
	table.Each(func(_ string, m OrthologMatch) {
		counts[string(m.Status)]++
	})

	statuses := make([]string, 0, len(counts))
	for s := range counts {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)

	for _, s := range statuses {
		logger.Debug("BUSCO status", zap.String("status", s), zap.Int("count", counts[s]))
	}
}
