package db

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yumyai/orpheus/internal/util"
	"github.com/yumyai/orpheus/logger"
	"go.uber.org/zap"
)

var ErrSequenceNotExists = errors.New("sequence file does not exist")

// SequenceDB is the deduplicated transcript FASTA the selection is cut from.
type SequenceDB struct {
	Path string
}

func NewSequenceDB(path string) (*SequenceDB, error) {
	if !util.FileExists(path) {
		return nil, fmt.Errorf("%w: %s", ErrSequenceNotExists, path)
	}
	return &SequenceDB{Path: path}, nil
}

// headerID returns the first whitespace delimited token after '>'.
func headerID(line string) string {
	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// ExportSelected copies every record whose header id is in selected to dest,
// byte for byte and in source order. It returns the ids it wrote, in source
// order; selected ids without a record are left out. dest is replaced
// atomically; on error it is left untouched.
func (seqdb *SequenceDB) ExportSelected(dest string, selected []string) ([]string, error) {
	keep := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		keep[id] = struct{}{}
	}

	src, err := os.Open(seqdb.Path)
	if err != nil {
		return nil, fmt.Errorf("open sequences: %w", err)
	}
	defer src.Close()

	var written []string
	err = util.WriteFileAtomic(dest, 0o644, func(w io.Writer) error {
		var err error
		written, err = copyRecords(w, src, keep)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("export sequences to %s: %w", dest, err)
	}

	if missing := len(keep) - len(written); missing > 0 {
		logger.Warn("Selected transcripts missing from sequence file",
			zap.String("path", seqdb.Path),
			zap.Int("missing", missing),
		)
	}
	logger.Info("Exported sequences", zap.String("path", dest), zap.Int("records", len(written)))
	return written, nil
}

// copyRecords streams the kept records from r to w. A header id repeated in
// the source is copied every time but reported once.
func copyRecords(w io.Writer, r io.Reader, keep map[string]struct{}) ([]string, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	copying := false
	seen := make(map[string]struct{}, len(keep))
	var ids []string
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			if line[0] == '>' {
				id := headerID(line)
				_, copying = keep[id]
				if _, dup := seen[id]; copying && !dup {
					seen[id] = struct{}{}
					ids = append(ids, id)
				}
			}
			if copying {
				if _, werr := io.WriteString(w, line); werr != nil {
					return ids, werr
				}
			}
		}
		if err == io.EOF {
			return ids, nil
		}
		if err != nil {
			return ids, err
		}
	}
}
