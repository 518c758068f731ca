package watch

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/yumyai/orpheus/internal/util"
	"github.com/yumyai/orpheus/logger"
	"go.uber.org/zap"
)

// DefaultExtensions are the upstream artifacts a scoring run reads.
var DefaultExtensions = []string{".gff3", ".tsv", ".outfmt6", ".fasta"}

// Watcher re-runs a callback when scoring inputs under a directory tree
// change. Bursts of events are coalesced into one call.
type Watcher struct {
	watcher    *fsnotify.Watcher
	extensions []string
	ignore     []string
	debounce   time.Duration
}

// New creates a watcher. Events for any path equal to or below one of ignore
// are dropped, as are dotfiles.
func New(extensions []string, debounce time.Duration, ignore ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	cleaned := make([]string, 0, len(ignore))
	for _, p := range ignore {
		if abs, err := filepath.Abs(p); err == nil {
			cleaned = append(cleaned, abs)
		}
	}

	return &Watcher{
		watcher:    w,
		extensions: extensions,
		ignore:     cleaned,
		debounce:   debounce,
	}, nil
}

// Add watches dir and every directory below it that is not ignored.
func (w *Watcher) Add(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && (w.isIgnored(path) || strings.HasPrefix(d.Name(), ".")) {
			return fs.SkipDir
		}
		logger.Debug("Watching directory", zap.String("dir", path))
		return w.watcher.Add(path)
	})
}

// Run delivers debounced changes to onChange until ctx is done. onChange runs
// on the calling goroutine, so calls never overlap; changes arriving while it
// runs are delivered in the next call.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, paths []string)) error {
	pending := make(map[string]struct{})
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.isIgnored(event.Name) || strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}
			if event.Has(fsnotify.Create) {
				if util.DirExists(event.Name) {
					if err := w.Add(event.Name); err != nil {
						logger.Warn("Cannot watch new directory", zap.String("dir", event.Name), zap.Error(err))
					}
					continue
				}
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.isWatchedExtension(event.Name) {
				continue
			}
			pending[event.Name] = struct{}{}
			fire = time.After(w.debounce)

		case <-fire:
			fire = nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)

			logger.Info("Inputs changed", zap.Strings("paths", paths))
			onChange(ctx, paths)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) isWatchedExtension(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func (w *Watcher) isIgnored(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, p := range w.ignore {
		if abs == p || strings.HasPrefix(abs, p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
