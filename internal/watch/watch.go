// Package watch re-runs a callback when files below a set of directories
// change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event before a batch
// is delivered.
const DefaultDebounce = 500 * time.Millisecond

var ErrNoDirs = errors.New("no directories to watch")

// Handler receives the changed paths of one batch, sorted and deduplicated.
// It runs on the watcher goroutine; events arriving meanwhile are batched
// for the next call.
type Handler func(ctx context.Context, paths []string)

// Watcher watches directories recursively.
type Watcher struct {
	Dirs     []string
	Debounce time.Duration
	// Ignore reports whether a path should not trigger a batch.
	Ignore func(path string) bool
	Logger *slog.Logger
}

// Run blocks until ctx is done, calling h for every debounced batch of
// changes. It returns nil when ctx ends.
func (w *Watcher) Run(ctx context.Context, h Handler) error {
	if len(w.Dirs) == 0 {
		return ErrNoDirs
	}
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	for _, dir := range w.Dirs {
		if err := addRecursive(fw, dir); err != nil {
			return err
		}
		logger.Debug("watching", "dir", dir)
	}

	pending := make(map[string]bool)
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addRecursive(fw, ev.Name); err != nil {
						logger.Warn("watching new directory", "dir", ev.Name, "err", err)
					}
				}
			}
			if hidden(ev.Name) || (w.Ignore != nil && w.Ignore(ev.Name)) {
				continue
			}
			pending[ev.Name] = true
			timer.Reset(debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "err", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}
			sort.Strings(batch)
			clear(pending)
			h(ctx, batch)
		}
	}
}

func addRecursive(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w", p, err)
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fw.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}

// IgnoreSiblings returns an Ignore func matching p itself and the files
// named p plus a dot suffix, such as p+".tmp" and p+".lock".
func IgnoreSiblings(p string) func(string) bool {
	p = filepath.Clean(p)
	return func(name string) bool {
		name = filepath.Clean(name)
		return name == p || strings.HasPrefix(name, p+".")
	}
}

// hidden matches editor swap files and the sync engine's own temp files.
func hidden(p string) bool {
	base := filepath.Base(p)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~")
}
