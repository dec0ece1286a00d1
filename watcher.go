package cssync

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher keeps the index honest when stylesheets are edited outside the
// agent (an editor save, a git checkout). Without it, stale entries survive
// until the next full rescan; with it, a touched file is re-parsed and a
// deleted file is dropped as soon as the OS reports the change.
type Watcher struct {
	svc    *Service
	fw     *fsnotify.Watcher
	logger *slog.Logger
}

// NewWatcher wraps an fsnotify watcher around the service's index.
func NewWatcher(svc *Service, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{svc: svc, fw: fw, logger: logger}, nil
}

// Watch registers root and every non-denied subdirectory.
func (w *Watcher) Watch(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	return filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if rel, relErr := filepath.Rel(abs, path); relErr == nil && shouldSkipPath(rel) {
			return filepath.SkipDir
		}
		if addErr := w.fw.Add(path); addErr != nil {
			w.logger.Warn("watch add failed", "path", path, "error", addErr)
		}
		return nil
	})
}

// Run consumes filesystem events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// Close releases the underlying OS watches.
func (w *Watcher) Close() error {
	return w.fw.Close()
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op.Has(fsnotify.Create) {
		// New directories must be watched too; fsnotify is not recursive.
		if !strings.Contains(filepath.Base(ev.Name), ".") {
			_ = w.fw.Add(ev.Name)
		}
	}
	if !strings.HasSuffix(ev.Name, ".css") {
		return
	}

	switch {
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		w.svc.RemoveFile(ev.Name)
		w.logger.Debug("dropped from index", "path", ev.Name)
	case ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create):
		if err := w.svc.InvalidateFile(ev.Name); err != nil {
			w.logger.Warn("re-index failed", "path", ev.Name, "error", err)
			return
		}
		w.logger.Debug("re-indexed", "path", ev.Name)
	}
}
