// Package watcher triggers re-indexing when workspace files change.
// Events are debounced so a burst of writes during active editing
// produces one rescan, not one per keystroke.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period required before the handler runs.
const DefaultDebounce = 500 * time.Millisecond

// Handler is invoked once per debounced batch of changes.
type Handler func(ctx context.Context)

// Watcher watches a workspace tree and invokes a handler after changes
// settle.
type Watcher struct {
	root     string
	fw       *fsnotify.Watcher
	debounce time.Duration
	handler  Handler
	exts     map[string]bool
	logger   *slog.Logger
}

// New creates a watcher over the workspace root. Only files whose
// extension appears in exts trigger the handler; hidden directories,
// node_modules, and vendor are never watched.
func New(root string, exts []string, debounce time.Duration, handler Handler, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	extSet := make(map[string]bool, len(exts))
	for _, ext := range exts {
		extSet[ext] = true
	}

	w := &Watcher{
		root:     root,
		fw:       fw,
		debounce: debounce,
		handler:  handler,
		exts:     extSet,
		logger:   logger,
	}

	if err := w.addRecursive(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// addRecursive registers root and every non-ignored subdirectory.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor") {
			return filepath.SkipDir
		}
		return w.fw.Add(path)
	})
}

// Run processes events until the context is cancelled. Newly created
// directories are added to the watch set; relevant file events arm the
// debounce timer, and the handler fires when it expires.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fw.Close()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if event.Op.Has(fsnotify.Create) {
				// A new directory needs its own watch.
				if err := w.addRecursive(event.Name); err != nil {
					w.logger.Debug("could not watch new path", "path", event.Name, "error", err)
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-fire:
			timer = nil
			fire = nil
			w.logger.Info("workspace changed, re-indexing")
			w.handler(ctx)
		}
	}
}

// relevant filters events down to supported source files and directory
// creation.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := filepath.Ext(event.Name)
	if ext == "" {
		// Likely a directory; creations matter for the watch set.
		return event.Op.Has(fsnotify.Create)
	}
	return w.exts[ext]
}
