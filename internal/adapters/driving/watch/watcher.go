// Package watch re-indexes corpus files as they change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driving"
	"github.com/custodia-labs/nephra/internal/logger"
)

// DefaultDebounce is how long a file must stay quiet before it is synced.
const DefaultDebounce = 500 * time.Millisecond

// Config configures a Watcher.
type Config struct {
	// Dir is the corpus root.
	Dir string

	// Supports reports whether a file name has a registered normaliser.
	Supports func(name string) bool

	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
}

type action int

const (
	actionNone action = iota
	actionSync
	actionRemoved
	actionWatchDir
)

// Watcher triggers a single-file sync for each created or written file.
type Watcher struct {
	dir      string
	supports func(string) bool
	debounce time.Duration
	sync     driving.SyncOrchestrator

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
	wg      sync.WaitGroup
}

// New creates a watcher over cfg.Dir.
func New(cfg Config, syncOrch driving.SyncOrchestrator) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, errors.New("watch: corpus directory is required")
	}
	if syncOrch == nil {
		return nil, errors.New("watch: sync orchestrator is required")
	}
	abs, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve %s: %w", cfg.Dir, err)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Supports == nil {
		cfg.Supports = func(string) bool { return true }
	}
	return &Watcher{
		dir:      abs,
		supports: cfg.Supports,
		debounce: cfg.Debounce,
		sync:     syncOrch,
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Run watches until ctx is cancelled. Pending syncs are dropped on return.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("watch: create %s: %w", w.dir, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.dir); err != nil {
		return err
	}
	logger.Info("Watching %s for changes", w.dir)

	defer w.stopPending()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.dispatch(ctx, fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) dispatch(ctx context.Context, fsw *fsnotify.Watcher, ev fsnotify.Event) {
	act, name := w.handleEvent(ev)
	switch act {
	case actionSync:
		w.schedule(ctx, name)
	case actionRemoved:
		logger.Info("%s removed from the corpus; its indexed chunks remain until the index is reset", name)
	case actionWatchDir:
		if err := w.addTree(fsw, ev.Name); err != nil {
			logger.Warn("%v", err)
		}
	}
}

// handleEvent classifies an fsnotify event and returns the corpus-relative name.
func (w *Watcher) handleEvent(ev fsnotify.Event) (action, string) {
	rel, err := filepath.Rel(w.dir, ev.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return actionNone, ""
	}
	name := filepath.ToSlash(rel)
	if hidden(name) {
		return actionNone, ""
	}

	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		if !w.supports(name) {
			return actionNone, ""
		}
		return actionRemoved, name
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return actionNone, ""
	}

	info, err := os.Stat(ev.Name)
	if err != nil {
		return actionNone, ""
	}
	if info.IsDir() {
		if ev.Has(fsnotify.Create) {
			return actionWatchDir, name
		}
		return actionNone, ""
	}
	if !w.supports(name) {
		return actionNone, ""
	}
	return actionSync, name
}

// schedule (re)starts the debounce timer for name.
func (w *Watcher) schedule(ctx context.Context, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	if t, ok := w.pending[name]; ok {
		t.Stop()
	}
	w.pending[name] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return
		}
		delete(w.pending, name)
		w.wg.Add(1)
		w.mu.Unlock()
		defer w.wg.Done()

		w.syncFile(ctx, name)
	})
}

func (w *Watcher) syncFile(ctx context.Context, name string) {
	if ctx.Err() != nil {
		return
	}
	result, err := w.sync.Sync(ctx, domain.SyncRequest{File: name, Interactive: true}, nil)
	switch {
	case errors.Is(err, domain.ErrSyncInProgress):
		logger.Debug("Sync busy, retrying %s", name)
		w.schedule(ctx, name)
	case err != nil:
		logger.Warn("Sync of %s failed: %v", name, err)
	case len(result.Skipped) > 0:
		logger.Warn("Skipped %s: %s", name, result.Skipped[0].Reason)
	default:
		logger.Info("Indexed %s (%d chunks)", name, result.TotalChunks)
	}
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	w.closed = true
	for name, t := range w.pending {
		t.Stop()
		delete(w.pending, name)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

// addTree watches root and every non-hidden directory below it.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("watch: walk %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add %s: %w", path, err)
		}
		return nil
	})
}

func hidden(name string) bool {
	for _, part := range strings.Split(name, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
