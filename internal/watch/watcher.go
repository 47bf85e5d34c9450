// Package watch implements the optional input-directory watcher,
// ported from pkg/index/watcher.go (teacher): fsnotify.Watcher plus a
// debounce-by-polling goroutine, generalized from "reindex this one Go
// file" to "re-run the whole pipeline once the input tree has gone
// quiet" (the driver loop has no notion of incremental per-file work,
// so unlike the teacher there is exactly one debounced trigger, not a
// pending-file map processed file-by-file).
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/foundryrun/harvest/internal/logger"
)

var skipDirs = []string{"vendor", ".git", "node_modules", ".harvest"}

// Watcher monitors Root for filesystem changes and invokes OnChange
// once changes have settled for DebounceMs.
type Watcher struct {
	Root       string
	DebounceMs int
	OnChange   func()

	fsWatcher *fsnotify.Watcher

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}

	pendingMu sync.Mutex
	pending   bool
	lastEvent time.Time
}

// New creates a Watcher rooted at root, invoking onChange (from a
// background goroutine) after debounceMs of filesystem quiet.
func New(root string, debounceMs int, onChange func()) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}
	if debounceMs <= 0 {
		debounceMs = 300
	}
	return &Watcher{
		Root:       root,
		DebounceMs: debounceMs,
		OnChange:   onChange,
		fsWatcher:  fsWatcher,
		stopCh:     make(chan struct{}),
	}, nil
}

// Start begins watching. It is safe to call once; a second call is a
// no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.addDirectories(); err != nil {
		return fmt.Errorf("watch: add directories: %w", err)
	}

	go w.processEvents()
	go w.processDebounced()

	return nil
}

// Stop stops the watcher and releases its OS resources.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return nil
	}
	w.running = false
	close(w.stopCh)
	return w.fsWatcher.Close()
}

func (w *Watcher) addDirectories() error {
	return filepath.Walk(w.Root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(w.Root, path)
		if shouldSkipDir(rel) {
			return filepath.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil {
			logger.GetLogger().Warn().Str("dir", path).Err(err).Msg("cannot watch directory")
		}
		return nil
	})
}

func shouldSkipDir(relPath string) bool {
	for _, dir := range skipDirs {
		if relPath == dir || strings.HasPrefix(relPath, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.pendingMu.Lock()
			w.pending = true
			w.lastEvent = time.Now()
			w.pendingMu.Unlock()
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			logger.GetLogger().Warn().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) processDebounced() {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.maybeFire()
		}
	}
}

func (w *Watcher) maybeFire() {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if !w.pending {
		return
	}
	if time.Since(w.lastEvent) < time.Duration(w.DebounceMs)*time.Millisecond {
		return
	}
	w.pending = false
	if w.OnChange != nil {
		go w.OnChange()
	}
}
