package workspace

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher keeps the index in sync with spec files changed on disk outside
// the editor (git checkouts, generators). Events are debounced per path.
type Watcher struct {
	indexer func() *Indexer
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	roots   []string
	pending map[string]fsnotify.Op

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher. indexer is called for every event batch, so
// a configuration change takes effect without restarting the watcher.
func NewWatcher(indexer func() *Indexer) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		indexer: indexer,
		watcher: fsw,
		pending: make(map[string]fsnotify.Op),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start begins processing events. Call Add for each workspace root.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.run()
}

// Add watches root and every non-excluded directory below it.
func (w *Watcher) Add(root string) error {
	w.mu.Lock()
	w.roots = append(w.roots, root)
	w.mu.Unlock()

	return w.addTree(root, root)
}

func (w *Watcher) addTree(root, dir string) error {
	indexer := w.indexer()

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		if path != root {
			rel, _ := filepath.Rel(root, path)
			if indexer.excludedDir(filepath.ToSlash(rel)) {
				return filepath.SkipDir
			}
		}

		if err := w.watcher.Add(path); err != nil {
			log.Warningf("failed to watch %s: %v", path, err)
		}

		return nil
	})
}

// Stop stops the watcher and waits for its goroutines.
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()

	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.queue(event) {
				timer.Reset(w.indexer().cfg.WatchDebounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warningf("file watcher error: %v", err)

		case <-timer.C:
			w.flush()
		}
	}
}

// queue records an event and reports whether it is relevant.
func (w *Watcher) queue(event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			root := w.rootOf(event.Name)
			if root == "" {
				return false
			}
			_ = w.addTree(root, event.Name)

			// Files written before the watch was in place produce no events.
			return w.queueExisting(root, event.Name)
		}
	}

	root := w.rootOf(event.Name)
	if root == "" || !w.indexer().Matches(root, event.Name) {
		return false
	}

	w.mu.Lock()
	w.pending[event.Name] |= event.Op
	w.mu.Unlock()

	return true
}

func (w *Watcher) queueExisting(root, dir string) bool {
	queued := false
	indexer := w.indexer()

	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !indexer.Matches(root, path) {
			return nil
		}

		w.mu.Lock()
		w.pending[path] |= fsnotify.Create
		w.mu.Unlock()
		queued = true

		return nil
	})

	return queued
}

func (w *Watcher) rootOf(path string) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, root := range w.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return root
		}
	}

	return ""
}

// flush applies the pending events to the index.
func (w *Watcher) flush() {
	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.mu.Unlock()

	indexer := w.indexer()
	for path := range pending {
		_, err := indexer.IndexFile(w.ctx, path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			indexer.RemoveFile(path)
			log.Debugf("spec file removed: %s", path)
		case err != nil:
			log.Warningf("reindexing %s: %v", path, err)
		}
	}
}
