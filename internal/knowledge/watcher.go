package knowledge

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"finguard/internal/logging"
)

// Watcher re-indexes documents when files in the docs directory change.
// Rapid saves are debounced so an editor writing in bursts triggers one
// re-index per file.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	base        *Base
	dir         string
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewWatcher creates a watcher over the docs directory.
func NewWatcher(base *Base, dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fsw,
		base:        base,
		dir:         dir,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		logging.Knowledge("Watch failed for %s (dir may not exist): %v", w.dir, err)
	} else {
		logging.Knowledge("Watching docs directory: %s", w.dir)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to drain.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Knowledge("Error closing watcher: %v", err)
	}
	logging.Knowledge("Docs watcher stopped")
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Knowledge("Watcher error: %v", err)

		case <-ticker.C:
			w.processSettled(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !isDocFile(event.Name) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	logging.KnowledgeDebug("Docs event: %s %s", event.Op, event.Name)

	w.mu.Lock()
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

// processSettled re-indexes files whose last event is older than the
// debounce window.
func (w *Watcher) processSettled(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, ts := range w.debounceMap {
		if now.Sub(ts) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		// IngestFile removes deleted files from the index.
		if err := w.base.IngestFile(ctx, path); err != nil {
			if err := w.base.RemoveDocument(path); err != nil {
				logging.Knowledge("Failed to drop %s from index: %v", path, err)
			}
		}
	}
}
