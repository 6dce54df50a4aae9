package i18n

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Watcher reloads bundles from an override directory when its JSON files
// change, so translators can iterate without restarting the server.
type Watcher struct {
	store   *Store
	dir     string
	watcher *fsnotify.Watcher

	debounceDelay time.Duration
	pending       map[string]time.Time
	mutex         sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher loads every bundle found in dir into store and prepares to
// watch it.
func NewWatcher(store *Store, dir string) (*Watcher, error) {
	if err := store.LoadFS(os.DirFS(dir), "."); err != nil {
		log.Warn("Some translation overrides failed to load", "dir", dir, "error", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create translation watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		store:         store,
		dir:           dir,
		watcher:       watcher,
		debounceDelay: 200 * time.Millisecond,
		pending:       make(map[string]time.Time),
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}, nil
}

// Start begins processing filesystem events.
func (w *Watcher) Start() {
	go w.processEvents()
	log.Info("Watching translation overrides", "dir", w.dir)
}

// Stop ends watching and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.cancel()
	w.watcher.Close()
	<-w.done
}

func (w *Watcher) processEvents() {
	defer close(w.done)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".json") || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			w.mutex.Lock()
			w.pending[event.Name] = time.Now()
			w.mutex.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("Translation watcher error", "error", err)

		case <-ticker.C:
			w.reloadReady()
		}
	}
}

func (w *Watcher) reloadReady() {
	w.mutex.Lock()
	now := time.Now()
	var ready []string
	for name, at := range w.pending {
		if now.Sub(at) >= w.debounceDelay {
			ready = append(ready, name)
			delete(w.pending, name)
		}
	}
	w.mutex.Unlock()

	for _, name := range ready {
		code := strings.TrimSuffix(filepath.Base(name), ".json")
		data, err := os.ReadFile(name)
		if err != nil {
			log.Warn("Failed to read translation override", "file", name, "error", err)
			continue
		}
		if err := w.store.LoadBundle(code, data); err != nil {
			log.Warn("Failed to reload translation override", "file", name, "error", err)
			continue
		}
		log.Info("Reloaded translations", "locale", code)
	}
}
