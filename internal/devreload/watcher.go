// Package devreload watches a built frontend directory and triggers a
// reload once changes settle.
package devreload

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vk/deskshell/internal/ctxlog"
)

// DefaultDebounce is how long the directory must stay quiet before a reload.
const DefaultDebounce = 200 * time.Millisecond

// ReloadFunc is called after a burst of changes.
type ReloadFunc func(ctx context.Context)

// Watcher reloads on changes below a directory tree.
type Watcher struct {
	dir      string
	debounce time.Duration
	reload   ReloadFunc
	watcher  *fsnotify.Watcher

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a watcher for dir and every directory below it.
func New(dir string, debounce time.Duration, reload ReloadFunc) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	w := &Watcher{
		dir:      dir,
		debounce: debounce,
		reload:   reload,
		watcher:  fw,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	if err := w.addTree(dir); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Start processes events in the background until ctx is done or Stop.
func (w *Watcher) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop ends the watcher and waits for its goroutine. Only valid after Start.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		<-w.doneCh
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	logger := ctxlog.FromContext(ctx).With("component", "devreload", "dir", w.dir)
	logger.Debug("Frontend watcher started.")

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Frontend watcher stopped by context.")
			return
		case <-w.stopCh:
			logger.Debug("Frontend watcher stopped.")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				// New directories need their own watch.
				if err := w.addTree(event.Name); err != nil {
					logger.Debug("Could not watch new path.", "path", event.Name, "error", err)
				}
			}
			logger.Debug("Frontend change detected.", "path", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)
			pending = true

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Frontend watcher error.", "error", err)

		case <-timer.C:
			if pending {
				pending = false
				logger.Info("Frontend changed, reloading windows.")
				w.reload(ctx)
			}
		}
	}
}
