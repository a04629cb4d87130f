package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"pyuml/internal/crawler"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher re-runs a callback whenever a Python file under root
// changes. Events are debounced so a burst of editor writes triggers
// one rebuild, not one per write.
type Watcher struct {
	root     string
	onChange func() error
	debounce time.Duration

	fsw   *fsnotify.Watcher
	mu    sync.Mutex
	timer *time.Timer
}

// New creates a watcher over root. onChange runs after the debounce
// window closes; its error is logged, never fatal to the loop.
func New(root string, onChange func() error) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		root:     root,
		onChange: onChange,
		debounce: defaultDebounce,
		fsw:      fsw,
	}, nil
}

// SetDebounce overrides the debounce window. Tests use a short one.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Watch blocks, dispatching debounced change callbacks until ctx is
// cancelled or the event stream closes.
func (w *Watcher) Watch(ctx context.Context) error {
	if err := w.addRecursively(w.root); err != nil {
		return fmt.Errorf("failed to add watchers: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if w.ignored(event.Name) {
				continue
			}

			// New directories join the watch set so files created in
			// them are seen too.
			if event.Has(fsnotify.Create) {
				if stat, err := os.Stat(event.Name); err == nil && stat.IsDir() {
					if err := w.fsw.Add(event.Name); err != nil {
						log.Printf("⚠️ Failed to watch %s: %v", event.Name, err)
					}
					continue
				}
			}

			if !strings.HasSuffix(event.Name, ".py") {
				continue
			}
			w.schedule()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			log.Printf("⚠️ Watcher error: %v", err)
		}
	}
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsw.Close()
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if err := w.onChange(); err != nil {
			log.Printf("⚠️ Rebuild failed: %v", err)
		}
	})
}

func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		for _, ign := range crawler.DefaultIgnored {
			if part == ign {
				return true
			}
		}
	}
	return false
}

func (w *Watcher) addRecursively(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
