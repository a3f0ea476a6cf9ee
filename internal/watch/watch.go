// Package watch turns raw filesystem events under a directory tree into
// debounced per-file change notifications.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// eventBuffer bounds the notification channel; bursts beyond it are dropped
// with a warning rather than stalling the event loop.
const eventBuffer = 64

// Notification reports a settled change to one file.
type Notification struct {
	Path string
	At   time.Time
}

// Watcher wraps fsnotify with recursive directory registration and a
// per-path quiet window, so a save producing several raw events yields a
// single notification.
type Watcher struct {
	root   string
	quiet  time.Duration
	logger *slog.Logger
	fsw    *fsnotify.Watcher
	events chan Notification

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
}

// New creates a watcher and registers every directory under root, hidden
// ones included. Changes are already captured once New returns; Run must be
// called to consume them and releases all resources when its context ends.
func New(root string, quiet time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	w := &Watcher{
		root:    root,
		quiet:   quiet,
		logger:  logger,
		fsw:     fsw,
		events:  make(chan Notification, eventBuffer),
		pending: make(map[string]*time.Timer),
	}

	if err := w.addRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return w, nil
}

// Events returns the notification channel. It is closed when Run returns.
func (w *Watcher) Events() <-chan Notification {
	return w.events
}

// Run consumes filesystem events until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		_ = w.fsw.Close()
	}()
	defer w.shutdown()

	w.logger.Info("watching for changes", "root", w.root)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("filesystem watcher error", "error", err)
		}
	}
}

// handleEvent registers newly created directories and schedules
// notifications for file writes. Removals, renames and attribute changes
// carry no new content and are ignored.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "dir", event.Name, "error", err)
			}
			return
		}
	}

	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	w.scheduleNotify(event.Name)
}

// scheduleNotify arms (or re-arms) the quiet-window timer for path, so an
// event burst collapses into one notification.
func (w *Watcher) scheduleNotify(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.quiet, func() {
		w.notify(path)
	})
}

// notify delivers the settled notification for path.
func (w *Watcher) notify(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	delete(w.pending, path)

	select {
	case w.events <- Notification{Path: path, At: time.Now()}:
	default:
		w.logger.Warn("notification channel full, dropping change", "path", path)
	}
}

// shutdown stops all pending timers and closes the notification channel.
// Sends only ever happen under mu with closed unset, so closing here is
// safe against in-flight timer callbacks.
func (w *Watcher) shutdown() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	close(w.events)
}

// addRecursive registers dir and every directory below it. The watcher does
// not filter: hidden directories are watched too, eligibility decides what
// gets versioned.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
