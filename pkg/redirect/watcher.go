package redirect

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounceInterval is how long the watcher waits after the last
// file event before reloading, so editors that write in several steps
// trigger a single reload.
const defaultDebounceInterval = 100 * time.Millisecond

// Watcher reloads the resolver when its rule file changes on disk. It
// watches the containing directory rather than the file itself so that
// atomic write-then-rename editors keep being observed after the inode
// changes.
type Watcher struct {
	resolver *Resolver
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce *debouncer

	mu      sync.Mutex
	running bool
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher over the resolver's rule file.
func NewWatcher(resolver *Resolver, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		resolver: resolver,
		watcher:  fw,
		logger:   logger.With("component", "redirect.watcher"),
		debounce: newDebouncer(defaultDebounceInterval),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks processing file events until the context is cancelled or
// Stop is called.
func (w *Watcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	dir := filepath.Dir(w.resolver.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	w.logger.Info("rules watcher started",
		"path", w.resolver.path,
		"debounce_ms", defaultDebounceInterval.Milliseconds(),
	)

	target := filepath.Clean(w.resolver.path)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("rules watcher stopped (context cancelled)")
			return nil

		case <-w.stopCh:
			w.logger.Info("rules watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}
			if filepath.Clean(event.Name) != target {
				continue
			}

			w.logger.Debug("rules file event", "path", event.Name, "op", event.Op.String())

			w.debounce.trigger(func() {
				if err := w.resolver.Reload(); err != nil {
					w.logger.Error("rules reload failed", "error", err)
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("rules watcher error", "error", err)
		}
	}
}

// Stop stops event processing, cancels any pending reload, and closes
// the underlying fsnotify watcher. The fsnotify handle is released even
// when Watch has already returned (for example after context
// cancellation). Stop is idempotent.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	running := w.running
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}

	w.debounce.stop()

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// debouncer coalesces rapid file events into one callback after a quiet
// period.
type debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	stopCh   chan struct{}
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		select {
		case <-d.stopCh:
			return
		default:
			d.mu.Lock()
			cb := d.callback
			d.mu.Unlock()
			if cb != nil {
				cb()
			}
		}
	})
}

func (d *debouncer) stop() {
	close(d.stopCh)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
