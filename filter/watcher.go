package filter

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads a Filter when its word file is edited outside the process.
// The parent directory is watched so editors that replace the file by rename are seen.
type Watcher struct {
	watcher     *fsnotify.Watcher
	filter      *Filter
	path        string
	debounceDur time.Duration
	logger      *zap.Logger

	mu      sync.Mutex
	timer   *time.Timer
	reloads int
	done    chan struct{}
}

// NewWatcher prepares a watcher for path; call Start to begin watching.
func NewWatcher(f *Filter, path string, logger *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return nil, err
	}
	return &Watcher{
		watcher:     w,
		filter:      f,
		path:        abs,
		debounceDur: 500 * time.Millisecond, // Debounce rapid saves
		logger:      logger,
		done:        make(chan struct{}),
	}, nil
}

// Start watches until ctx is cancelled. It is non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		w.watcher.Close()
		close(w.done)
		return err
	}
	w.logger.Info("Watching filter words file", zap.String("path", w.path))
	go w.run(ctx)
	return nil
}

// Done is closed once the watcher goroutine exits.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// Reloads returns how many reloads have completed.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.schedule(ctx)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Filter watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounceDur, func() {
		if ctx.Err() != nil {
			return
		}
		if err := w.filter.Reload(ctx); err != nil {
			w.logger.Warn("Failed to reload filter words, keeping current set", zap.Error(err))
			return
		}
		w.mu.Lock()
		w.reloads++
		w.mu.Unlock()
		w.logger.Info("Filter words reloaded", zap.Int("words", len(w.filter.Words())))
	})
}
