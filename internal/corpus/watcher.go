package corpus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher calls OnChange once a burst of file events in a directory has
// been quiet for the debounce interval. It does not say which files
// changed; the callback is expected to reload everything.
type Watcher struct {
	dir        string
	extensions []string
	debounce   time.Duration
	onChange   func(ctx context.Context)

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	timer    *time.Timer
	done     chan struct{}
	stopOnce sync.Once
	logger   *slog.Logger
}

// NewWatcher watches dir for changes to files matching extensions.
func NewWatcher(dir string, extensions []string, debounce time.Duration, onChange func(ctx context.Context)) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		dir:        dir,
		extensions: extensions,
		debounce:   debounce,
		onChange:   onChange,
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "corpus-watcher", "dir", dir),
	}
}

// Start begins watching. The watcher runs until ctx is cancelled or Stop
// is called.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return err
	}
	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()

	w.logger.Info("watching corpus directory", "debounce", w.debounce)
	go w.run(ctx, fsw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !MatchExtension(ev.Name, w.extensions) {
				continue
			}
			w.logger.Debug("corpus event", "op", ev.Op.String(), "path", ev.Name)
			w.schedule(ctx)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.done:
			return
		default:
		}
		w.onChange(ctx)
	})
}

// Stop releases the fsnotify watcher and cancels any pending callback.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.timer != nil {
			w.timer.Stop()
		}
		if w.fsw != nil {
			w.fsw.Close()
		}
	})
}
