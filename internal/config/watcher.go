package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of writes from editors that save in
// several steps.
const DefaultDebounce = 100 * time.Millisecond

// ChangeFunc receives the previous and reloaded settings.
type ChangeFunc func(old, new Config)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger used for reload failures.
func WithLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// WithEnviron sets the environment source applied on every reload.
func WithEnviron(environ func() []string) WatcherOption {
	return func(w *Watcher) {
		if environ != nil {
			w.environ = environ
		}
	}
}

// Watcher holds the current settings and reloads them when the file
// changes. The containing directory is watched so atomic saves that
// replace the file are seen.
type Watcher struct {
	mu       sync.RWMutex
	path     string
	current  Config
	handlers []ChangeFunc

	fsw      *fsnotify.Watcher
	debounce time.Duration
	timer    *time.Timer
	environ  func() []string
	log      *slog.Logger

	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

// Watch loads path and starts watching it.
func Watch(path string, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		path:     abs,
		debounce: DefaultDebounce,
		environ:  os.Environ,
		log:      slog.New(slog.DiscardHandler),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, err := LoadEnv(abs, w.environ())
	if err != nil {
		return nil, err
	}
	w.current = cfg

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}
	w.fsw = fsw

	w.closedWg.Add(1)
	go w.processLoop()
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Current returns a copy of the active settings.
func (w *Watcher) Current() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current.Clone()
}

// OnChange registers fn to run after each successful reload.
func (w *Watcher) OnChange(fn ChangeFunc) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, fn)
}

// Reload re-reads the file now. On error the current settings are kept.
func (w *Watcher) Reload() error {
	w.mu.RLock()
	closed := w.closed
	w.mu.RUnlock()
	if closed {
		return ErrWatcherClosed
	}

	cfg, err := LoadEnv(w.path, w.environ())
	if err != nil {
		return err
	}

	w.mu.Lock()
	old := w.current
	w.current = cfg
	handlers := append([]ChangeFunc(nil), w.handlers...)
	w.mu.Unlock()

	w.log.Info("config reloaded", "path", w.path)
	for _, fn := range handlers {
		w.safeCall(fn, old.Clone(), cfg.Clone())
	}
	return nil
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	close(w.closeCh)
	w.mu.Unlock()

	err := w.fsw.Close()
	w.closedWg.Wait()
	return err
}

func (w *Watcher) processLoop() {
	defer w.closedWg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.schedule()
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watch error", "path", w.path, "err", err)
		}
	}
}

// schedule restarts the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if err := w.Reload(); err != nil && err != ErrWatcherClosed {
			w.log.Warn("config reload failed", "path", w.path, "err", err)
		}
	})
}

func (w *Watcher) safeCall(fn ChangeFunc, old, cfg Config) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("config handler panicked", "panic", r)
		}
	}()
	fn(old, cfg)
}
