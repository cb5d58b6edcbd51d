package builtin

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/quill/internal/engine"
	"github.com/dshills/quill/internal/plugin"
)

// SaveFunc writes a document to its path.
type SaveFunc func(doc *engine.Document) error

// AutoSaveOption configures AutoSave.
type AutoSaveOption func(*AutoSave)

// OnLoop runs each save through run, typically the editor's event loop,
// so saves never interleave with key handling. By default a save runs on
// its timer goroutine.
func OnLoop(run func(fn func())) AutoSaveOption {
	return func(a *AutoSave) {
		if run != nil {
			a.run = run
		}
	}
}

// AutoSave writes modified documents after a quiet period.
type AutoSave struct {
	mu     sync.Mutex
	delay  time.Duration
	save   SaveFunc
	run    func(fn func())
	timers map[uuid.UUID]*time.Timer
	closed bool
	env    *plugin.Env
}

// NewAutoSave creates the plugin. The "delay" option, when set, overrides
// delay.
func NewAutoSave(delay time.Duration, save SaveFunc, opts ...AutoSaveOption) *AutoSave {
	a := &AutoSave{
		delay:  delay,
		save:   save,
		run:    func(fn func()) { fn() },
		timers: make(map[uuid.UUID]*time.Timer),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *AutoSave) Name() string    { return "autosave" }
func (a *AutoSave) Version() string { return "1.0.0" }

func (a *AutoSave) Init(env *plugin.Env) error {
	a.env = env
	if s := plugin.Option(env, "delay", ""); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		a.delay = d
	}
	return nil
}

// Delay returns the quiet period before a save.
func (a *AutoSave) Delay() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.delay
}

// OnChange restarts doc's timer.
func (a *AutoSave) OnChange(doc *engine.Document, ev engine.ChangeEvent) {
	if ev.Cause == engine.CauseLoad {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	if t, ok := a.timers[ev.DocID]; ok {
		t.Stop()
	}
	a.timers[ev.DocID] = time.AfterFunc(a.delay, func() {
		a.run(func() { a.flush(doc) })
	})
}

// Pending reports how many documents have a save scheduled.
func (a *AutoSave) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.timers)
}

func (a *AutoSave) flush(doc *engine.Document) {
	a.mu.Lock()
	delete(a.timers, doc.ID())
	closed := a.closed
	a.mu.Unlock()
	if closed || doc.IsClosed() || !doc.IsModified() || doc.Path() == "" {
		return
	}
	if err := a.save(doc); err != nil {
		a.env.Logger.Warn("autosave failed", "path", doc.Path(), "err", err)
		a.env.Status("autosave failed: " + err.Error())
		return
	}
	a.env.Logger.Debug("autosaved", "path", doc.Path())
}

// Close cancels pending saves.
func (a *AutoSave) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	for id, t := range a.timers {
		t.Stop()
		delete(a.timers, id)
	}
	return nil
}
