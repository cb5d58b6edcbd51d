// Package app wires the Quill editor together: configuration, logging,
// the event bus, the plugin host, the workspace, the input handler and the
// terminal renderer.
package app

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/quill/internal/config"
	"github.com/dshills/quill/internal/engine"
	"github.com/dshills/quill/internal/event"
	"github.com/dshills/quill/internal/input"
	"github.com/dshills/quill/internal/plugin"
	"github.com/dshills/quill/internal/ui"
	"github.com/dshills/quill/internal/workspace"
)

// Options configures the application.
type Options struct {
	// ConfigPath is the configuration file. Empty uses the user config
	// directory.
	ConfigPath string

	// Files are opened on startup. With none, a scratch document is created.
	Files []string

	// Encoding overrides the configured fallback encoding.
	Encoding string

	// Logger receives application logs. Nil discards them.
	Logger *slog.Logger

	// Screen is the terminal to draw on. Nil creates one in Run.
	Screen tcell.Screen

	// Environ supplies QUILL_* overrides. Nil uses the process environment.
	Environ func() []string
}

// Application is the central coordinator for all Quill components.
type Application struct {
	mu      sync.RWMutex
	cfg     config.Config
	message string

	opts    Options
	log     *slog.Logger
	bus     *event.Bus
	watcher *config.Watcher
	host    *plugin.Host
	ws      *workspace.Workspace
	input   *input.Handler
	screen  tcell.Screen
	ui      *ui.Renderer
	subs    []*event.Subscription

	running  atomic.Bool
	quitting atomic.Bool
}

// New creates an Application and starts every component except the
// terminal, which Run starts.
func New(opts Options) (*Application, error) {
	app := &Application{
		opts: opts,
		log:  opts.Logger,
	}
	if app.log == nil {
		app.log = slog.New(slog.DiscardHandler)
	}
	if err := newBootstrapper(app).bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// Document implements input.Target.
func (app *Application) Document() *engine.Document {
	return app.ws.Active()
}

// Config returns the settings in effect.
func (app *Application) Config() config.Config {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.cfg
}

// Workspace returns the open documents.
func (app *Application) Workspace() *workspace.Workspace {
	return app.ws
}

// Plugins returns the plugin host.
func (app *Application) Plugins() *plugin.Host {
	return app.host
}

// Bus returns the event bus.
func (app *Application) Bus() *event.Bus {
	return app.bus
}

// Input returns the key handler.
func (app *Application) Input() *input.Handler {
	return app.input
}

// Message returns the text shown on the message line.
func (app *Application) Message() string {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.message
}

// SetMessage replaces the message line and schedules a redraw.
func (app *Application) SetMessage(msg string) {
	app.mu.Lock()
	app.message = msg
	app.mu.Unlock()
	app.redraw()
}

// IsRunning reports whether Run is executing.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Quit asks the event loop to stop after the current event.
func (app *Application) Quit() {
	app.quitting.Store(true)
	app.redraw()
}

// redraw wakes the event loop from another goroutine.
func (app *Application) redraw() {
	app.mu.RLock()
	s := app.screen
	app.mu.RUnlock()
	if s != nil && app.running.Load() {
		_ = s.PostEvent(tcell.NewEventInterrupt(nil))
	}
}

// Close shuts components down in reverse start order. Unsaved changes are
// discarded.
func (app *Application) Close() error {
	for _, s := range app.subs {
		_ = app.bus.Unsubscribe(s)
	}
	app.subs = nil
	var errs []error
	if app.watcher != nil {
		errs = append(errs, app.watcher.Close())
		app.watcher = nil
	}
	if app.ws != nil {
		errs = append(errs, app.ws.CloseAll())
	}
	if app.host != nil {
		errs = append(errs, app.host.Close())
	}
	return errors.Join(errs...)
}
