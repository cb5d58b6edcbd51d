package app

import (
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/quill/internal/config"
	"github.com/dshills/quill/internal/engine"
	"github.com/dshills/quill/internal/highlight"
	"github.com/dshills/quill/internal/ui"
)

// Run starts the terminal and processes events until a quit command.
func (app *Application) Run() error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	s := app.opts.Screen
	if s == nil {
		var err error
		if s, err = tcell.NewScreen(); err != nil {
			return &InitError{Component: "screen", Err: err}
		}
	}
	if err := s.Init(); err != nil {
		return &InitError{Component: "screen", Err: err}
	}
	defer s.Fini()
	s.EnableMouse()

	cfg := app.Config()
	app.mu.Lock()
	app.screen = s
	app.ui = ui.New(s, theme(cfg), uiOptions(cfg))
	app.mu.Unlock()
	defer func() {
		app.mu.Lock()
		app.screen, app.ui = nil, nil
		app.mu.Unlock()
	}()

	app.log.Info("editor started", "documents", app.ws.Len())
	app.draw()
	for !app.quitting.Load() {
		ev := s.PollEvent()
		if ev == nil {
			break
		}
		app.handleEvent(ev)
		if app.quitting.Load() {
			break
		}
		app.draw()
	}
	app.log.Info("editor stopped")
	return nil
}

// runOnLoop runs fn on the event loop, or right away when the loop is not
// running.
func (app *Application) runOnLoop(fn func()) {
	app.mu.RLock()
	s := app.screen
	app.mu.RUnlock()
	if s == nil || !app.running.Load() {
		fn()
		return
	}
	if err := s.PostEvent(tcell.NewEventInterrupt(fn)); err != nil {
		app.log.Warn("event queue full", "err", err)
	}
}

func (app *Application) handleEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		app.handleKey(ev)
	case *tcell.EventMouse:
		if err := app.input.HandleMouse(ev); err != nil {
			app.log.Debug("mouse event failed", "err", err)
		}
	case *tcell.EventResize:
		app.mu.RLock()
		s := app.screen
		app.mu.RUnlock()
		if s != nil {
			s.Sync()
		}
	case *tcell.EventInterrupt:
		if fn, ok := ev.Data().(func()); ok {
			fn()
		}
	}
}

// handleKey feeds a key to the input handler. Errors go to the message
// line.
func (app *Application) handleKey(ev *tcell.EventKey) {
	app.mu.Lock()
	app.message = ""
	app.mu.Unlock()

	if err := app.input.HandleEvent(ev); err != nil {
		app.log.Debug("key failed", "key", ev.Name(), "err", err)
		app.mu.Lock()
		app.message = err.Error()
		app.mu.Unlock()
	}
}

func (app *Application) renderer() *ui.Renderer {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.ui
}

// PageHeight implements input.View.
func (app *Application) PageHeight(*engine.Document) int {
	if r := app.renderer(); r != nil {
		return r.TextHeight()
	}
	return 0
}

// OffsetAt implements input.View.
func (app *Application) OffsetAt(doc *engine.Document, x, y int) (int, bool) {
	if r := app.renderer(); r != nil {
		return r.OffsetAt(doc, x, y)
	}
	return 0, false
}

// Scroll implements input.View.
func (app *Application) Scroll(doc *engine.Document, n, line int) int {
	if r := app.renderer(); r != nil {
		return r.Scroll(doc, n, line)
	}
	return line
}

func (app *Application) draw() {
	app.mu.RLock()
	r := app.ui
	msg := app.message
	app.mu.RUnlock()
	if r == nil {
		return
	}

	doc := app.ws.Active()
	r.Draw(ui.State{
		Doc:         doc,
		Highlighter: app.ws.Highlighter(doc),
		Mode:        app.input.Mode().Label(),
		Prompt:      app.input.Prompt(),
		Message:     msg,
	})
}

func uiOptions(cfg config.Config) ui.Options {
	return ui.OptionsFromConfig(cfg)
}

func theme(cfg config.Config) *ui.Theme {
	return ui.NewTheme(highlight.LookupStyle(cfg.UI.Theme))
}
