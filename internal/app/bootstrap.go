package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/quill/internal/config"
	"github.com/dshills/quill/internal/engine"
	"github.com/dshills/quill/internal/event"
	"github.com/dshills/quill/internal/input"
	"github.com/dshills/quill/internal/plugin"
	"github.com/dshills/quill/internal/plugin/builtin"
	"github.com/dshills/quill/internal/plugin/lua"
	"github.com/dshills/quill/internal/workspace"
)

// DefaultConfigPath returns the user's config file location, or "" when
// the platform has no config directory.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "quill", "config.toml")
}

// bootstrapper starts components in dependency order and stops the ones
// already started when a later one fails.
type bootstrapper struct {
	app       *Application
	opts      Options
	initOrder []string
}

func newBootstrapper(app *Application) *bootstrapper {
	return &bootstrapper{app: app, opts: app.opts}
}

func (b *bootstrapper) bootstrap() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"eventBus", b.initEventBus},
		{"config", b.initConfig},
		{"plugins", b.initPlugins},
		{"workspace", b.initWorkspace},
		{"input", b.initInput},
		{"subscriptions", b.initSubscriptions},
		{"documents", b.initDocuments},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			b.cleanup()
			return &InitError{Component: step.name, Err: err}
		}
		b.initOrder = append(b.initOrder, step.name)
	}
	return nil
}

func (b *bootstrapper) initEventBus() error {
	b.app.bus = event.NewBus(event.WithLogger(b.app.log))
	return nil
}

func (b *bootstrapper) environ() []string {
	if b.opts.Environ != nil {
		return b.opts.Environ()
	}
	return os.Environ()
}

// initConfig loads the settings, watching the file when its directory
// exists so edits apply without a restart.
func (b *bootstrapper) initConfig() error {
	path := b.opts.ConfigPath
	if path == "" {
		path = DefaultConfigPath()
	}

	if path != "" {
		if info, err := os.Stat(filepath.Dir(path)); err == nil && info.IsDir() {
			w, err := config.Watch(path,
				config.WithLogger(b.app.log),
				config.WithEnviron(b.environ),
			)
			if err != nil {
				return err
			}
			b.app.watcher = w
			b.app.cfg = b.app.withOverrides(w.Current())
			b.app.log.Info("config loaded", "path", w.Path())
			return nil
		}
	}

	cfg, err := config.LoadEnv(path, b.environ())
	if err != nil {
		return err
	}
	b.app.cfg = b.app.withOverrides(cfg)
	return nil
}

// withOverrides applies command line settings on top of cfg.
func (app *Application) withOverrides(cfg config.Config) config.Config {
	if app.opts.Encoding != "" {
		cfg.Editor.Encoding = app.opts.Encoding
	}
	return cfg
}

// initPlugins starts the host, the enabled builtins and any Lua plugins
// under the plugin directory. A plugin that fails to start is reported and
// skipped.
func (b *bootstrapper) initPlugins() error {
	app := b.app
	cfg := app.cfg
	app.host = plugin.NewHost(
		plugin.WithLogger(app.log),
		plugin.WithBus(app.bus),
		plugin.WithOptions(func(name string) map[string]any {
			return app.Config().PluginOptions(name)
		}),
		plugin.WithStatus(app.SetMessage),
	)

	plugins := []plugin.Plugin{
		builtin.NewWordCount(),
		builtin.NewTrimWhitespace(),
	}
	if cfg.Editor.AutoSave {
		plugins = append(plugins, builtin.NewAutoSave(cfg.Editor.AutoSaveDelay.Duration, app.autoSave,
			builtin.OnLoop(app.runOnLoop)))
	}

	if dir := cfg.Plugins.Dir; dir != "" {
		found, err := lua.Discover(dir)
		if err != nil {
			app.log.Warn("plugin discovery failed", "dir", dir, "err", err)
		}
		for _, p := range found {
			plugins = append(plugins, p)
		}
	}

	for _, p := range plugins {
		if !cfg.PluginEnabled(p.Name()) {
			continue
		}
		// Register reports failures on the bus and in the log.
		_ = app.host.Register(p)
	}
	return nil
}

// autoSave is the builtin autosave's writer. It runs on the event loop.
// Documents without a file are skipped.
func (app *Application) autoSave(doc *engine.Document) error {
	if doc.Path() == "" {
		return nil
	}
	if err := app.ws.Save(doc); err != nil {
		return err
	}
	app.redraw()
	return nil
}

func (b *bootstrapper) initWorkspace() error {
	b.app.ws = workspace.New(
		workspace.WithLogger(b.app.log),
		workspace.WithBus(b.app.bus),
		workspace.WithHost(b.app.host),
		workspace.WithConfig(b.app.cfg),
	)
	return nil
}

var _ input.View = (*Application)(nil)

func (b *bootstrapper) initInput() error {
	app := b.app
	app.input = input.New(app,
		input.WithLogger(app.log),
		input.WithBus(app.bus),
		input.WithStatus(app.SetMessage),
		input.WithIndent(app.cfg.Editor.TabSize, app.cfg.Editor.UseSpaces),
	)
	for _, name := range app.host.Names() {
		p, _ := app.host.Get(name)
		kb, ok := p.(plugin.KeyBinder)
		if !ok {
			continue
		}
		if err := app.input.BindAll(kb.Keybindings()); err != nil {
			app.log.Warn("invalid plugin keybindings", "plugin", name, "err", err)
		}
	}
	if err := app.input.BindAll(app.cfg.Keybindings); err != nil {
		app.log.Warn("invalid keybindings", "err", err)
	}
	return nil
}

// initSubscriptions connects configuration reloads and plugin failures to
// the rest of the editor.
func (b *bootstrapper) initSubscriptions() error {
	app := b.app
	if app.watcher != nil {
		path := app.watcher.Path()
		app.watcher.OnChange(func(_, cfg config.Config) {
			app.runOnLoop(func() {
				app.applyConfig(app.withOverrides(cfg))
				app.bus.Emit(event.TopicConfigChanged, event.ConfigChanged{Path: path}, "config")
			})
		})
	}

	sub, err := app.bus.SubscribeFunc(event.TopicPluginError, func(_ context.Context, ev event.Event) error {
		if p, ok := ev.Payload.(event.PluginError); ok {
			app.SetMessage(fmt.Sprintf("plugin %s: %v", p.Name, p.Err))
		}
		return nil
	})
	if err != nil {
		return err
	}
	app.subs = append(app.subs, sub)
	return nil
}

func (b *bootstrapper) initDocuments() error {
	app := b.app
	for _, file := range b.opts.Files {
		if _, err := app.ws.Open(file); err != nil {
			app.log.Warn("open failed", "path", file, "err", err)
			app.message = err.Error()
		}
	}
	if app.ws.Len() == 0 {
		app.ws.NewScratch()
	}
	return nil
}

// cleanup stops started components in reverse order.
func (b *bootstrapper) cleanup() {
	for i := len(b.initOrder) - 1; i >= 0; i-- {
		switch b.initOrder[i] {
		case "config":
			if b.app.watcher != nil {
				_ = b.app.watcher.Close()
				b.app.watcher = nil
			}
		case "plugins":
			_ = b.app.host.Close()
		case "subscriptions":
			for _, s := range b.app.subs {
				_ = b.app.bus.Unsubscribe(s)
			}
			b.app.subs = nil
		case "documents":
			_ = b.app.ws.CloseAll()
		}
	}
}

// applyConfig installs reloaded settings in every component. It must run
// on the event loop.
func (app *Application) applyConfig(cfg config.Config) {
	app.mu.Lock()
	app.cfg = cfg
	r := app.ui
	app.mu.Unlock()

	app.ws.ApplyConfig(cfg)
	app.input.SetIndent(cfg.Editor.TabSize, cfg.Editor.UseSpaces)
	if err := app.input.BindAll(cfg.Keybindings); err != nil {
		app.log.Warn("invalid keybindings", "err", err)
	}
	if r != nil {
		r.SetOptions(uiOptions(cfg))
		r.SetTheme(theme(cfg))
	}
	app.redraw()
}
