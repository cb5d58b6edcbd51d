package plugin

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/quill/internal/engine"
	"github.com/dshills/quill/internal/event"
)

// HostOption configures a Host.
type HostOption func(*Host)

// WithLogger sets the host logger. Plugins get a child logger.
func WithLogger(l *slog.Logger) HostOption {
	return func(h *Host) {
		if l != nil {
			h.log = l
		}
	}
}

// WithBus sets the bus that plugin lifecycle events are published on.
func WithBus(b *event.Bus) HostOption {
	return func(h *Host) {
		h.bus = b
	}
}

// WithOptions sets the lookup for per-plugin settings.
func WithOptions(lookup func(name string) map[string]any) HostOption {
	return func(h *Host) {
		if lookup != nil {
			h.options = lookup
		}
	}
}

// WithStatus sets where plugin status messages go.
func WithStatus(fn func(msg string)) HostOption {
	return func(h *Host) {
		if fn != nil {
			h.status = fn
		}
	}
}

// Host owns a set of plugins and routes document hooks to them.
type Host struct {
	mu       sync.RWMutex
	plugins  []Plugin
	byName   map[string]Plugin
	commands map[string]registered
	attached map[uuid.UUID]*engine.Subscription
	closed   bool

	log     *slog.Logger
	bus     *event.Bus
	options func(name string) map[string]any
	status  func(msg string)
}

type registered struct {
	plugin string
	cmd    Command
}

// NewHost creates an empty host.
func NewHost(opts ...HostOption) *Host {
	h := &Host{
		byName:   make(map[string]Plugin),
		commands: make(map[string]registered),
		attached: make(map[uuid.UUID]*engine.Subscription),
		log:      slog.New(slog.DiscardHandler),
		options:  func(string) map[string]any { return nil },
		status:   func(string) {},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register initializes p and adds it to the host. A plugin whose Init
// fails is not added.
func (h *Host) Register(p Plugin) error {
	if p == nil {
		return ErrNilPlugin
	}
	name := p.Name()

	h.mu.RLock()
	closed := h.closed
	_, dup := h.byName[name]
	h.mu.RUnlock()
	if closed {
		return ErrHostClosed
	}
	if dup {
		return fmt.Errorf("%w: %s", ErrDuplicatePlugin, name)
	}

	env := &Env{
		Logger:  h.log.With(slog.String("plugin", name)),
		Bus:     h.bus,
		Options: h.options(name),
		Status:  h.status,
	}
	if err := h.guard(name, "init", func() error { return p.Init(env) }); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, dup := h.byName[name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicatePlugin, name)
	}
	h.plugins = append(h.plugins, p)
	h.byName[name] = p
	if c, ok := p.(Commander); ok {
		for _, cmd := range c.Commands() {
			if prev, taken := h.commands[cmd.Name]; taken {
				h.log.Warn("command already registered", "command", cmd.Name, "owner", prev.plugin, "plugin", name)
				continue
			}
			h.commands[cmd.Name] = registered{plugin: name, cmd: cmd}
		}
	}

	version := ""
	if v, ok := p.(Versioned); ok {
		version = v.Version()
	}
	h.log.Info("plugin loaded", "plugin", name, "version", version)
	if h.bus != nil {
		h.bus.Emit(event.TopicPluginLoaded, event.PluginLoaded{Name: name, Version: version}, "plugin")
	}
	return nil
}

// Get returns the named plugin.
func (h *Host) Get(name string) (Plugin, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.byName[name]
	return p, ok
}

// Names returns registered plugin names in registration order.
func (h *Host) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, len(h.plugins))
	for i, p := range h.plugins {
		names[i] = p.Name()
	}
	return names
}

// Commands returns all command names, sorted.
func (h *Host) Commands() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.commands))
	for name := range h.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes a plugin command against doc.
func (h *Host) Run(name string, doc *engine.Document, args []string) error {
	h.mu.RLock()
	reg, ok := h.commands[name]
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return ErrHostClosed
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrCommandNotFound, name)
	}
	return h.guard(reg.plugin, "command "+name, func() error { return reg.cmd.Run(doc, args) })
}

// Attach routes doc's change events to every ChangeHandler plugin.
// Attaching the same document twice has no effect.
func (h *Host) Attach(doc *engine.Document) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if _, ok := h.attached[doc.ID()]; ok {
		return
	}
	h.attached[doc.ID()] = doc.Subscribe(engine.ObserverFunc(func(ev engine.ChangeEvent) {
		h.dispatchChange(doc, ev)
	}))
}

// Detach stops routing doc's events.
func (h *Host) Detach(doc *engine.Document) {
	h.mu.Lock()
	sub, ok := h.attached[doc.ID()]
	delete(h.attached, doc.ID())
	h.mu.Unlock()
	if ok {
		sub.Unsubscribe()
	}
}

func (h *Host) dispatchChange(doc *engine.Document, ev engine.ChangeEvent) {
	for _, p := range h.snapshot() {
		ch, ok := p.(ChangeHandler)
		if !ok {
			continue
		}
		_ = h.guard(p.Name(), "change", func() error {
			ch.OnChange(doc, ev)
			return nil
		})
	}
}

// saveHookAttempts bounds how often a save hook is asked again after the
// document changed under its proposal.
const saveHookAttempts = 3

// BeforeSave asks every SaveHook plugin for edits and applies each
// plugin's proposal as one transaction. A proposal is applied only if the
// document has not changed since the hook was asked; otherwise the hook
// is asked again. A failing plugin is skipped and its error returned
// after the remaining plugins have run.
func (h *Host) BeforeSave(doc *engine.Document) error {
	var errs []error
	for _, p := range h.snapshot() {
		hook, ok := p.(SaveHook)
		if !ok {
			continue
		}
		if err := h.runSaveHook(p.Name(), hook, doc); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *Host) runSaveHook(name string, hook SaveHook, doc *engine.Document) error {
	var err error
	for range saveHookAttempts {
		_, rev := doc.Capture()
		var edits []engine.Edit
		if err := h.guard(name, "before save", func() error {
			var err error
			edits, err = hook.BeforeSave(doc)
			return err
		}); err != nil {
			return err
		}
		if len(edits) == 0 {
			return nil
		}
		if _, err = doc.ApplyEditsAt(rev, edits); !errors.Is(err, engine.ErrStale) {
			break
		}
		h.log.Debug("save hook raced an edit", "plugin", name, "revision", rev)
	}
	if err != nil {
		perr := &Error{Plugin: name, Op: "apply edits", Err: err}
		h.report(perr)
		return perr
	}
	return nil
}

// Close detaches every document and closes plugins in reverse order.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	plugins := slices.Clone(h.plugins)
	subs := make([]*engine.Subscription, 0, len(h.attached))
	for _, s := range h.attached {
		subs = append(subs, s)
	}
	clear(h.attached)
	h.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
	var errs []error
	for _, p := range slices.Backward(plugins) {
		if err := h.guard(p.Name(), "close", p.Close); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *Host) snapshot() []Plugin {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil
	}
	return slices.Clone(h.plugins)
}

// guard runs fn, converting errors and panics into a reported *Error.
func (h *Host) guard(name, op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Plugin: name, Op: op, Err: fmt.Errorf("%w: %v", ErrPluginPanic, r)}
		}
		if err != nil {
			h.report(err)
		}
	}()
	if err := fn(); err != nil {
		return &Error{Plugin: name, Op: op, Err: err}
	}
	return nil
}

func (h *Host) report(err error) {
	var perr *Error
	if !errors.As(err, &perr) {
		return
	}
	h.log.Error("plugin failed", "plugin", perr.Plugin, "op", perr.Op, "err", perr.Err)
	if h.bus != nil {
		h.bus.Emit(event.TopicPluginError, event.PluginError{Name: perr.Plugin, Err: perr}, "plugin")
	}
}
