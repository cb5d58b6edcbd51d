package lua

import (
	"errors"
	"fmt"
	"maps"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/quill/internal/engine"
	"github.com/dshills/quill/internal/engine/history"
	"github.com/dshills/quill/internal/engine/text"
	"github.com/dshills/quill/internal/event/topic"
	"github.com/dshills/quill/internal/plugin"
)

// ErrNoDocument is raised in Lua when an edit function runs outside a hook.
var ErrNoDocument = errors.New("no active document")

// Plugin adapts a Lua script to the plugin host.
//
// The script may define these globals, all optional:
//
//	setup(opts)        called once after loading
//	on_change(ev)      ev = {revision, cause, start, stop, new_len}
//	before_save()      returns {{start=, stop=, text=}, ...}
//
// Commands listed in the manifest call the named global with an array of
// string arguments. Offsets are 0-based byte offsets.
type Plugin struct {
	manifest  *Manifest
	stateOpts []StateOption

	state     *State
	env       *plugin.Env
	options   map[string]any
	hasChange bool

	// callMu serializes top-level calls into the script.
	callMu sync.Mutex
	doc    *engine.Document

	pendMu  sync.Mutex
	busy    bool
	pending []pendingChange
}

type pendingChange struct {
	doc *engine.Document
	ev  engine.ChangeEvent
}

var (
	_ plugin.Plugin        = (*Plugin)(nil)
	_ plugin.ChangeHandler = (*Plugin)(nil)
	_ plugin.SaveHook      = (*Plugin)(nil)
	_ plugin.Commander     = (*Plugin)(nil)
	_ plugin.Versioned     = (*Plugin)(nil)
	_ plugin.KeyBinder     = (*Plugin)(nil)
)

// New creates a plugin from a validated manifest. The script is not run
// until Init.
func New(m *Manifest, opts ...StateOption) *Plugin {
	return &Plugin{manifest: m, stateOpts: opts}
}

// Load reads the manifest in dir and creates the plugin.
func Load(dir string, opts ...StateOption) (*Plugin, error) {
	m, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	return New(m, opts...), nil
}

func (p *Plugin) Name() string        { return p.manifest.Name }
func (p *Plugin) Version() string     { return p.manifest.Version }
func (p *Plugin) Manifest() *Manifest { return p.manifest }

// Keybindings returns the manifest's suggested bindings.
func (p *Plugin) Keybindings() map[string]string { return p.manifest.Keybindings }

// Init starts the interpreter, runs the entry script and calls setup.
func (p *Plugin) Init(env *plugin.Env) error {
	s, err := NewState(p.stateOpts...)
	if err != nil {
		return err
	}
	p.env = env
	p.options = map[string]any{}
	maps.Copy(p.options, p.manifest.Options)
	if env != nil {
		maps.Copy(p.options, env.Options)
	}

	s.Preload("quill", p.api())
	if err := s.DoFile(p.manifest.MainPath()); err != nil {
		s.Close()
		return fmt.Errorf("loading %s: %w", p.manifest.Main, err)
	}
	p.state = s
	p.hasChange = s.HasFunction("on_change")

	err = p.invoke(nil, func() error {
		var opts lua.LValue
		_ = s.With(func(L *lua.LState) error {
			opts = toLua(L, p.options)
			return nil
		})
		_, err := s.Call("setup", opts)
		return err
	})
	if err != nil {
		s.Close()
		p.state = nil
		p.hasChange = false
		return fmt.Errorf("setup: %w", err)
	}
	return nil
}

// Close shuts the interpreter down.
func (p *Plugin) Close() error {
	if p.state == nil {
		return nil
	}
	return p.state.Close()
}

// OnChange forwards the event to on_change. Events raised by the script's
// own edits are delivered once the current call returns.
func (p *Plugin) OnChange(doc *engine.Document, ev engine.ChangeEvent) {
	if !p.hasChange {
		return
	}
	p.pendMu.Lock()
	if p.busy {
		p.pending = append(p.pending, pendingChange{doc, ev})
		p.pendMu.Unlock()
		return
	}
	p.pendMu.Unlock()

	err := p.invoke(doc, func() error { return p.callChange(ev) })
	if err != nil {
		p.logError("on_change", err)
	}
}

func (p *Plugin) callChange(ev engine.ChangeEvent) error {
	var arg lua.LValue
	_ = p.state.With(func(L *lua.LState) error {
		t := L.NewTable()
		t.RawSetString("revision", lua.LNumber(ev.Revision))
		t.RawSetString("cause", lua.LString(ev.Cause.String()))
		t.RawSetString("start", lua.LNumber(ev.Range.Start))
		t.RawSetString("stop", lua.LNumber(ev.Range.End))
		t.RawSetString("new_len", lua.LNumber(ev.NewLen))
		arg = t
		return nil
	})
	_, err := p.state.Call("on_change", arg)
	return err
}

// BeforeSave calls before_save and converts the returned edits.
func (p *Plugin) BeforeSave(doc *engine.Document) ([]engine.Edit, error) {
	if p.state == nil || !p.state.HasFunction("before_save") {
		return nil, nil
	}
	var edits []engine.Edit
	err := p.invoke(doc, func() error {
		ret, err := p.state.Call("before_save")
		if err != nil {
			return err
		}
		edits, err = toEdits(ret)
		return err
	})
	return edits, err
}

// Commands returns the manifest's commands.
func (p *Plugin) Commands() []plugin.Command {
	cmds := make([]plugin.Command, 0, len(p.manifest.Commands))
	for _, spec := range p.manifest.Commands {
		fn := spec.Function
		cmds = append(cmds, plugin.Command{
			Name:        spec.Name,
			Description: spec.Description,
			Run: func(doc *engine.Document, args []string) error {
				return p.runCommand(fn, doc, args)
			},
		})
	}
	return cmds
}

func (p *Plugin) runCommand(fn string, doc *engine.Document, args []string) error {
	if p.state == nil {
		return ErrStateClosed
	}
	if !p.state.HasFunction(fn) {
		return fmt.Errorf("%w: function %q", plugin.ErrCommandNotFound, fn)
	}
	return p.invoke(doc, func() error {
		var arg lua.LValue
		_ = p.state.With(func(L *lua.LState) error {
			arg = toLua(L, args)
			return nil
		})
		_, err := p.state.Call(fn, arg)
		return err
	})
}

// invoke runs fn with doc as the active document, then delivers change
// events that fn's edits queued.
func (p *Plugin) invoke(doc *engine.Document, fn func() error) error {
	p.callMu.Lock()
	defer p.callMu.Unlock()

	p.pendMu.Lock()
	p.busy = true
	p.pendMu.Unlock()

	p.doc = doc
	err := fn()

	for {
		p.pendMu.Lock()
		if len(p.pending) == 0 {
			p.busy = false
			p.pendMu.Unlock()
			break
		}
		next := p.pending[0]
		p.pending = p.pending[1:]
		p.pendMu.Unlock()

		p.doc = next.doc
		if cerr := p.callChange(next.ev); cerr != nil {
			p.logError("on_change", cerr)
		}
	}
	p.doc = nil
	return err
}

func (p *Plugin) logError(hook string, err error) {
	if p.env != nil && p.env.Logger != nil {
		p.env.Logger.Warn("lua hook failed", "hook", hook, "error", err)
	}
}

func toEdits(v lua.LValue) ([]engine.Edit, error) {
	if v == lua.LNil {
		return nil, nil
	}
	t, ok := v.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("before_save must return a table, got %s", v.Type())
	}
	var edits []engine.Edit
	for i := 1; i <= t.Len(); i++ {
		item, ok := t.RawGetInt(i).(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("edit %d is not a table", i)
		}
		start, ok1 := item.RawGetString("start").(lua.LNumber)
		stop, ok2 := item.RawGetString("stop").(lua.LNumber)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("edit %d needs numeric start and stop", i)
		}
		s := ""
		if str, ok := item.RawGetString("text").(lua.LString); ok {
			s = string(str)
		}
		r := text.Span(int(start), int(stop))
		edits = append(edits, engine.Edit{Kind: kindOf(r, s), Range: r, Text: s})
	}
	return edits, nil
}

func kindOf(r text.Range, s string) history.Kind {
	switch {
	case r.IsEmpty():
		return engine.Insert
	case s == "":
		return engine.Delete
	}
	return engine.Replace
}

// ============================================================================
// quill module
// ============================================================================

func (p *Plugin) api() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"text":       p.luaText,
		"len":        p.luaLen,
		"line_count": p.luaLineCount,
		"line":       p.luaLine,
		"path":       p.luaPath,
		"cursor":     p.luaCursor,
		"selection":  p.luaSelection,
		"insert":     p.luaInsert,
		"delete":     p.luaDelete,
		"replace":    p.luaReplace,
		"status":     p.luaStatus,
		"log":        p.luaLog,
		"option":     p.luaOption,
		"publish":    p.luaPublish,
	}
}

func (p *Plugin) active(L *lua.LState) *engine.Document {
	if p.doc == nil {
		L.RaiseError("%s", ErrNoDocument)
	}
	return p.doc
}

func (p *Plugin) luaText(L *lua.LState) int {
	L.Push(lua.LString(p.active(L).Text()))
	return 1
}

func (p *Plugin) luaLen(L *lua.LState) int {
	L.Push(lua.LNumber(p.active(L).LenBytes()))
	return 1
}

func (p *Plugin) luaLineCount(L *lua.LState) int {
	L.Push(lua.LNumber(p.active(L).LineCount()))
	return 1
}

func (p *Plugin) luaLine(L *lua.LState) int {
	doc := p.active(L)
	s, err := doc.LineText(L.CheckInt(1))
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(s))
	return 1
}

func (p *Plugin) luaPath(L *lua.LState) int {
	L.Push(lua.LString(p.active(L).Path()))
	return 1
}

func (p *Plugin) luaCursor(L *lua.LState) int {
	L.Push(lua.LNumber(p.active(L).Primary().Position))
	return 1
}

func (p *Plugin) luaSelection(L *lua.LState) int {
	c := p.active(L).Primary()
	L.Push(lua.LNumber(c.Start()))
	L.Push(lua.LNumber(c.End()))
	return 2
}

func (p *Plugin) luaInsert(L *lua.LState) int {
	doc := p.active(L)
	res, err := doc.Insert(L.CheckInt(1), L.CheckString(2))
	return pushRevision(L, res, err)
}

func (p *Plugin) luaDelete(L *lua.LState) int {
	doc := p.active(L)
	res, err := doc.Delete(text.Span(L.CheckInt(1), L.CheckInt(2)))
	return pushRevision(L, res, err)
}

func (p *Plugin) luaReplace(L *lua.LState) int {
	doc := p.active(L)
	res, err := doc.Replace(text.Span(L.CheckInt(1), L.CheckInt(2)), L.CheckString(3))
	return pushRevision(L, res, err)
}

func pushRevision(L *lua.LState, res engine.CommitResult, err error) int {
	if err != nil {
		L.RaiseError("%s", err)
		return 0
	}
	L.Push(lua.LNumber(res.Revision))
	return 1
}

func (p *Plugin) luaStatus(L *lua.LState) int {
	if p.env != nil && p.env.Status != nil {
		p.env.Status(L.CheckString(1))
	}
	return 0
}

func (p *Plugin) luaLog(L *lua.LState) int {
	if p.env != nil && p.env.Logger != nil {
		p.env.Logger.Info(L.CheckString(1), "source", "lua")
	}
	return 0
}

func (p *Plugin) luaOption(L *lua.LState) int {
	v, ok := p.options[L.CheckString(1)]
	if !ok {
		L.Push(L.Get(2))
		return 1
	}
	L.Push(toLua(L, v))
	return 1
}

// luaPublish emits plugin.<name>.<topic> on the bus.
func (p *Plugin) luaPublish(L *lua.LState) int {
	name := L.CheckString(1)
	t := topic.Join("plugin", p.Name(), name)
	if !t.IsValid() || t.IsWildcard() {
		L.ArgError(1, "invalid topic")
		return 0
	}
	if p.env != nil && p.env.Bus != nil {
		p.env.Bus.Emit(t, fromLua(L.Get(2)), "lua:"+p.Name())
	}
	return 0
}
