package input

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/quill/internal/engine"
	"github.com/dshills/quill/internal/engine/cursor"
	"github.com/dshills/quill/internal/engine/text"
	"github.com/dshills/quill/internal/event"
)

// ErrNoDocument is returned when the target has no active document.
var ErrNoDocument = errors.New("no active document")

// Target is what the handler edits and where it sends named commands.
type Target interface {
	// Document returns the active document, or nil.
	Document() *engine.Document
	// Execute runs a named command such as "write" or a plugin command.
	Execute(name string, args []string) error
}

// DefaultBindings are installed by New before user bindings.
var DefaultBindings = map[string]string{
	"ctrl+s": "write",
	"ctrl+q": "quit",
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithBus publishes mode changes and cursor moves.
func WithBus(b *event.Bus) Option {
	return func(h *Handler) { h.bus = b }
}

// WithStatus sets the status message sink.
func WithStatus(fn func(msg string)) Option {
	return func(h *Handler) { h.status = fn }
}

// WithIndent controls what the Tab key inserts.
func WithIndent(tabSize int, useSpaces bool) Option {
	return func(h *Handler) {
		if tabSize > 0 {
			h.tabSize = tabSize
		}
		h.useSpaces = useSpaces
	}
}

type binding struct {
	name string
	args []string
}

type register struct {
	text     string
	linewise bool
}

// Handler maps keys to edits. It is driven from the UI loop and is not
// safe for concurrent use.
type Handler struct {
	target    Target
	log       *slog.Logger
	bus       *event.Bus
	status    func(string)
	tabSize   int
	useSpaces bool

	bindings map[Key]binding

	mode    Mode
	prompt  rune
	cmdline []rune
	pending rune
	count   int
	reg     register
	search  string

	dragging bool
	dragFrom int
}

// New creates a handler in normal mode with the default bindings.
func New(target Target, opts ...Option) *Handler {
	h := &Handler{
		target:   target,
		log:      slog.Default(),
		tabSize:  4,
		bindings: map[Key]binding{},
	}
	for spec, cmd := range DefaultBindings {
		_ = h.Bind(spec, cmd)
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Bind maps a key to a command line such as "write" or "trim".
func (h *Handler) Bind(spec, command string) error {
	k, err := ParseKey(spec)
	if err != nil {
		return err
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		delete(h.bindings, k)
		return nil
	}
	h.bindings[k] = binding{name: fields[0], args: fields[1:]}
	return nil
}

// BindAll installs every binding and reports the ones that failed.
func (h *Handler) BindAll(bindings map[string]string) error {
	var errs []error
	for spec, cmd := range bindings {
		if err := h.Bind(spec, cmd); err != nil {
			errs = append(errs, fmt.Errorf("binding %q: %w", spec, err))
		}
	}
	return errors.Join(errs...)
}

// Binding returns the command bound to k.
func (h *Handler) Binding(k Key) (string, bool) {
	b, ok := h.bindings[k]
	if !ok {
		return "", false
	}
	return strings.Join(append([]string{b.name}, b.args...), " "), true
}

// Mode returns the current mode.
func (h *Handler) Mode() Mode { return h.mode }

// Prompt returns the command line being typed, including its ':' or '/'
// prefix, or "" outside command mode.
func (h *Handler) Prompt() string {
	if h.mode != ModeCommand {
		return ""
	}
	return string(h.prompt) + string(h.cmdline)
}

// Pending returns the count and operator typed so far in normal mode.
func (h *Handler) Pending() string {
	var b strings.Builder
	if h.count > 0 {
		b.WriteString(strconv.Itoa(h.count))
	}
	if h.pending != 0 {
		b.WriteRune(h.pending)
	}
	return b.String()
}

// Register returns the yank register.
func (h *Handler) Register() (s string, linewise bool) {
	return h.reg.text, h.reg.linewise
}

// SetIndent changes what the Tab key inserts.
func (h *Handler) SetIndent(tabSize int, useSpaces bool) {
	WithIndent(tabSize, useSpaces)(h)
}

// HandleEvent handles a terminal key event.
func (h *Handler) HandleEvent(ev *tcell.EventKey) error {
	return h.Handle(FromEvent(ev))
}

// Handle processes one key.
func (h *Handler) Handle(k Key) error {
	doc := h.target.Document()
	if doc == nil {
		return ErrNoDocument
	}
	if b, ok := h.bindings[k]; ok && h.bindable(k) {
		h.reset()
		return h.target.Execute(b.name, b.args)
	}

	switch h.mode {
	case ModeInsert:
		return h.insert(doc, k)
	case ModeVisual:
		return h.visual(doc, k)
	case ModeCommand:
		return h.command(doc, k)
	}
	return h.normal(doc, k)
}

// bindable reports whether a binding for k applies in the current mode.
// Plain characters type in insert mode and edit the command line.
func (h *Handler) bindable(k Key) bool {
	switch h.mode {
	case ModeCommand:
		return false
	case ModeInsert:
		return !k.IsChar()
	}
	return h.pending == 0
}

func (h *Handler) reset() {
	h.pending = 0
	h.count = 0
}

func (h *Handler) setMode(doc *engine.Document, m Mode) {
	if m == h.mode {
		return
	}
	from := h.mode
	h.mode = m
	doc.SetMode(m.String())
	h.log.Debug("mode changed", "from", from.String(), "to", m.String())
	if h.bus != nil {
		h.bus.Emit(event.TopicModeChanged, event.ModeChanged{DocID: doc.ID(), From: from.String(), To: m.String()}, "input")
	}
}

func (h *Handler) setStatus(format string, args ...any) {
	if h.status != nil {
		h.status(fmt.Sprintf(format, args...))
	}
}

func (h *Handler) move(doc *engine.Document, m cursor.Motion, extend bool, n int) {
	for range max(n, 1) {
		doc.Move(m, extend)
	}
	h.cursorMoved(doc)
}

func (h *Handler) cursorMoved(doc *engine.Document) {
	if h.bus != nil {
		h.bus.Emit(event.TopicCursorMoved, event.CursorMoved{DocID: doc.ID(), Cursors: doc.Cursors()}, "input")
	}
}

// specialMotion maps arrows and home/end, which work in every editing mode.
func specialMotion(k Key) (cursor.Motion, bool) {
	switch k.Code {
	case tcell.KeyLeft:
		return cursor.Left, true
	case tcell.KeyRight:
		return cursor.Right, true
	case tcell.KeyUp:
		return cursor.Up, true
	case tcell.KeyDown:
		return cursor.Down, true
	case tcell.KeyHome:
		return cursor.LineStart, true
	case tcell.KeyEnd:
		return cursor.LineEnd, true
	}
	return 0, false
}

var letterMotions = map[rune]cursor.Motion{
	'h': cursor.Left,
	'l': cursor.Right,
	'k': cursor.Up,
	'j': cursor.Down,
	'0': cursor.LineStart,
	'$': cursor.LineEnd,
	'w': cursor.WordForward,
	'b': cursor.WordBackward,
	'G': cursor.DocEnd,
}

func motionOf(k Key) (cursor.Motion, bool) {
	if m, ok := specialMotion(k); ok {
		return m, true
	}
	if !k.IsChar() {
		return 0, false
	}
	m, ok := letterMotions[k.Rune]
	return m, ok
}

// ============================================================================
// Normal mode
// ============================================================================

func (h *Handler) normal(doc *engine.Document, k Key) error {
	if k.Code == tcell.KeyEscape {
		h.reset()
		return nil
	}
	if h.pending != 0 {
		op := h.pending
		h.pending = 0
		return h.operator(doc, op, k)
	}
	if k.IsChar() && unicode.IsDigit(k.Rune) && (k.Rune != '0' || h.count > 0) {
		h.count = h.count*10 + int(k.Rune-'0')
		return nil
	}

	n := max(h.count, 1)
	if h.page(doc, k, false, n) {
		h.count = 0
		return nil
	}
	if m, ok := motionOf(k); ok {
		h.count = 0
		h.move(doc, m, false, n)
		return nil
	}

	switch k {
	case Ctrl('r'):
		h.count = 0
		return repeat(n, func() error { _, err := doc.Redo(); return err })
	case Special(tcell.KeyDelete, 0):
		h.count = 0
		return repeat(n, func() error { _, err := doc.DeleteForward(); return err })
	}
	if !k.IsChar() {
		h.count = 0
		return nil
	}

	switch k.Rune {
	case 'd', 'y', 'g':
		h.pending = k.Rune
		return nil
	}
	h.count = 0

	switch k.Rune {
	case 'i':
		h.setMode(doc, ModeInsert)
	case 'a':
		if !atLineEnd(doc) {
			doc.Move(cursor.Right, false)
		}
		h.setMode(doc, ModeInsert)
	case 'A':
		doc.Move(cursor.LineEnd, false)
		h.setMode(doc, ModeInsert)
	case 'I':
		doc.Move(cursor.LineStart, false)
		h.setMode(doc, ModeInsert)
	case 'o':
		doc.Move(cursor.LineEnd, false)
		h.setMode(doc, ModeInsert)
		_, err := doc.InsertAtCursors("\n")
		return err
	case 'O':
		doc.Move(cursor.LineStart, false)
		h.setMode(doc, ModeInsert)
		if _, err := doc.InsertAtCursors("\n"); err != nil {
			return err
		}
		doc.Move(cursor.Left, false)
	case 'x':
		return repeat(n, func() error { _, err := doc.DeleteForward(); return err })
	case 'p':
		return h.paste(doc)
	case 'u':
		return repeat(n, func() error { _, err := doc.Undo(); return err })
	case 'v':
		doc.CollapseToPosition()
		h.setMode(doc, ModeVisual)
	case 'n':
		return h.findNext(doc)
	case ':', '/':
		h.startPrompt(doc, k.Rune)
	}
	return nil
}

func repeat(n int, fn func() error) error {
	for range n {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

func atLineEnd(doc *engine.Document) bool {
	lc := doc.CursorLineCol()
	r, err := doc.LineRange(lc.Line)
	return err != nil || doc.Primary().Position >= r.End
}

// operator completes a two-key command: dd, yy, dw, d$, gg and so on.
func (h *Handler) operator(doc *engine.Document, op rune, k Key) error {
	n := max(h.count, 1)
	h.count = 0

	if op == 'g' {
		if k == Rune('g') {
			h.move(doc, cursor.DocStart, false, 1)
		}
		return nil
	}
	if k == Rune(op) {
		return h.lines(doc, op == 'd', n)
	}
	m, ok := motionOf(k)
	if !ok {
		return nil
	}

	anchor := doc.Primary().Position
	doc.KeepPrimaryCursor()
	h.move(doc, m, true, n)
	h.reg = register{text: doc.SelectedText()}
	if op == 'd' {
		_, err := doc.DeleteSelections()
		return err
	}
	doc.MoveTo(anchor)
	return nil
}

// lines yanks, and with del deletes, n whole lines from the cursor's line.
func (h *Handler) lines(doc *engine.Document, del bool, n int) error {
	first := doc.CursorLineCol().Line
	last := min(first+n-1, doc.LineCount()-1)
	start, err := doc.LineRange(first)
	if err != nil {
		return err
	}
	end, err := doc.LineRange(last)
	if err != nil {
		return err
	}

	body, err := doc.Read(text.Span(start.Start, end.End))
	if err != nil {
		return err
	}
	h.reg = register{text: body + "\n", linewise: true}
	if !del {
		return nil
	}

	// Take the newline after the block, or before it on the last line.
	from, to := start.Start, end.End
	switch {
	case last+1 < doc.LineCount():
		to++
	case from > 0:
		from--
	}
	if _, err := doc.Delete(text.Span(from, to)); err != nil {
		return err
	}
	doc.Move(cursor.LineStart, false)
	return nil
}

func (h *Handler) paste(doc *engine.Document) error {
	if h.reg.text == "" {
		return nil
	}
	if !h.reg.linewise {
		if !atLineEnd(doc) {
			doc.Move(cursor.Right, false)
		}
		_, err := doc.InsertAtCursors(h.reg.text)
		return err
	}

	line := doc.CursorLineCol().Line
	if line+1 < doc.LineCount() {
		r, err := doc.LineRange(line + 1)
		if err != nil {
			return err
		}
		if _, err := doc.Insert(r.Start, h.reg.text); err != nil {
			return err
		}
		doc.MoveTo(r.Start)
		return nil
	}
	end := doc.LenBytes()
	if _, err := doc.Insert(end, "\n"+strings.TrimSuffix(h.reg.text, "\n")); err != nil {
		return err
	}
	doc.MoveTo(end + 1)
	return nil
}

// ============================================================================
// Insert mode
// ============================================================================

func (h *Handler) insert(doc *engine.Document, k Key) error {
	if h.page(doc, k, false, 1) {
		return nil
	}
	if m, ok := specialMotion(k); ok {
		h.move(doc, m, false, 1)
		return nil
	}
	var err error
	switch {
	case k.Code == tcell.KeyEscape:
		h.setMode(doc, ModeNormal)
	case k.Code == tcell.KeyEnter:
		_, err = doc.InsertAtCursors("\n")
	case k.Code == tcell.KeyTab:
		_, err = doc.InsertAtCursors(h.indent())
	case k.Code == tcell.KeyBackspace:
		_, err = doc.Backspace()
	case k.Code == tcell.KeyDelete:
		_, err = doc.DeleteForward()
	case k.IsChar():
		_, err = doc.InsertAtCursors(string(k.Rune))
	}
	return err
}

func (h *Handler) indent() string {
	if h.useSpaces {
		return strings.Repeat(" ", h.tabSize)
	}
	return "\t"
}

// ============================================================================
// Visual mode
// ============================================================================

func (h *Handler) visual(doc *engine.Document, k Key) error {
	if h.page(doc, k, true, 1) {
		return nil
	}
	if m, ok := motionOf(k); ok {
		h.move(doc, m, true, 1)
		return nil
	}
	switch {
	case k.Code == tcell.KeyEscape:
		doc.CollapseToPosition()
		h.setMode(doc, ModeNormal)
	case k == Rune('d'), k == Rune('x'), k.Code == tcell.KeyDelete:
		h.reg = register{text: doc.SelectedText()}
		h.setMode(doc, ModeNormal)
		_, err := doc.DeleteSelections()
		return err
	case k == Rune('y'):
		h.reg = register{text: doc.SelectedText()}
		doc.CollapseToAnchor()
		h.setMode(doc, ModeNormal)
	case k == Rune(':'):
		h.startPrompt(doc, ':')
	}
	return nil
}

// ============================================================================
// Command mode
// ============================================================================

func (h *Handler) startPrompt(doc *engine.Document, prompt rune) {
	h.prompt = prompt
	h.cmdline = h.cmdline[:0]
	h.setMode(doc, ModeCommand)
}

func (h *Handler) command(doc *engine.Document, k Key) error {
	switch {
	case k.Code == tcell.KeyEscape:
		h.cmdline = h.cmdline[:0]
		h.setMode(doc, ModeNormal)
	case k.Code == tcell.KeyBackspace:
		if len(h.cmdline) == 0 {
			h.setMode(doc, ModeNormal)
			return nil
		}
		h.cmdline = h.cmdline[:len(h.cmdline)-1]
	case k.Code == tcell.KeyEnter:
		line := strings.TrimSpace(string(h.cmdline))
		h.cmdline = h.cmdline[:0]
		doc.CollapseToPosition()
		h.setMode(doc, ModeNormal)
		if h.prompt == '/' {
			h.search = line
			return h.findNext(doc)
		}
		return h.execute(doc, line)
	case k.IsChar():
		h.cmdline = append(h.cmdline, k.Rune)
	}
	return nil
}

// execute runs a ':' line. A number jumps to that line, "%s/pat/repl/"
// replaces every regexp match, and anything else goes to the target.
func (h *Handler) execute(doc *engine.Document, line string) error {
	if line == "" {
		return nil
	}
	if n, err := strconv.Atoi(line); err == nil {
		target := min(max(n, 1), doc.LineCount()) - 1
		off, err := doc.LineColToOffset(target, 0)
		if err != nil {
			return err
		}
		doc.MoveTo(off)
		return nil
	}
	if rest, ok := strings.CutPrefix(line, "%s/"); ok {
		return h.substitute(doc, rest)
	}
	fields := strings.Fields(line)
	return h.target.Execute(fields[0], fields[1:])
}

func (h *Handler) substitute(doc *engine.Document, expr string) error {
	parts := strings.SplitN(expr, "/", 3)
	if len(parts) < 2 || parts[0] == "" {
		return errors.New("substitute: expected %s/pattern/replacement/")
	}
	n, _, err := doc.ReplaceAll(parts[0], parts[1], engine.FindOptions{Regexp: true})
	if err != nil {
		return err
	}
	h.setStatus("%d substitutions", n)
	return nil
}

func (h *Handler) findNext(doc *engine.Document) error {
	if h.search == "" {
		return nil
	}
	found, err := doc.FindNext(h.search, engine.FindOptions{})
	if err != nil {
		return err
	}
	if !found {
		h.setStatus("pattern not found: %s", h.search)
	}
	return nil
}
