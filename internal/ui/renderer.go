// Package ui draws documents on a terminal screen.
//
// The Renderer owns no editor state. Each Draw receives the document, its
// highlighter and the input state, and repaints the text area, the
// line-number gutter, the status bar and the command line.
package ui

import (
	"fmt"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"

	"github.com/dshills/quill/internal/config"
	"github.com/dshills/quill/internal/engine"
	"github.com/dshills/quill/internal/engine/text"
	"github.com/dshills/quill/internal/highlight"
)

// Options controls what the renderer draws.
type Options struct {
	ShowLineNumbers      bool
	HighlightCurrentLine bool
	ShowStatusBar        bool
	TabSize              int
	ScrollMargin         int
}

// OptionsFromConfig reads the display settings.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		ShowLineNumbers:      cfg.Editor.ShowLineNumbers,
		HighlightCurrentLine: cfg.Editor.HighlightCurrentLine,
		ShowStatusBar:        cfg.UI.ShowStatusBar,
		TabSize:              cfg.Editor.TabSize,
		ScrollMargin:         DefaultScrollMargin,
	}
}

// State is everything a frame shows besides the document text.
type State struct {
	Doc         *engine.Document
	Highlighter *highlight.Highlighter
	// Mode is the mode label, such as "NORMAL".
	Mode string
	// Prompt is the command line being typed. It takes the bottom row
	// over Message.
	Prompt  string
	Message string
}

// Renderer paints frames on a tcell screen.
type Renderer struct {
	mu     sync.Mutex
	screen tcell.Screen
	theme  *Theme
	opts   Options
	views  map[uuid.UUID]*Viewport
}

// New creates a renderer. The screen must already be initialized.
func New(screen tcell.Screen, theme *Theme, opts Options) *Renderer {
	if theme == nil {
		theme = NewTheme(nil)
	}
	return &Renderer{
		screen: screen,
		theme:  theme,
		opts:   opts,
		views:  map[uuid.UUID]*Viewport{},
	}
}

// SetOptions replaces the display options.
func (r *Renderer) SetOptions(opts Options) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opts = opts
}

// SetTheme replaces the theme.
func (r *Renderer) SetTheme(t *Theme) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.theme = t
}

// Viewport returns the scroll state kept for doc.
func (r *Renderer) Viewport(doc *engine.Document) *Viewport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewport(doc)
}

func (r *Renderer) viewport(doc *engine.Document) *Viewport {
	v, ok := r.views[doc.ID()]
	if !ok {
		v = &Viewport{Margin: r.opts.ScrollMargin}
		r.views[doc.ID()] = v
	}
	return v
}

// Forget drops the scroll state of a closed document.
func (r *Renderer) Forget(doc *engine.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.views, doc.ID())
}

// OffsetAt returns the offset of the character drawn at cell x, y for doc.
// Cells left of the text map to the line start, cells past a line's end
// to that end, and rows past the last line to the last line. It reports
// false for rows outside the text area.
func (r *Renderer) OffsetAt(doc *engine.Document, x, y int) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.viewport(doc)
	if y < 0 || y >= v.Height {
		return 0, false
	}
	snap := doc.Snapshot()
	line := min(v.Top+y, snap.LineCount()-1)
	col := v.Left + max(x-r.gutter(doc), 0)
	off, err := snap.OffsetAtDisplayColumn(line, col, r.tabSize(doc))
	if err != nil {
		return 0, false
	}
	return off, true
}

// Scroll moves doc's view by n lines and returns the line nearest to line
// that stays on screen.
func (r *Renderer) Scroll(doc *engine.Document, n, line int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.viewport(doc)
	if v.Height == 0 {
		w, h := r.screen.Size()
		v.Resize(w-r.gutter(doc), r.textHeight(h))
	}
	count := doc.LineCount()
	v.Scroll(n, count)
	return min(v.Fit(line), count-1)
}

func (r *Renderer) gutter(doc *engine.Document) int {
	if r.opts.ShowLineNumbers {
		return doc.LineNumberWidth()
	}
	return 0
}

// TextHeight returns the number of rows available for document lines.
func (r *Renderer) TextHeight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, h := r.screen.Size()
	return r.textHeight(h)
}

func (r *Renderer) textHeight(h int) int {
	rows := h - 1
	if r.opts.ShowStatusBar {
		rows--
	}
	return max(rows, 1)
}

// Draw paints one frame and shows it.
func (r *Renderer) Draw(st State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.screen
	w, h := s.Size()
	s.Fill(' ', r.theme.Text)
	if st.Doc == nil {
		r.drawBottom(st, w, h)
		s.HideCursor()
		s.Show()
		return
	}

	snap := st.Doc.Snapshot()
	tab := r.tabSize(st.Doc)
	primary := st.Doc.Primary()
	cur, _ := snap.OffsetToLineCol(primary.Position)
	col, _ := snap.DisplayColumn(primary.Position, tab)

	gutter := r.gutter(st.Doc)
	rows := r.textHeight(h)
	v := r.viewport(st.Doc)
	v.Margin = r.opts.ScrollMargin
	v.Resize(w-gutter, rows)
	v.Reveal(cur.Line, col)

	selections := make([]text.Range, 0, 1)
	for _, c := range st.Doc.Cursors() {
		if c.HasSelection() {
			selections = append(selections, c.Range())
		}
	}

	for row := range rows {
		line := v.Top + row
		if line >= snap.LineCount() {
			r.putString(0, row, "~", r.theme.Gutter, w)
			continue
		}
		current := line == cur.Line
		if current && r.opts.HighlightCurrentLine {
			r.fillRow(row, gutter, w, r.theme.CurrentLine)
		}
		if gutter > 0 {
			style := r.theme.Gutter
			if current {
				style = r.theme.GutterCurrent
			}
			r.putString(0, row, runewidth.FillLeft(strconv.Itoa(line+1), gutter-1)+" ", style, gutter)
		}
		r.drawLine(snap, st.Highlighter, line, row, gutter, v, tab, selections, current)
	}

	if r.opts.ShowStatusBar {
		r.drawStatus(st, cur, rows, w)
	}
	r.drawBottom(st, w, h)

	if st.Prompt != "" {
		s.ShowCursor(min(runewidth.StringWidth(st.Prompt), w-1), h-1)
	} else {
		s.ShowCursor(gutter+col-v.Left, cur.Line-v.Top)
	}
	if st.Mode == "INSERT" {
		s.SetCursorStyle(tcell.CursorStyleSteadyBar)
	} else {
		s.SetCursorStyle(tcell.CursorStyleSteadyBlock)
	}
	s.Show()
}

func (r *Renderer) tabSize(doc *engine.Document) int {
	if r.opts.TabSize > 0 {
		return r.opts.TabSize
	}
	return doc.TabWidth()
}

// drawLine paints one document line, clipped to the viewport.
func (r *Renderer) drawLine(snap text.Snapshot, hl *highlight.Highlighter, line, row, gutter int, v *Viewport, tab int, selections []text.Range, current bool) {
	lr, err := snap.LineRange(line)
	if err != nil {
		return
	}
	body, err := snap.Read(lr)
	if err != nil {
		return
	}
	var spans []highlight.Span
	if hl != nil {
		spans = hl.Line(snap, line)
	}

	base := r.theme.Text
	if current && r.opts.HighlightCurrentLine {
		base = r.theme.CurrentLine
	}

	col, off, si := 0, 0, 0
	state := -1
	for len(body) > 0 {
		var cluster string
		var width int
		cluster, body, width, state = uniseg.FirstGraphemeClusterInString(body, state)
		if cluster == "\r" {
			off += len(cluster)
			continue
		}

		style := base
		for si < len(spans) && spans[si].End <= off {
			si++
		}
		if si < len(spans) && spans[si].Start <= off {
			style = r.theme.Token(spans[si].Type)
			if current && r.opts.HighlightCurrentLine {
				_, bg, _ := r.theme.CurrentLine.Decompose()
				style = style.Background(bg)
			}
		}
		if selected(selections, lr.Start+off) {
			style = r.theme.Selection
		}

		if cluster == "\t" {
			width = tab - col%tab
			for i := range width {
				r.putCell(gutter+col+i-v.Left, row, " ", style, gutter, v)
			}
		} else {
			r.putCell(gutter+col-v.Left, row, cluster, style, gutter, v)
		}
		col += width
		off += len(cluster)
		if col-v.Left >= v.Width {
			break
		}
	}
}

func selected(ranges []text.Range, offset int) bool {
	for _, rg := range ranges {
		if offset >= rg.Start && offset < rg.End {
			return true
		}
	}
	return false
}

// putCell draws a grapheme cluster when x falls inside the text area.
func (r *Renderer) putCell(x, row int, cluster string, style tcell.Style, gutter int, v *Viewport) {
	if x < gutter || x >= gutter+v.Width {
		return
	}
	runes := []rune(cluster)
	r.screen.SetContent(x, row, runes[0], runes[1:], style)
}

// putString draws s from x, stopping at limit columns.
func (r *Renderer) putString(x, y int, s string, style tcell.Style, limit int) int {
	for _, ch := range s {
		cw := runewidth.RuneWidth(ch)
		if x+cw > limit {
			break
		}
		r.screen.SetContent(x, y, ch, nil, style)
		x += cw
	}
	return x
}

func (r *Renderer) fillRow(row, from, to int, style tcell.Style) {
	for x := from; x < to; x++ {
		r.screen.SetContent(x, row, ' ', nil, style)
	}
}

// drawStatus paints the mode, file name, flags and position.
func (r *Renderer) drawStatus(st State, cur text.LineCol, row, w int) {
	r.fillRow(row, 0, w, r.theme.Status)
	x := 0
	if st.Mode != "" {
		x = r.putString(x, row, " "+st.Mode+" ", r.theme.Mode(st.Mode), w)
	}

	doc := st.Doc
	name := "[No Name]"
	if p := doc.Path(); p != "" {
		name = filepath.Base(p)
	}
	if doc.IsModified() {
		name += " [+]"
	}
	if doc.IsReadOnly() {
		name += " [RO]"
	}

	meta := doc.Meta()
	right := fmt.Sprintf(" %s %s  %d:%d  %s ", meta.Encoding, meta.LineEnding, cur.Line+1, cur.Char+1, percent(cur.Line, doc.LineCount()))
	room := w - x - runewidth.StringWidth(right)
	if room > 1 {
		r.putString(x, row, " "+runewidth.Truncate(name, room-1, "…"), r.theme.Status, x+room)
	}
	r.putString(max(w-runewidth.StringWidth(right), x), row, right, r.theme.Status, w)
}

func percent(line, count int) string {
	switch {
	case count <= 1 || line == 0:
		return "Top"
	case line >= count-1:
		return "Bot"
	}
	return fmt.Sprintf("%d%%", line*100/(count-1))
}

func (r *Renderer) drawBottom(st State, w, h int) {
	msg := st.Message
	if st.Prompt != "" {
		msg = st.Prompt
	}
	r.putString(0, h-1, runewidth.Truncate(msg, w, ""), r.theme.Message, w)
}
