package input

import (
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/quill/internal/engine"
	"github.com/dshills/quill/internal/engine/cursor"
)

// ScrollLines is how far one wheel step scrolls.
const ScrollLines = 3

// defaultPage is the page size for targets without a View.
const defaultPage = 8

// View is implemented by targets that show documents on screen. Paging
// and mouse events need it.
type View interface {
	// PageHeight returns the number of text rows shown for doc.
	PageHeight(doc *engine.Document) int
	// OffsetAt returns the offset drawn at screen cell x, y.
	OffsetAt(doc *engine.Document, x, y int) (int, bool)
	// Scroll moves doc's view by n lines and returns the line nearest to
	// line that stays on screen.
	Scroll(doc *engine.Document, n, line int) int
}

// HandleMouse handles a terminal mouse event. Pressing the left button
// places the cursor, moving with it held selects, and the wheel scrolls.
// Mouse events are ignored on the command line.
func (h *Handler) HandleMouse(ev *tcell.EventMouse) error {
	doc := h.target.Document()
	if doc == nil {
		return ErrNoDocument
	}
	view, ok := h.target.(View)
	if !ok || h.mode == ModeCommand {
		h.dragging = false
		return nil
	}

	buttons := ev.Buttons()
	switch {
	case buttons&tcell.WheelUp != 0:
		h.scroll(doc, view, -ScrollLines)
	case buttons&tcell.WheelDown != 0:
		h.scroll(doc, view, ScrollLines)
	case buttons&tcell.Button1 != 0:
		x, y := ev.Position()
		if off, ok := view.OffsetAt(doc, x, y); ok {
			h.point(doc, off)
		}
	default:
		h.dragging = false
	}
	return nil
}

// point handles the left button at off: the first event of a press moves
// the cursor there, later ones select from the press point.
func (h *Handler) point(doc *engine.Document, off int) {
	if !h.dragging {
		h.dragging = true
		h.dragFrom = off
		h.reset()
		if h.mode == ModeVisual {
			h.setMode(doc, ModeNormal)
		}
		doc.MoveTo(off)
		h.cursorMoved(doc)
		return
	}
	if off == h.dragFrom && !doc.HasSelection() {
		return
	}
	if h.mode == ModeNormal {
		h.setMode(doc, ModeVisual)
	}
	doc.ExtendTo(off)
	h.cursorMoved(doc)
}

// scroll moves the view by n lines and pulls the cursor along when it
// would leave the screen. In visual mode the selection follows.
func (h *Handler) scroll(doc *engine.Document, view View, n int) {
	line := doc.CursorLineCol().Line
	target := view.Scroll(doc, n, line)
	extend := h.mode == ModeVisual
	switch {
	case target > line:
		h.move(doc, cursor.Down, extend, target-line)
	case target < line:
		h.move(doc, cursor.Up, extend, line-target)
	}
}

// page handles PageUp and PageDown: the cursor moves count pages and the
// view scrolls with it. It reports whether k was a paging key.
func (h *Handler) page(doc *engine.Document, k Key, extend bool, count int) bool {
	m, sign := cursor.Up, -1
	switch k.Code {
	case tcell.KeyPgUp:
	case tcell.KeyPgDn:
		m, sign = cursor.Down, 1
	default:
		return false
	}
	n := h.pageSize(doc) * max(count, 1)
	h.move(doc, m, extend, n)
	if view, ok := h.target.(View); ok {
		h.scroll(doc, view, sign*n)
	}
	return true
}

// pageSize is the visible height less two lines of overlap.
func (h *Handler) pageSize(doc *engine.Document) int {
	view, ok := h.target.(View)
	if !ok {
		return defaultPage
	}
	height := view.PageHeight(doc)
	if height <= 0 {
		return defaultPage
	}
	return max(height-2, 1)
}
