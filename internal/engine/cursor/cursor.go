package cursor

import (
	"fmt"

	"github.com/dshills/quill/internal/engine/text"
)

// Cursor is an insertion point with an optional selection.
type Cursor struct {
	Position int
	Anchor   int
}

// At returns a cursor at offset with no selection.
func At(offset int) Cursor {
	return Cursor{Position: offset, Anchor: offset}
}

// Select returns a cursor selecting from anchor to position.
func Select(anchor, position int) Cursor {
	return Cursor{Position: position, Anchor: anchor}
}

// HasSelection reports whether the cursor selects any text.
func (c Cursor) HasSelection() bool {
	return c.Position != c.Anchor
}

// Start returns the lower of position and anchor.
func (c Cursor) Start() int {
	return min(c.Position, c.Anchor)
}

// End returns the higher of position and anchor.
func (c Cursor) End() int {
	return max(c.Position, c.Anchor)
}

// Range returns the selected range.
func (c Cursor) Range() text.Range {
	return text.Span(c.Start(), c.End())
}

// IsBackward reports whether the position precedes the anchor.
func (c Cursor) IsBackward() bool {
	return c.Position < c.Anchor
}

// MoveTo returns the cursor moved to offset with the selection dropped.
func (c Cursor) MoveTo(offset int) Cursor {
	return At(offset)
}

// ExtendTo returns the cursor with its position moved and anchor kept.
func (c Cursor) ExtendTo(offset int) Cursor {
	return Cursor{Position: offset, Anchor: c.Anchor}
}

// CollapseToPosition drops the selection, keeping the position.
func (c Cursor) CollapseToPosition() Cursor {
	return At(c.Position)
}

// CollapseToAnchor drops the selection, moving the position to the anchor.
func (c Cursor) CollapseToAnchor() Cursor {
	return At(c.Anchor)
}

// Remap returns the cursor after an edit replacing r with newLen bytes.
func (c Cursor) Remap(r text.Range, newLen int) Cursor {
	return Cursor{
		Position: RemapOffset(c.Position, r, newLen),
		Anchor:   RemapOffset(c.Anchor, r, newLen),
	}
}

func (c Cursor) String() string {
	if !c.HasSelection() {
		return fmt.Sprintf("Cursor(%d)", c.Position)
	}
	return fmt.Sprintf("Cursor(%d..%d)", c.Anchor, c.Position)
}

// Bounds is the part of a document needed to keep offsets valid.
type Bounds interface {
	LenBytes() int
	IsBoundary(offset int) bool
}

// Clamp limits offset to the document and moves it back to the nearest
// code point boundary.
func Clamp(b Bounds, offset int) int {
	offset = min(max(offset, 0), b.LenBytes())
	for offset > 0 && !b.IsBoundary(offset) {
		offset--
	}
	return offset
}
