// Package cursor provides the cursor and selection model.
//
// A Cursor is a (Position, Anchor) pair of byte offsets. Position is the
// insertion point; Anchor marks the other end of a selection. When the two
// are equal the cursor selects nothing. Selections keep their direction:
// Position may sit before or after Anchor.
//
// Multi-Cursor Support:
//
// A Set holds one or more cursors that are:
//   - Sorted by start offset
//   - Merged when their ranges overlap or they share a start offset
//   - Remapped together after every edit
//
// One cursor is the primary; it survives merges and is the one single-cursor
// commands act on.
//
// Edit Remapping:
//
// After an edit replacing [s, e) with n bytes, every offset (positions and
// anchors alike) is remapped independently:
//   - Pure insert at o (s == e): offsets >= o shift by n, others stay
//   - Offsets <= s stay, offsets >= e shift by n - (e - s)
//   - Offsets strictly inside (s, e) collapse to s
//
// Basic usage:
//
//	cs := cursor.NewSet(cursor.At(10))
//	cs.Add(cursor.At(50))
//	cs.ApplyEdit(text.Span(0, 0), 5)   // cursors now at 15 and 55
//
// Thread Safety:
//
// Cursor is an immutable value type. Set is not thread-safe; the engine
// guards it with the document lock.
package cursor
