package cursor

import (
	"slices"

	"github.com/dshills/quill/internal/engine/text"
)

// Set is an ordered, non-empty collection of non-overlapping cursors.
type Set struct {
	cursors []Cursor
	primary int

	// goals holds the sticky display column of each cursor while a run of
	// vertical motions is in progress; nil otherwise.
	goals []int
}

// State is a copy of a Set's cursors, used for history snapshots.
type State struct {
	Cursors []Cursor
	Primary int
}

// Positions returns the position of every cursor in the state.
func (st State) Positions() []int {
	out := make([]int, len(st.Cursors))
	for i, c := range st.Cursors {
		out[i] = c.Position
	}
	return out
}

// NewSet returns a set holding the given cursors, normalized. The first
// cursor is primary. With no cursors the set holds a single cursor at 0.
func NewSet(cursors ...Cursor) *Set {
	s := &Set{}
	s.Replace(cursors...)
	return s
}

// Len returns the number of cursors.
func (s *Set) Len() int {
	return len(s.cursors)
}

// IsMulti reports whether the set holds more than one cursor.
func (s *Set) IsMulti() bool {
	return len(s.cursors) > 1
}

// All returns a copy of the cursors in order.
func (s *Set) All() []Cursor {
	return slices.Clone(s.cursors)
}

// At returns the i-th cursor.
func (s *Set) At(i int) Cursor {
	return s.cursors[i]
}

// Primary returns the primary cursor.
func (s *Set) Primary() Cursor {
	return s.cursors[s.primary]
}

// PrimaryIndex returns the index of the primary cursor.
func (s *Set) PrimaryIndex() int {
	return s.primary
}

// HasSelection reports whether any cursor selects text.
func (s *Set) HasSelection() bool {
	for _, c := range s.cursors {
		if c.HasSelection() {
			return true
		}
	}
	return false
}

// State returns a copy of the set for later restoration.
func (s *Set) State() State {
	return State{Cursors: s.All(), Primary: s.primary}
}

// Restore replaces the set with a saved state.
func (s *Set) Restore(st State) {
	s.cursors = slices.Clone(st.Cursors)
	s.primary = st.Primary
	s.goals = nil
	if len(s.cursors) == 0 {
		s.cursors = []Cursor{At(0)}
	}
	if s.primary < 0 || s.primary >= len(s.cursors) {
		s.primary = 0
	}
}

// Replace discards all cursors and installs the given ones. The first
// becomes primary.
func (s *Set) Replace(cursors ...Cursor) {
	if len(cursors) == 0 {
		cursors = []Cursor{At(0)}
	}
	s.cursors = slices.Clone(cursors)
	s.primary = 0
	s.goals = nil
	s.normalize()
}

// Add adds a cursor and makes it primary.
func (s *Set) Add(c Cursor) {
	s.cursors = append(s.cursors, c)
	s.primary = len(s.cursors) - 1
	s.goals = nil
	s.normalize()
}

// KeepPrimary drops every cursor except the primary.
func (s *Set) KeepPrimary() {
	s.cursors = []Cursor{s.Primary()}
	s.primary = 0
	s.goals = nil
}

// MoveTo collapses the set to a single cursor at pos, clamped to b.
func (s *Set) MoveTo(b Bounds, pos int) {
	s.cursors = []Cursor{At(Clamp(b, pos))}
	s.primary = 0
	s.goals = nil
}

// ExtendTo collapses the set to the primary cursor and moves its position
// to pos, keeping its anchor.
func (s *Set) ExtendTo(b Bounds, pos int) {
	p := s.Primary()
	s.cursors = []Cursor{p.ExtendTo(Clamp(b, pos))}
	s.primary = 0
	s.goals = nil
}

// CollapseToPosition drops every selection, keeping positions.
func (s *Set) CollapseToPosition() {
	s.Map(Cursor.CollapseToPosition)
}

// CollapseToAnchor drops every selection, moving positions to anchors.
func (s *Set) CollapseToAnchor() {
	s.Map(Cursor.CollapseToAnchor)
}

// Map replaces every cursor with f(cursor) and renormalizes.
func (s *Set) Map(f func(Cursor) Cursor) {
	for i, c := range s.cursors {
		s.cursors[i] = f(c)
	}
	s.goals = nil
	s.normalize()
}

// ApplyEdit remaps every cursor after r was replaced with newLen bytes.
func (s *Set) ApplyEdit(r text.Range, newLen int) {
	for i, c := range s.cursors {
		s.cursors[i] = c.Remap(r, newLen)
	}
	s.goals = nil
	s.normalize()
}

// Clamp pulls every cursor back inside b.
func (s *Set) Clamp(b Bounds) {
	s.Map(func(c Cursor) Cursor {
		return Cursor{Position: Clamp(b, c.Position), Anchor: Clamp(b, c.Anchor)}
	})
}

// Ranges returns the selected range of every cursor in order.
func (s *Set) Ranges() []text.Range {
	out := make([]text.Range, len(s.cursors))
	for i, c := range s.cursors {
		out[i] = c.Range()
	}
	return out
}

// normalize sorts cursors by start and merges those that overlap or share
// a start offset. The merged cursor keeps the direction of the earlier
// one unless the earlier one selects nothing. The primary index follows
// its cursor through sorting and merging.
func (s *Set) normalize() {
	if len(s.cursors) < 2 {
		s.primary = 0
		return
	}
	type item struct {
		c       Cursor
		primary bool
	}
	items := make([]item, len(s.cursors))
	for i, c := range s.cursors {
		items[i] = item{c: c, primary: i == s.primary}
	}
	slices.SortStableFunc(items, func(a, b item) int {
		if d := a.c.Start() - b.c.Start(); d != 0 {
			return d
		}
		return a.c.End() - b.c.End()
	})

	out := items[:1]
	for _, it := range items[1:] {
		last := &out[len(out)-1]
		if it.c.Start() < last.c.End() || it.c.Start() == last.c.Start() {
			last.c = merge(last.c, it.c)
			last.primary = last.primary || it.primary
			continue
		}
		out = append(out, it)
	}

	s.cursors = s.cursors[:0]
	s.primary = 0
	for i, it := range out {
		s.cursors = append(s.cursors, it.c)
		if it.primary {
			s.primary = i
		}
	}
	if s.goals != nil && len(s.goals) != len(s.cursors) {
		s.goals = nil
	}
}

func merge(a, b Cursor) Cursor {
	start := min(a.Start(), b.Start())
	end := max(a.End(), b.End())
	dir := a
	if !a.HasSelection() {
		dir = b
	}
	if dir.IsBackward() {
		return Cursor{Position: start, Anchor: end}
	}
	return Cursor{Position: end, Anchor: start}
}
