package text

import "github.com/rivo/uniseg"

// DefaultTabWidth is the tab stop used when callers pass a width <= 0.
const DefaultTabWidth = 4

// DisplayWidth returns the number of terminal cells r occupies when drawn
// from column 0. Grapheme clusters count once; East Asian wide clusters
// count two cells.
func (s Snapshot) DisplayWidth(r Range, tabWidth int) (int, error) {
	text, err := s.Read(r)
	if err != nil {
		return 0, err
	}
	return advance(0, text, tabWidth), nil
}

// DisplayColumn returns the screen column of offset within its line.
func (s Snapshot) DisplayColumn(offset, tabWidth int) (int, error) {
	if err := s.checkOffset("column", offset); err != nil {
		return 0, err
	}
	start := s.rope.LineStart(s.rope.LineOfOffset(offset))
	return advance(0, s.rope.Slice(start, offset), tabWidth), nil
}

// OffsetAtDisplayColumn returns the offset of the grapheme cluster that
// covers col on line, or the line end when the line is shorter.
func (s Snapshot) OffsetAtDisplayColumn(line, col, tabWidth int) (int, error) {
	r, err := s.LineRange(line)
	if err != nil {
		return 0, err
	}
	text := s.rope.Slice(r.Start, r.End)
	width := 0
	offset := 0
	state := -1
	for len(text) > 0 {
		var cluster string
		var w int
		cluster, text, w, state = uniseg.FirstGraphemeClusterInString(text, state)
		if cluster == "\t" {
			w = tabAdvance(width, tabWidth)
		}
		if width+w > col {
			break
		}
		width += w
		offset += len(cluster)
	}
	return r.Start + offset, nil
}

// GraphemeBefore returns the length in bytes of the grapheme cluster that
// ends at offset, or 0 at the start of the document.
func (s Snapshot) GraphemeBefore(offset int) int {
	if offset <= 0 || offset > s.rope.Len() {
		return 0
	}
	// Clusters rarely exceed a few code points; scan a bounded window.
	start := max(offset-64, 0)
	for start > 0 && !s.rope.IsCharBoundary(start) {
		start--
	}
	text := s.rope.Slice(start, offset)
	last := 0
	state := -1
	for len(text) > 0 {
		var cluster string
		cluster, text, _, state = uniseg.FirstGraphemeClusterInString(text, state)
		last = len(cluster)
	}
	return last
}

// GraphemeAfter returns the length in bytes of the grapheme cluster that
// starts at offset, or 0 at the end of the document.
func (s Snapshot) GraphemeAfter(offset int) int {
	if offset < 0 || offset >= s.rope.Len() {
		return 0
	}
	text := s.rope.Slice(offset, min(offset+64, s.rope.Len()))
	cluster, _, _, _ := uniseg.FirstGraphemeClusterInString(text, -1)
	return len(cluster)
}

// IsSingleGrapheme reports whether s is exactly one grapheme cluster.
func IsSingleGrapheme(s string) bool {
	if s == "" {
		return false
	}
	_, rest, _, _ := uniseg.FirstGraphemeClusterInString(s, -1)
	return rest == ""
}

func advance(col int, text string, tabWidth int) int {
	state := -1
	for len(text) > 0 {
		var cluster string
		var w int
		cluster, text, w, state = uniseg.FirstGraphemeClusterInString(text, state)
		switch cluster {
		case "\t":
			col += tabAdvance(col, tabWidth)
		case "\n", "\r\n":
			col = 0
		default:
			col += w
		}
	}
	return col
}

func tabAdvance(col, tabWidth int) int {
	if tabWidth <= 0 {
		tabWidth = DefaultTabWidth
	}
	return tabWidth - col%tabWidth
}
