package text

import "fmt"

// Range is a half-open byte range [Start, End).
type Range struct {
	Start int
	End   int
}

// Span returns the range [start, end).
func Span(start, end int) Range {
	return Range{Start: start, End: end}
}

// Point returns the empty range at offset.
func Point(offset int) Range {
	return Range{Start: offset, End: offset}
}

func (r Range) String() string {
	return fmt.Sprintf("[%d:%d)", r.Start, r.End)
}

// Len returns the length of the range in bytes.
func (r Range) Len() int {
	return r.End - r.Start
}

// IsEmpty reports whether the range covers no bytes.
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// Contains reports whether offset lies within the range.
func (r Range) Contains(offset int) bool {
	return offset >= r.Start && offset < r.End
}

// Overlaps reports whether the two ranges share at least one byte.
func (r Range) Overlaps(other Range) bool {
	return r.Start < other.End && other.Start < r.End
}

// Union returns the smallest range covering both ranges.
func (r Range) Union(other Range) Range {
	return Range{Start: min(r.Start, other.Start), End: max(r.End, other.End)}
}

// LineCol is a (line, column) position. Col counts bytes from the start
// of the line; Char counts code points.
type LineCol struct {
	Line int
	Col  int
	Char int
}

func (lc LineCol) String() string {
	return fmt.Sprintf("%d:%d", lc.Line+1, lc.Char+1)
}
