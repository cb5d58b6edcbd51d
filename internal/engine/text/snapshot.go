package text

import (
	"strings"
	"unicode/utf8"

	"github.com/dshills/quill/internal/engine/rope"
)

// Snapshot is an immutable view of document content.
// The zero value is an empty document.
type Snapshot struct {
	rope rope.Rope
}

// SnapshotOf returns a snapshot holding s. Invalid UTF-8 is rejected.
func SnapshotOf(s string) (Snapshot, error) {
	if !utf8.ValidString(s) {
		return Snapshot{}, &DecodeError{Encoding: UTF8, Offset: invalidAt(s)}
	}
	return Snapshot{rope: rope.FromString(s)}, nil
}

// LenBytes returns the content length in bytes.
func (s Snapshot) LenBytes() int {
	return s.rope.Len()
}

// LenChars returns the content length in code points.
func (s Snapshot) LenChars() int {
	return s.rope.RuneCount()
}

// LineCount returns the number of lines. Empty content has one line.
func (s Snapshot) LineCount() int {
	return s.rope.LineCount()
}

// String returns the full content.
func (s Snapshot) String() string {
	return s.rope.String()
}

// Bytes returns the full content as bytes.
func (s Snapshot) Bytes() []byte {
	b := make([]byte, 0, s.rope.Len())
	s.rope.Chunks(func(c string) bool {
		b = append(b, c...)
		return true
	})
	return b
}

// Equal reports whether both snapshots hold the same content.
func (s Snapshot) Equal(other Snapshot) bool {
	return s.rope.Equal(other.rope)
}

// Read returns the content in r.
func (s Snapshot) Read(r Range) (string, error) {
	if err := s.checkRange("read", r); err != nil {
		return "", err
	}
	return s.rope.Slice(r.Start, r.End), nil
}

// IsBoundary reports whether offset is inside the document and on a code
// point boundary.
func (s Snapshot) IsBoundary(offset int) bool {
	return s.rope.IsCharBoundary(offset)
}

// ByteAt returns the byte at offset.
func (s Snapshot) ByteAt(offset int) (byte, bool) {
	return s.rope.ByteAt(offset)
}

// RuneAt decodes the code point starting at offset. It returns
// utf8.RuneError and 0 outside the document.
func (s Snapshot) RuneAt(offset int) (rune, int) {
	if offset < 0 || offset >= s.rope.Len() {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(s.rope.Slice(offset, offset+utf8.UTFMax))
}

// RuneBefore decodes the code point ending at offset.
func (s Snapshot) RuneBefore(offset int) (rune, int) {
	if offset <= 0 || offset > s.rope.Len() {
		return utf8.RuneError, 0
	}
	return utf8.DecodeLastRuneInString(s.rope.Slice(offset-utf8.UTFMax, offset))
}

// LineRange returns the range of line, excluding its newline.
func (s Snapshot) LineRange(line int) (Range, error) {
	if line < 0 || line >= s.rope.LineCount() {
		return Range{}, &RangeError{Op: "line", Range: Point(line), Len: s.rope.LineCount(), Err: ErrOutOfBounds}
	}
	return Range{Start: s.rope.LineStart(line), End: s.rope.LineEnd(line)}, nil
}

// LineText returns the text of line without its newline.
func (s Snapshot) LineText(line int) (string, error) {
	r, err := s.LineRange(line)
	if err != nil {
		return "", err
	}
	return s.rope.Slice(r.Start, r.End), nil
}

// LineOf returns the line containing offset, clamped to the document.
func (s Snapshot) LineOf(offset int) int {
	return s.rope.LineOfOffset(offset)
}

// OffsetToLineCol converts a byte offset to a line and column.
func (s Snapshot) OffsetToLineCol(offset int) (LineCol, error) {
	if err := s.checkOffset("position", offset); err != nil {
		return LineCol{}, err
	}
	line := s.rope.LineOfOffset(offset)
	start := s.rope.LineStart(line)
	return LineCol{
		Line: line,
		Col:  offset - start,
		Char: s.rope.RunesBefore(offset) - s.rope.RunesBefore(start),
	}, nil
}

// LineColToOffset converts a line and byte column to an offset. The column
// may address the end of the line but not its newline or beyond.
func (s Snapshot) LineColToOffset(line, col int) (int, error) {
	r, err := s.LineRange(line)
	if err != nil {
		return 0, err
	}
	if col < 0 || col > r.Len() {
		return 0, &RangeError{Op: "column", Range: Point(col), Len: r.Len(), Err: ErrOutOfBounds}
	}
	offset := r.Start + col
	if !s.rope.IsCharBoundary(offset) {
		return 0, rangeErr("column", Point(offset), s.rope.Len(), ErrInvalidOffset)
	}
	return offset, nil
}

// CharToOffset converts a line and code point column to an offset,
// clamping the column to the line.
func (s Snapshot) CharToOffset(line, char int) (int, error) {
	r, err := s.LineRange(line)
	if err != nil {
		return 0, err
	}
	text := s.rope.Slice(r.Start, r.End)
	off := 0
	for i := 0; i < char && off < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[off:])
		off += size
	}
	return r.Start + off, nil
}

// Find returns the offset of the first occurrence of needle at or after
// from, or -1.
func (s Snapshot) Find(needle string, from int) int {
	if needle == "" || from < 0 || from > s.rope.Len() {
		return -1
	}
	// Chunks are bounded, but matches may straddle them, so search the
	// tail as one string.
	tail := s.rope.Slice(from, s.rope.Len())
	if i := strings.Index(tail, needle); i >= 0 {
		return from + i
	}
	return -1
}

func (s Snapshot) checkOffset(op string, offset int) error {
	n := s.rope.Len()
	if offset < 0 || offset > n {
		return rangeErr(op, Point(offset), n, ErrOutOfBounds)
	}
	if !s.rope.IsCharBoundary(offset) {
		return rangeErr(op, Point(offset), n, ErrInvalidOffset)
	}
	return nil
}

// checkRange validates r for reading or removal. A range that splits a
// code point is out of bounds.
func (s Snapshot) checkRange(op string, r Range) error {
	n := s.rope.Len()
	if r.Start < 0 || r.End < r.Start || r.End > n {
		return rangeErr(op, r, n, ErrOutOfBounds)
	}
	if !s.rope.IsCharBoundary(r.Start) || !s.rope.IsCharBoundary(r.End) {
		return rangeErr(op, r, n, ErrOutOfBounds)
	}
	return nil
}

func invalidAt(s string) int {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(s)
}
