package cursor

import "github.com/dshills/quill/internal/engine/text"

// RemapOffset returns offset after an edit that replaced r with newLen bytes.
//
// Rules:
//   - Pure insert at o: offsets >= o move right by newLen
//   - Offsets at or before r.Start are unchanged
//   - Offsets at or after r.End shift by the length delta
//   - Offsets strictly inside r collapse to r.Start
func RemapOffset(offset int, r text.Range, newLen int) int {
	if r.IsEmpty() {
		if offset >= r.Start {
			return offset + newLen
		}
		return offset
	}
	if offset <= r.Start {
		return offset
	}
	if offset >= r.End {
		return offset + newLen - r.Len()
	}
	return r.Start
}

// RemapRange remaps both ends of r2 after an edit replacing r with newLen
// bytes.
func RemapRange(r2, r text.Range, newLen int) text.Range {
	start := RemapOffset(r2.Start, r, newLen)
	end := RemapOffset(r2.End, r, newLen)
	if start > end {
		start, end = end, start
	}
	return text.Span(start, end)
}

// Delta returns the change in document length caused by replacing r with
// newLen bytes.
func Delta(r text.Range, newLen int) int {
	return newLen - r.Len()
}
