package rope

import (
	"strings"
	"unicode/utf8"
)

// Rope is an immutable sequence of UTF-8 text.
// The zero value is an empty rope ready to use.
type Rope struct {
	root *node
}

// New returns an empty rope.
func New() Rope {
	return Rope{}
}

// FromString builds a balanced rope holding s.
func FromString(s string) Rope {
	if s == "" {
		return Rope{}
	}
	parts := splitText(s)
	leaves := make([]*node, len(parts))
	for i, p := range parts {
		leaves[i] = newLeaf(p)
	}
	return Rope{root: build(leaves)}
}

// Summary returns the metrics of the whole rope.
func (r Rope) Summary() Summary {
	if r.root == nil {
		return Summary{}
	}
	return r.root.sum
}

// Len returns the length in bytes.
func (r Rope) Len() int {
	return r.Summary().Bytes
}

// RuneCount returns the number of code points.
func (r Rope) RuneCount() int {
	return r.Summary().Runes
}

// LineCount returns the number of lines, which is one more than the
// number of newlines. An empty rope has one (empty) line.
func (r Rope) LineCount() int {
	return r.Summary().Newlines + 1
}

// IsEmpty reports whether the rope holds no text.
func (r Rope) IsEmpty() bool {
	return r.Len() == 0
}

// Height returns the number of levels in the tree. Useful for tests.
func (r Rope) Height() int {
	if r.root == nil {
		return 0
	}
	return r.root.height + 1
}

// String returns the full text.
func (r Rope) String() string {
	return r.Slice(0, r.Len())
}

// Slice returns the text in [start, end), clamped to the rope.
func (r Rope) Slice(start, end int) string {
	start, end = r.clamp(start, end)
	if start >= end {
		return ""
	}
	var sb strings.Builder
	sb.Grow(end - start)
	r.root.appendRange(&sb, start, end)
	return sb.String()
}

// Insert returns a rope with s inserted at offset (clamped).
// The caller is responsible for offset being a rune boundary.
func (r Rope) Insert(offset int, s string) Rope {
	if s == "" {
		return r
	}
	if r.root == nil {
		return FromString(s)
	}
	offset, _ = r.clamp(offset, offset)
	return Rope{root: build(r.root.insert(offset, s))}
}

// Delete returns a rope with [start, end) removed (clamped).
func (r Rope) Delete(start, end int) Rope {
	start, end = r.clamp(start, end)
	if start >= end {
		return r
	}
	root := r.root.remove(start, end)
	for root != nil && !root.isLeaf() && len(root.children) == 1 {
		root = root.children[0]
	}
	if root != nil && !root.isLeaf() && root.sum.Bytes <= MaxLeafBytes {
		var sb strings.Builder
		root.appendRange(&sb, 0, root.sum.Bytes)
		root = newLeaf(sb.String())
	}
	return Rope{root: root}
}

// Replace returns a rope with [start, end) replaced by s.
func (r Rope) Replace(start, end int, s string) Rope {
	return r.Delete(start, end).Insert(start, s)
}

// ByteAt returns the byte at offset.
func (r Rope) ByteAt(offset int) (byte, bool) {
	if offset < 0 || offset >= r.Len() {
		return 0, false
	}
	n := r.root
	for !n.isLeaf() {
		idx, start := n.childContaining(offset)
		n, offset = n.children[idx], offset-start
	}
	return n.text[offset], true
}

// IsCharBoundary reports whether offset falls between two code points.
// Both ends of the rope are boundaries; offsets outside it are not.
func (r Rope) IsCharBoundary(offset int) bool {
	if offset == 0 || offset == r.Len() {
		return true
	}
	b, ok := r.ByteAt(offset)
	return ok && utf8.RuneStart(b)
}

// LineOfOffset returns the zero-based line containing offset (clamped).
func (r Rope) LineOfOffset(offset int) int {
	offset, _ = r.clamp(offset, offset)
	if r.root == nil {
		return 0
	}
	line := 0
	n := r.root
	for !n.isLeaf() {
		idx, start := n.childContaining(offset)
		for _, c := range n.children[:idx] {
			line += c.sum.Newlines
		}
		n, offset = n.children[idx], offset-start
	}
	return line + countNewlines(n.text[:offset])
}

// LineStart returns the byte offset at which line begins.
// Lines beyond the last one map to Len().
func (r Rope) LineStart(line int) int {
	if line <= 0 || r.root == nil {
		return 0
	}
	if line >= r.LineCount() {
		return r.Len()
	}
	// Find the line-th newline; the line starts one byte after it.
	offset := 0
	n := r.root
	for !n.isLeaf() {
		for _, c := range n.children {
			if line <= c.sum.Newlines {
				n = c
				break
			}
			line -= c.sum.Newlines
			offset += c.sum.Bytes
		}
	}
	return offset + nthNewline(n.text, line) + 1
}

// LineEnd returns the offset of the newline ending line, or Len() for
// the last line.
func (r Rope) LineEnd(line int) int {
	if line+1 >= r.LineCount() {
		return r.Len()
	}
	return r.LineStart(line+1) - 1
}

// RunesBefore returns the number of code points in [0, offset).
func (r Rope) RunesBefore(offset int) int {
	offset, _ = r.clamp(offset, offset)
	if r.root == nil {
		return 0
	}
	runes := 0
	n := r.root
	for !n.isLeaf() {
		idx, start := n.childContaining(offset)
		for _, c := range n.children[:idx] {
			runes += c.sum.Runes
		}
		n, offset = n.children[idx], offset-start
	}
	return runes + utf8.RuneCountInString(n.text[:offset])
}

// Chunks calls fn with each stored chunk in order until fn returns false.
func (r Rope) Chunks(fn func(chunk string) bool) {
	if r.root != nil {
		r.root.walk(fn)
	}
}

// Equal reports whether two ropes hold the same text.
func (r Rope) Equal(other Rope) bool {
	if r.root == other.root {
		return true
	}
	if r.Summary() != other.Summary() {
		return false
	}
	return r.String() == other.String()
}

// childContaining is like childAt but resolves boundary offsets to the
// later child, which is what readers want.
func (n *node) childContaining(offset int) (int, int) {
	pos := 0
	for i, c := range n.children {
		if offset < pos+c.sum.Bytes {
			return i, pos
		}
		pos += c.sum.Bytes
	}
	last := len(n.children) - 1
	return last, pos - n.children[last].sum.Bytes
}

func (r Rope) clamp(start, end int) (int, int) {
	n := r.Len()
	start = min(max(start, 0), n)
	end = min(max(end, start), n)
	return start, end
}
