package rope

import (
	"strings"
	"unicode/utf8"
)

// Tree shape constants.
const (
	// MaxLeafBytes is the largest chunk a leaf may hold.
	MaxLeafBytes = 1024

	// TargetLeafBytes is the chunk size used when splitting long text.
	TargetLeafBytes = MaxLeafBytes * 3 / 4

	// MaxChildren is the fan-out limit of internal nodes.
	MaxChildren = 16
)

// node is either a leaf (children == nil) holding text, or an internal
// node holding children of equal height. Nodes are never mutated after
// construction.
type node struct {
	sum      Summary
	height   int
	text     string
	children []*node
}

func newLeaf(text string) *node {
	return &node{sum: Summarize(text), text: text}
}

func newInternal(children []*node) *node {
	n := &node{height: children[0].height + 1, children: children}
	for _, c := range children {
		n.sum = n.sum.Add(c.sum)
	}
	return n
}

func (n *node) isLeaf() bool {
	return n.children == nil
}

// splitText cuts s into leaf-sized chunks on UTF-8 boundaries,
// preferring to cut just after a newline.
func splitText(s string) []string {
	if len(s) <= MaxLeafBytes {
		return []string{s}
	}
	chunks := make([]string, 0, len(s)/TargetLeafBytes+1)
	for len(s) > MaxLeafBytes {
		cut := TargetLeafBytes
		if nl := strings.LastIndexByte(s[cut-TargetLeafBytes/4:cut], '\n'); nl >= 0 {
			cut = cut - TargetLeafBytes/4 + nl + 1
		} else {
			for cut > 0 && !utf8.RuneStart(s[cut]) {
				cut--
			}
		}
		chunks = append(chunks, s[:cut])
		s = s[cut:]
	}
	return append(chunks, s)
}

// group packs same-height nodes into parents of at most MaxChildren.
// Groups are sized evenly so no parent ends up with a single straggler.
func group(nodes []*node) []*node {
	if len(nodes) <= MaxChildren {
		return []*node{newInternal(nodes)}
	}
	count := (len(nodes) + MaxChildren - 1) / MaxChildren
	size := (len(nodes) + count - 1) / count
	parents := make([]*node, 0, count)
	for i := 0; i < len(nodes); i += size {
		end := min(i+size, len(nodes))
		kids := make([]*node, end-i)
		copy(kids, nodes[i:end])
		parents = append(parents, newInternal(kids))
	}
	return parents
}

// build turns a list of same-height nodes into a single root.
func build(nodes []*node) *node {
	for len(nodes) > 1 {
		nodes = group(nodes)
	}
	return nodes[0]
}

// insert returns the nodes that replace n after inserting s at offset.
// All returned nodes have n's height.
func (n *node) insert(offset int, s string) []*node {
	if n.isLeaf() {
		text := n.text[:offset] + s + n.text[offset:]
		parts := splitText(text)
		out := make([]*node, len(parts))
		for i, p := range parts {
			out[i] = newLeaf(p)
		}
		return out
	}

	idx, start := n.childAt(offset)
	repl := n.children[idx].insert(offset-start, s)

	kids := make([]*node, 0, len(n.children)+len(repl)-1)
	kids = append(kids, n.children[:idx]...)
	kids = append(kids, repl...)
	kids = append(kids, n.children[idx+1:]...)
	if len(kids) <= MaxChildren {
		return []*node{newInternal(kids)}
	}
	return group(kids)
}

// remove deletes [start, end) from n. It returns nil when nothing is left.
func (n *node) remove(start, end int) *node {
	if start <= 0 && end >= n.sum.Bytes {
		return nil
	}
	if n.isLeaf() {
		return newLeaf(n.text[:start] + n.text[end:])
	}

	kids := make([]*node, 0, len(n.children))
	pos := 0
	for _, c := range n.children {
		cEnd := pos + c.sum.Bytes
		if cEnd <= start || pos >= end {
			kids = append(kids, c)
		} else if r := c.remove(max(start-pos, 0), min(end, cEnd)-pos); r != nil {
			kids = append(kids, r)
		}
		pos = cEnd
	}
	if len(kids) == 0 {
		return nil
	}
	if kids[0].isLeaf() {
		kids = mergeLeaves(kids)
	}
	return newInternal(kids)
}

// mergeLeaves joins runs of adjacent small leaves so repeated deletes do
// not leave a trail of tiny chunks behind.
func mergeLeaves(leaves []*node) []*node {
	out := make([]*node, 0, len(leaves))
	for _, l := range leaves {
		if last := len(out) - 1; last >= 0 && out[last].sum.Bytes+l.sum.Bytes <= TargetLeafBytes {
			out[last] = newLeaf(out[last].text + l.text)
			continue
		}
		out = append(out, l)
	}
	return out
}

// childAt returns the index of the child containing offset and the
// absolute start offset of that child. An offset at a child boundary
// resolves to the earlier child so appends extend existing leaves.
func (n *node) childAt(offset int) (int, int) {
	pos := 0
	for i, c := range n.children {
		if offset <= pos+c.sum.Bytes {
			return i, pos
		}
		pos += c.sum.Bytes
	}
	last := len(n.children) - 1
	return last, pos - n.children[last].sum.Bytes
}

// appendRange writes the text in [start, end) to sb.
func (n *node) appendRange(sb *strings.Builder, start, end int) {
	if n.isLeaf() {
		sb.WriteString(n.text[start:end])
		return
	}
	pos := 0
	for _, c := range n.children {
		cEnd := pos + c.sum.Bytes
		if cEnd > start && pos < end {
			c.appendRange(sb, max(start-pos, 0), min(end, cEnd)-pos)
		}
		if cEnd >= end {
			return
		}
		pos = cEnd
	}
}

// walk calls fn with each leaf chunk in order until fn returns false.
func (n *node) walk(fn func(string) bool) bool {
	if n.isLeaf() {
		if n.text == "" {
			return true
		}
		return fn(n.text)
	}
	for _, c := range n.children {
		if !c.walk(fn) {
			return false
		}
	}
	return true
}
