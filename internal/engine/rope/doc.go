// Package rope provides an immutable B+ tree rope for document text.
//
// Leaves hold bounded UTF-8 chunks; internal nodes hold up to MaxChildren
// children and cache an aggregated Summary (bytes, runes, newlines) for
// their subtree. Every leaf sits at the same depth, so offset and line
// lookups descend one node per level and cost O(log n).
//
// Edits copy only the path from the root to the touched leaves. The
// original rope is never modified, which makes a Rope value a cheap,
// goroutine-safe snapshot:
//
//	r := rope.FromString("hello world")
//	r2 := r.Insert(5, ",")     // "hello, world"
//	r3 := r2.Delete(0, 7)      // "world"
//	_ = r.String()             // still "hello world"
//
// The rope does not validate its arguments beyond clamping; callers that
// need error reporting (out of range, split code points) use the text
// package, which wraps a Rope.
package rope
