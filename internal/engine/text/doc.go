// Package text implements the document Text Store.
//
// A Store holds UTF-8 content in an immutable rope and answers offset,
// line and column queries against it. Every query method lives on
// Snapshot, which Store embeds, so the same code serves both the live
// store and the read-only views handed to observers.
//
// Offsets are byte offsets and must fall on UTF-8 boundaries. Lines are
// zero-based and separated by '\n'; a line's Range never includes its
// terminating newline. Columns in LineCol are byte columns relative to the
// line start, with the code point column reported alongside.
//
// Store is not safe for concurrent mutation; the engine serializes writers.
// Snapshots are immutable and may be shared freely between goroutines.
package text
