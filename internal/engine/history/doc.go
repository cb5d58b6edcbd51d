// Package history provides undo/redo history for the buffer engine.
//
// # Operations
//
// An Operation is one invertible edit: the pre-edit range it replaced, the
// text that range held, and the text put in its place. Invert returns the
// operation that restores the original content exactly.
//
// # Entries
//
// An Entry groups the operations of one transaction together with the
// cursor state before and after it. Undo applies the inverses of an
// entry's operations in reverse order and restores the cursors captured
// before; redo re-applies the operations in order and restores the cursors
// captured after.
//
// # Stacks
//
// History keeps two stacks. Committing a new transaction clears the redo
// stack; there is no undo tree.
//
//	h := history.New(history.WithMaxEntries(1000))
//	h.Commit(tx)
//	h.Undo(func(e *history.Entry) error { ... })
//
// # Coalescing
//
// Single-grapheme inserts and deletes that continue the previous one are
// folded into the open entry, so undo removes a typed word at once. The
// open entry stays open until the kind changes, the edit is not contiguous,
// the cursors moved in between, Checkpoint is called, an undo or redo runs,
// or the idle timeout expires.
//
// History is not safe for concurrent use; the engine serializes access.
package history
