// Package engine provides the buffer engine of the Quill editor.
//
// A Document combines a text store, a multi-cursor set, an undo history
// and a change notification channel behind one thread-safe API. Every
// mutation is a transaction: it is validated against the current content,
// applied, recorded in history, and announced to observers as exactly one
// ChangeEvent.
//
// # Sub-packages
//
//   - rope: immutable B+ tree rope with byte, code point and line metrics
//   - text: the text store, snapshots, ranges, encodings and display widths
//   - cursor: cursors, selections, multi-cursor sets and motions
//   - history: two-stack undo/redo with typing coalescing
//
// # Thread Safety
//
// A Document has a single writer. Edits, undo and redo hold the exclusive
// lock for one transaction; queries take the shared lock. A Snapshot is
// immutable and may be read from any goroutine without locking.
//
// # Basic Usage
//
//	doc := engine.New(engine.WithContent("hello"))
//	res, err := doc.Insert(5, " world")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Revision, doc.Text()) // 1 hello world
//
//	doc.Undo()
//	fmt.Println(doc.Text()) // hello
//
// # Change Notification
//
// Observers are called synchronously after the lock is released, in
// commit order:
//
//	sub := doc.Subscribe(engine.ObserverFunc(func(ev engine.ChangeEvent) {
//	    fmt.Println(ev.Cause, ev.Range, ev.NewLen)
//	}))
//	defer sub.Unsubscribe()
//
// An observer may edit the document. The resulting event is delivered
// after the current one has reached every observer.
package engine
