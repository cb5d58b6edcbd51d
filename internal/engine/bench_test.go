package engine

import (
	"strings"
	"testing"

	"github.com/dshills/quill/internal/engine/cursor"
	"github.com/dshills/quill/internal/engine/text"
)

func largeDocument(lines int) *Document {
	var sb strings.Builder
	for i := range lines {
		sb.WriteString("line ")
		sb.WriteString(strings.Repeat("x", i%80))
		sb.WriteByte('\n')
	}
	return New(WithContent(sb.String()))
}

func BenchmarkTyping(b *testing.B) {
	d := largeDocument(100_000)
	d.MoveTo(d.LenBytes() / 2)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.InsertAtCursors("a")
	}
}

func BenchmarkApplyMiddle(b *testing.B) {
	d := largeDocument(100_000)
	mid := d.LenBytes() / 2
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Apply(Insert, text.Point(mid), "x")
		d.Checkpoint()
	}
}

func BenchmarkUndoRedo(b *testing.B) {
	d := largeDocument(10_000)
	d.Insert(0, "hello")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Undo()
		d.Redo()
	}
}

func BenchmarkMultiCursorInsert(b *testing.B) {
	d := largeDocument(10_000)
	cs := make([]cursor.Cursor, 0, 100)
	for i := range 100 {
		off, _ := d.LineColToOffset(i*100, 0)
		cs = append(cs, cursor.At(off))
	}
	d.SetCursors(cs...)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.InsertAtCursors("// ")
	}
}

func BenchmarkLineLookup(b *testing.B) {
	d := largeDocument(100_000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.LineRange(i % 100_000)
	}
}
