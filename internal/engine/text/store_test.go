package text

import (
	"errors"
	"strings"
	"testing"
)

func mustStore(t *testing.T, s string) *Store {
	t.Helper()
	st, err := NewStoreFromString(s)
	if err != nil {
		t.Fatalf("NewStoreFromString: %v", err)
	}
	return st
}

func TestStoreRead(t *testing.T) {
	st := mustStore(t, "héllo\nwörld")

	tests := []struct {
		name    string
		r       Range
		want    string
		wantErr error
	}{
		{"whole", Span(0, st.LenBytes()), "héllo\nwörld", nil},
		{"empty", Span(3, 3), "", nil},
		{"first line", Span(0, 6), "héllo", nil},
		{"past end", Span(5, 100), "", ErrOutOfBounds},
		{"negative", Span(-1, 2), "", ErrOutOfBounds},
		{"inverted", Span(4, 2), "", ErrOutOfBounds},
		{"splits code point", Span(0, 2), "", ErrOutOfBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := st.Read(tt.r)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestStoreInsert(t *testing.T) {
	tests := []struct {
		name    string
		initial string
		offset  int
		content string
		want    string
		wantErr error
	}{
		{"into empty", "", 0, "hello", "hello", nil},
		{"at end", "hello", 5, " world", "hello world", nil},
		{"middle", "hllo", 1, "e", "hello", nil},
		{"past end", "abc", 4, "x", "abc", ErrOutOfBounds},
		{"negative", "abc", -1, "x", "abc", ErrOutOfBounds},
		{"mid code point", "é", 1, "x", "é", ErrInvalidOffset},
		{"invalid utf8", "abc", 1, "\xff", "abc", ErrInvalidUTF8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := mustStore(t, tt.initial)
			err := st.Insert(tt.offset, tt.content)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if st.String() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, st.String())
			}
		})
	}
}

func TestStoreDelete(t *testing.T) {
	st := mustStore(t, "0123456789")

	removed, err := st.Delete(Span(2, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != "234" {
		t.Errorf("expected removed %q, got %q", "234", removed)
	}
	if st.String() != "0156789" {
		t.Errorf("expected %q, got %q", "0156789", st.String())
	}

	_, err = st.Delete(Span(5, 20))
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	var re *RangeError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RangeError, got %T", err)
	}
	if re.Op != "delete" || re.Len != 7 {
		t.Errorf("unexpected error details: %+v", re)
	}
	if st.String() != "0156789" {
		t.Errorf("failed delete changed content to %q", st.String())
	}
}

func TestStoreReplace(t *testing.T) {
	st := mustStore(t, "hello world")
	removed, err := st.Replace(Span(6, 11), "there")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != "world" || st.String() != "hello there" {
		t.Errorf("got removed=%q content=%q", removed, st.String())
	}
}

func TestSnapshotIsImmutable(t *testing.T) {
	st := mustStore(t, "abc")
	snap := st.Snapshot()
	if err := st.Insert(3, "def"); err != nil {
		t.Fatal(err)
	}
	if snap.String() != "abc" {
		t.Errorf("snapshot changed to %q", snap.String())
	}
	if st.String() != "abcdef" {
		t.Errorf("expected %q, got %q", "abcdef", st.String())
	}
	st.Reset(snap)
	if st.String() != "abc" {
		t.Errorf("reset failed: %q", st.String())
	}
}

func TestLineQueries(t *testing.T) {
	st := mustStore(t, "one\ntwö\n\nfour")

	if st.LineCount() != 4 {
		t.Fatalf("expected 4 lines, got %d", st.LineCount())
	}

	ranges := []Range{Span(0, 3), Span(4, 8), Span(9, 9), Span(10, 14)}
	for i, want := range ranges {
		got, err := st.LineRange(i)
		if err != nil {
			t.Fatalf("LineRange(%d): %v", i, err)
		}
		if got != want {
			t.Errorf("LineRange(%d) = %v, want %v", i, got, want)
		}
	}
	if _, err := st.LineRange(4); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got %v", err)
	}

	tests := []struct {
		offset int
		want   LineCol
	}{
		{0, LineCol{0, 0, 0}},
		{3, LineCol{0, 3, 3}},
		{4, LineCol{1, 0, 0}},
		{6, LineCol{1, 2, 2}},
		{8, LineCol{1, 4, 3}},
		{9, LineCol{2, 0, 0}},
		{14, LineCol{3, 4, 4}},
	}
	for _, tt := range tests {
		got, err := st.OffsetToLineCol(tt.offset)
		if err != nil {
			t.Fatalf("OffsetToLineCol(%d): %v", tt.offset, err)
		}
		if got != tt.want {
			t.Errorf("OffsetToLineCol(%d) = %+v, want %+v", tt.offset, got, tt.want)
		}
		back, err := st.LineColToOffset(got.Line, got.Col)
		if err != nil || back != tt.offset {
			t.Errorf("LineColToOffset(%d, %d) = %d, %v; want %d", got.Line, got.Col, back, err, tt.offset)
		}
	}

	if _, err := st.OffsetToLineCol(7); !errors.Is(err, ErrInvalidOffset) {
		t.Errorf("expected ErrInvalidOffset inside ö, got %v", err)
	}
	if _, err := st.LineColToOffset(0, 4); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("column on the newline should be out of bounds, got %v", err)
	}
	if _, err := st.LineColToOffset(1, 3); !errors.Is(err, ErrInvalidOffset) {
		t.Errorf("expected ErrInvalidOffset, got %v", err)
	}
	if off, _ := st.CharToOffset(1, 3); off != 8 {
		t.Errorf("CharToOffset(1, 3) = %d, want 8", off)
	}
	if off, _ := st.CharToOffset(1, 99); off != 8 {
		t.Errorf("CharToOffset clamps to line end, got %d", off)
	}
}

func TestLargeDocumentLineIndex(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 20000; i++ {
		sb.WriteString("line ")
		sb.WriteString(strings.Repeat("x", i%17))
		sb.WriteByte('\n')
	}
	st := mustStore(t, sb.String())
	if st.LineCount() != 20001 {
		t.Fatalf("expected 20001 lines, got %d", st.LineCount())
	}

	// Insert a newline in the middle and confirm the index follows.
	mid, err := st.LineColToOffset(10000, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Insert(mid, "\n"); err != nil {
		t.Fatal(err)
	}
	if st.LineCount() != 20002 {
		t.Errorf("expected 20002 lines, got %d", st.LineCount())
	}
	text, _ := st.LineText(10001)
	if !strings.HasPrefix(text, "ne ") {
		t.Errorf("expected split line to start with %q, got %q", "ne ", text)
	}
}

func TestLenChars(t *testing.T) {
	st := mustStore(t, "aé世🌍")
	if st.LenBytes() != 10 {
		t.Errorf("expected 10 bytes, got %d", st.LenBytes())
	}
	if st.LenChars() != 4 {
		t.Errorf("expected 4 chars, got %d", st.LenChars())
	}
}

func TestRuneAtAndBefore(t *testing.T) {
	st := mustStore(t, "a世b")
	if r, n := st.RuneAt(1); r != '世' || n != 3 {
		t.Errorf("RuneAt(1) = %q, %d", r, n)
	}
	if r, n := st.RuneBefore(4); r != '世' || n != 3 {
		t.Errorf("RuneBefore(4) = %q, %d", r, n)
	}
	if _, n := st.RuneAt(5); n != 0 {
		t.Errorf("RuneAt past end should return size 0, got %d", n)
	}
}

func TestFind(t *testing.T) {
	st := mustStore(t, strings.Repeat("a", 3000)+"needle"+strings.Repeat("b", 10))
	if got := st.Find("needle", 0); got != 3000 {
		t.Errorf("expected 3000, got %d", got)
	}
	if got := st.Find("needle", 3001); got != -1 {
		t.Errorf("expected -1, got %d", got)
	}
}

func TestNewStoreRejectsInvalidUTF8(t *testing.T) {
	_, err := NewStoreFromString("ok\xffno")
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) || de.Offset != 2 {
		t.Errorf("expected offset 2, got %+v", de)
	}
}
