package rope

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// checkInvariants walks the tree and verifies cached summaries, equal leaf
// depth and fan-out limits.
func checkInvariants(t *testing.T, r Rope) {
	t.Helper()
	if r.root == nil {
		return
	}
	var visit func(n *node, depth int) (Summary, int)
	visit = func(n *node, depth int) (Summary, int) {
		if n.isLeaf() {
			if n.height != 0 {
				t.Fatalf("leaf has height %d", n.height)
			}
			if len(n.text) > MaxLeafBytes {
				t.Errorf("leaf holds %d bytes, max %d", len(n.text), MaxLeafBytes)
			}
			if !utf8.ValidString(n.text) {
				t.Errorf("leaf splits a code point: %q", n.text)
			}
			if got := Summarize(n.text); got != n.sum {
				t.Errorf("leaf summary = %+v, want %+v", n.sum, got)
			}
			return n.sum, depth
		}
		if len(n.children) == 0 || len(n.children) > MaxChildren {
			t.Errorf("internal node has %d children", len(n.children))
		}
		var sum Summary
		leafDepth := -1
		for _, c := range n.children {
			if c.height != n.height-1 {
				t.Errorf("child height %d under parent height %d", c.height, n.height)
			}
			s, d := visit(c, depth+1)
			sum = sum.Add(s)
			if leafDepth == -1 {
				leafDepth = d
			} else if d != leafDepth {
				t.Errorf("leaves at depths %d and %d", leafDepth, d)
			}
		}
		if sum != n.sum {
			t.Errorf("internal summary = %+v, want %+v", n.sum, sum)
		}
		return sum, leafDepth
	}
	visit(r.root, 0)
}

func TestNew(t *testing.T) {
	r := New()
	if r.Len() != 0 {
		t.Errorf("expected length 0, got %d", r.Len())
	}
	if !r.IsEmpty() {
		t.Error("new rope should be empty")
	}
	if r.String() != "" {
		t.Errorf("expected empty string, got %q", r.String())
	}
	if r.LineCount() != 1 {
		t.Errorf("expected 1 line, got %d", r.LineCount())
	}
}

func TestFromString(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"single char", "a"},
		{"with newline", "hello\nworld"},
		{"unicode", "héllo 世界 🌍"},
		{"long", strings.Repeat("abcdefghij", 100)},
		{"very long", strings.Repeat("x", 50000)},
		{"long unicode", strings.Repeat("日本語\n", 4000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := FromString(tt.input)
			if r.String() != tt.input {
				t.Errorf("String() mismatch for %d-byte input", len(tt.input))
			}
			if r.Len() != len(tt.input) {
				t.Errorf("Len() = %d, want %d", r.Len(), len(tt.input))
			}
			if r.RuneCount() != utf8.RuneCountInString(tt.input) {
				t.Errorf("RuneCount() = %d, want %d", r.RuneCount(), utf8.RuneCountInString(tt.input))
			}
			if want := strings.Count(tt.input, "\n") + 1; r.LineCount() != want {
				t.Errorf("LineCount() = %d, want %d", r.LineCount(), want)
			}
			checkInvariants(t, r)
		})
	}
}

func TestInsert(t *testing.T) {
	tests := []struct {
		name     string
		initial  string
		offset   int
		text     string
		expected string
	}{
		{"into empty", "", 0, "hello", "hello"},
		{"at start", "world", 0, "hello ", "hello world"},
		{"at end", "hello", 5, " world", "hello world"},
		{"in middle", "helo", 3, "l", "hello"},
		{"empty text", "hello", 2, "", "hello"},
		{"newline", "ab", 1, "\n", "a\nb"},
		{"past end clamps", "ab", 10, "c", "abc"},
		{"negative clamps", "ab", -3, "c", "cab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := FromString(tt.initial)
			got := r.Insert(tt.offset, tt.text)
			if got.String() != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got.String())
			}
			if r.String() != tt.initial {
				t.Errorf("original rope changed to %q", r.String())
			}
			checkInvariants(t, got)
		})
	}
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name       string
		initial    string
		start, end int
		expected   string
	}{
		{"all", "hello", 0, 5, ""},
		{"prefix", "hello world", 0, 6, "world"},
		{"suffix", "hello world", 5, 11, "hello"},
		{"middle", "hello", 1, 4, "ho"},
		{"empty range", "hello", 2, 2, "hello"},
		{"reversed range", "hello", 4, 2, "hello"},
		{"clamped", "hello", 3, 100, "hel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := FromString(tt.initial)
			got := r.Delete(tt.start, tt.end)
			if got.String() != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got.String())
			}
			if r.String() != tt.initial {
				t.Errorf("original rope changed to %q", r.String())
			}
			checkInvariants(t, got)
		})
	}
}

func TestLargeEditsStayBalanced(t *testing.T) {
	line := "the quick brown fox jumps over the lazy dog\n"
	r := New()
	var ref strings.Builder
	for i := 0; i < 5000; i++ {
		r = r.Insert(r.Len(), line)
		ref.WriteString(line)
	}
	if r.String() != ref.String() {
		t.Fatal("appended content mismatch")
	}
	checkInvariants(t, r)
	if r.Height() > 5 {
		t.Errorf("height %d too large for %d bytes", r.Height(), r.Len())
	}

	// Delete most of the middle and make sure the tree shrinks.
	r = r.Delete(len(line), r.Len()-len(line))
	if r.String() != line+line {
		t.Errorf("expected two lines, got %q", r.String())
	}
	checkInvariants(t, r)
	if r.Height() > 2 {
		t.Errorf("height %d after shrinking to %d bytes", r.Height(), r.Len())
	}
}

func TestSlice(t *testing.T) {
	text := strings.Repeat("0123456789", 500)
	r := FromString(text)
	tests := []struct {
		start, end int
	}{
		{0, 0}, {0, 10}, {5, 15}, {1000, 3000}, {4990, 5000}, {0, 5000}, {767, 769},
	}
	for _, tt := range tests {
		if got, want := r.Slice(tt.start, tt.end), text[tt.start:tt.end]; got != want {
			t.Errorf("Slice(%d, %d) = %q, want %q", tt.start, tt.end, got, want)
		}
	}
	if got := r.Slice(4995, 9000); got != "56789" {
		t.Errorf("expected clamped slice, got %q", got)
	}
}

func TestLineLookups(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 3000; i++ {
		sb.WriteString(strings.Repeat("ab", i%40))
		sb.WriteByte('\n')
	}
	text := sb.String()
	r := FromString(text)

	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	if r.LineCount() != len(starts) {
		t.Fatalf("LineCount() = %d, want %d", r.LineCount(), len(starts))
	}
	for line, want := range starts {
		if got := r.LineStart(line); got != want {
			t.Fatalf("LineStart(%d) = %d, want %d", line, got, want)
		}
		if got := r.LineOfOffset(want); got != line {
			t.Fatalf("LineOfOffset(%d) = %d, want %d", want, got, line)
		}
	}
	if got := r.LineStart(len(starts) + 5); got != r.Len() {
		t.Errorf("LineStart past end = %d, want %d", got, r.Len())
	}
	if got := r.LineEnd(0); got != 0 {
		t.Errorf("LineEnd(0) = %d, want 0", got)
	}
	if got := r.LineEnd(2); got != starts[3]-1 {
		t.Errorf("LineEnd(2) = %d, want %d", got, starts[3]-1)
	}
	if got := r.LineOfOffset(starts[5] - 1); got != 4 {
		t.Errorf("offset of newline should belong to line 4, got %d", got)
	}
}

func TestRunesBeforeAndBoundaries(t *testing.T) {
	text := strings.Repeat("aé世🌍\n", 500)
	r := FromString(text)
	for i := 0; i <= len(text); i++ {
		want := utf8.RuneCountInString(text[:i])
		if i < len(text) && !utf8.RuneStart(text[i]) {
			if r.IsCharBoundary(i) {
				t.Fatalf("offset %d should not be a boundary", i)
			}
			continue
		}
		if !r.IsCharBoundary(i) {
			t.Fatalf("offset %d should be a boundary", i)
		}
		if got := r.RunesBefore(i); got != want {
			t.Fatalf("RunesBefore(%d) = %d, want %d", i, got, want)
		}
	}
	if r.IsCharBoundary(-1) || r.IsCharBoundary(len(text)+1) {
		t.Error("offsets outside the rope are not boundaries")
	}
}

func TestByteAt(t *testing.T) {
	r := FromString("abc")
	if b, ok := r.ByteAt(1); !ok || b != 'b' {
		t.Errorf("expected 'b', got %q ok=%v", b, ok)
	}
	if _, ok := r.ByteAt(3); ok {
		t.Error("expected ByteAt(Len) to fail")
	}
}

func TestChunks(t *testing.T) {
	text := strings.Repeat("x", 10000)
	r := FromString(text)
	var sb strings.Builder
	count := 0
	r.Chunks(func(c string) bool {
		sb.WriteString(c)
		count++
		return true
	})
	if sb.String() != text {
		t.Error("chunks do not reassemble the text")
	}
	if count < 2 {
		t.Errorf("expected several chunks, got %d", count)
	}

	seen := 0
	r.Chunks(func(string) bool {
		seen++
		return false
	})
	if seen != 1 {
		t.Errorf("expected iteration to stop after 1 chunk, got %d", seen)
	}
}

func TestEqual(t *testing.T) {
	a := FromString("hello world")
	b := FromString("hello").Insert(5, " world")
	if !a.Equal(b) {
		t.Error("expected ropes to be equal")
	}
	if a.Equal(FromString("hello")) {
		t.Error("expected ropes to differ")
	}
}

func TestReplace(t *testing.T) {
	r := FromString("hello world")
	got := r.Replace(6, 11, "gophers")
	if got.String() != "hello gophers" {
		t.Errorf("expected %q, got %q", "hello gophers", got.String())
	}
}
