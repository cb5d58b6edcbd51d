package text

import "testing"

func TestDisplayWidth(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"ascii", "hello", 5},
		{"wide", "世界", 4},
		{"combining", "e\u0301", 1},
		{"emoji zwj", "\U0001F469\u200D\U0001F4BB", 2},
		{"tab", "a\tb", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := mustStore(t, tt.text)
			got, err := st.DisplayWidth(Span(0, st.LenBytes()), 4)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("expected width %d, got %d", tt.want, got)
			}
		})
	}
}

func TestDisplayColumn(t *testing.T) {
	st := mustStore(t, "ab\n世界x")
	col, err := st.DisplayColumn(9, 4)
	if err != nil {
		t.Fatal(err)
	}
	if col != 4 {
		t.Errorf("expected column 4, got %d", col)
	}
	off, err := st.OffsetAtDisplayColumn(1, 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	if off != 6 {
		t.Errorf("column inside a wide char should snap to its start, got %d", off)
	}
	off, _ = st.OffsetAtDisplayColumn(1, 50, 4)
	if off != st.LenBytes() {
		t.Errorf("expected line end %d, got %d", st.LenBytes(), off)
	}
}

func TestGraphemes(t *testing.T) {
	st := mustStore(t, "ae\u0301b")
	if n := st.GraphemeBefore(4); n != 3 {
		t.Errorf("expected cluster of 3 bytes before offset 4, got %d", n)
	}
	if n := st.GraphemeAfter(1); n != 3 {
		t.Errorf("expected cluster of 3 bytes after offset 1, got %d", n)
	}
	if n := st.GraphemeBefore(0); n != 0 {
		t.Errorf("expected 0 at start, got %d", n)
	}

	if !IsSingleGrapheme("e\u0301") {
		t.Error("combining sequence is one grapheme")
	}
	if IsSingleGrapheme("ab") || IsSingleGrapheme("") {
		t.Error("expected false for multiple or zero graphemes")
	}
}
