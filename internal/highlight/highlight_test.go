package highlight

import (
	"slices"
	"strings"
	"testing"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/dshills/quill/internal/engine"
	"github.com/dshills/quill/internal/engine/text"
)

const goSource = "package main\n\n// greet says hi\nfunc greet() string {\n\treturn \"hi\"\n}\n"

func spanText(line string, s Span) string {
	return line[s.Start:s.End]
}

func findSpan(spans []Span, cat chroma.TokenType) (Span, bool) {
	for _, s := range spans {
		if s.Type.InCategory(cat) {
			return s, true
		}
	}
	return Span{}, false
}

func TestLanguageDetection(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"main.go", "Go"},
		{"notes.unknownext", lexers.Fallback.Config().Name},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			if got := New(tt.file, "").Language(); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestLineTokens(t *testing.T) {
	doc := engine.New(engine.WithContent(goSource))
	h := New("main.go", "monokai")
	snap := doc.Snapshot()

	line0, _ := snap.LineText(0)
	spans := h.Line(snap, 0)
	kw, ok := findSpan(spans, chroma.Keyword)
	if !ok || spanText(line0, kw) != "package" {
		t.Errorf("expected package keyword on line 0, got %v", spans)
	}

	line2, _ := snap.LineText(2)
	c, ok := findSpan(h.Line(snap, 2), chroma.Comment)
	if !ok || spanText(line2, c) != "// greet says hi" {
		t.Errorf("expected comment span on line 2, got %v", h.Line(snap, 2))
	}

	if len(h.Line(snap, 1)) != 0 {
		t.Errorf("blank line should have no spans, got %v", h.Line(snap, 1))
	}
	if h.Line(snap, 99) != nil {
		t.Error("out of range line should be nil")
	}
}

func TestSpansCoverLine(t *testing.T) {
	doc := engine.New(engine.WithContent(goSource))
	h := New("main.go", "")
	snap := doc.Snapshot()
	for i := 0; i < snap.LineCount(); i++ {
		line, _ := snap.LineText(i)
		end := 0
		for _, s := range h.Line(snap, i) {
			if s.Start != end {
				t.Fatalf("line %d: gap before %v", i, s)
			}
			end = s.End
		}
		if end != len(line) {
			t.Errorf("line %d: spans end at %d, line is %d bytes", i, end, len(line))
		}
	}
}

func TestInvalidateOnChange(t *testing.T) {
	doc := engine.New(engine.WithContent(goSource))
	h := New("main.go", "")
	h.SetLookahead(100)
	doc.Subscribe(h)

	h.Line(doc.Snapshot(), 0)
	if h.Cached() != doc.LineCount() {
		t.Fatalf("expected all %d lines cached, got %d", doc.LineCount(), h.Cached())
	}

	start, err := doc.LineColToOffset(4, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := doc.Insert(start, "// "); err != nil {
		t.Fatal(err)
	}
	if h.Cached() != 4 {
		t.Errorf("expected lines before the edit to stay cached, got %d", h.Cached())
	}

	snap := doc.Snapshot()
	line4, _ := snap.LineText(4)
	c, ok := findSpan(h.Line(snap, 4), chroma.Comment)
	if !ok || spanText(line4, c) != line4 {
		t.Errorf("expected the edited line to be a comment, got %v", h.Line(snap, 4))
	}
}

func TestLookaheadLimitsWork(t *testing.T) {
	content := ""
	for i := 0; i < 50; i++ {
		content += "x := 1\n"
	}
	doc := engine.New(engine.WithContent(content))
	h := New("a.go", "")
	h.SetLookahead(5)
	h.Line(doc.Snapshot(), 0)
	if got := h.Cached(); got != 6 {
		t.Errorf("expected 6 cached lines, got %d", got)
	}
	h.Line(doc.Snapshot(), 40)
	if got := h.Cached(); got != 46 {
		t.Errorf("expected 46 cached lines, got %d", got)
	}
}

func assignLines(n int, at map[int]string) string {
	var b strings.Builder
	for i := range n {
		if s, ok := at[i]; ok {
			b.WriteString(s)
		} else {
			b.WriteString("x := 1")
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func TestEditKeepsLinesBelow(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		edit      func(d *engine.Document) error
		editLine  int
		keptBelow int
		maxLexed  int
	}{
		{
			name:    "same line",
			content: assignLines(60, nil),
			edit: func(d *engine.Document) error {
				off, err := d.LineColToOffset(30, 0)
				if err == nil {
					_, err = d.Insert(off, "y")
				}
				return err
			},
			editLine:  30,
			keptBelow: 45,
			maxLexed:  3,
		},
		{
			name:    "inserted line",
			content: assignLines(60, nil),
			edit: func(d *engine.Document) error {
				off, err := d.LineColToOffset(30, 0)
				if err == nil {
					_, err = d.Insert(off, "z := 2\n")
				}
				return err
			},
			editLine:  30,
			keptBelow: 45,
			maxLexed:  4,
		},
		{
			name:    "deleted lines",
			content: assignLines(60, nil),
			edit: func(d *engine.Document) error {
				from, err := d.LineColToOffset(10, 0)
				if err != nil {
					return err
				}
				to, err := d.LineColToOffset(20, 0)
				if err != nil {
					return err
				}
				_, err = d.Delete(text.Span(from, to))
				return err
			},
			editLine:  10,
			keptBelow: 30,
			maxLexed:  3,
		},
		{
			name:    "comment opened across lines",
			content: assignLines(60, map[int]string{8: "x := 1 */"}),
			edit: func(d *engine.Document) error {
				off, err := d.LineColToOffset(5, 0)
				if err == nil {
					_, err = d.Insert(off, "/* ")
				}
				return err
			},
			editLine:  5,
			keptBelow: 30,
			maxLexed:  7,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := engine.New(engine.WithContent(tt.content))
			h := New("a.go", "")
			h.SetLookahead(100)
			doc.Subscribe(h)
			h.Line(doc.Snapshot(), 0)
			if h.Cached() != doc.LineCount() {
				t.Fatalf("expected all %d lines cached, got %d", doc.LineCount(), h.Cached())
			}

			if err := tt.edit(doc); err != nil {
				t.Fatal(err)
			}
			if got := h.Cached(); got != tt.editLine {
				t.Errorf("expected %d leading lines cached, got %d", tt.editLine, got)
			}
			if !h.lines[tt.keptBelow].ok {
				t.Errorf("expected line %d below the edit to keep its tokens", tt.keptBelow)
			}

			snap := doc.Snapshot()
			before := h.lexed
			h.Line(snap, tt.editLine)
			if got := h.lexed - before; got > tt.maxLexed {
				t.Errorf("expected at most %d lines lexed, got %d", tt.maxLexed, got)
			}
			if h.Cached() != snap.LineCount() {
				t.Errorf("expected the cache to rejoin the kept lines, got %d of %d", h.Cached(), snap.LineCount())
			}

			fresh := New("a.go", "")
			fresh.SetLookahead(snap.LineCount())
			for i := range snap.LineCount() {
				if got, want := h.Line(snap, i), fresh.Line(snap, i); !slices.Equal(got, want) {
					t.Fatalf("line %d: got %v, want %v", i, got, want)
				}
			}
		})
	}
}

func TestReloadInvalidatesAll(t *testing.T) {
	doc := engine.New(engine.WithContent(goSource))
	h := New("main.go", "")
	doc.Subscribe(h)
	h.Line(doc.Snapshot(), 0)
	if err := doc.Reload([]byte("package other\n"), "utf-8"); err != nil {
		t.Fatal(err)
	}
	if h.Cached() != 0 {
		t.Errorf("expected empty cache after reload, got %d", h.Cached())
	}
}

func TestSetTheme(t *testing.T) {
	h := New("main.go", "")
	h.SetTheme("monokai")
	if h.Style().Name != "monokai" {
		t.Errorf("expected monokai, got %s", h.Style().Name)
	}
}
