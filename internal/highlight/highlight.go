// Package highlight assigns syntax token types to document lines.
//
// A Highlighter caches the tokens of each line. On a document change it
// drops only the edited lines; lines below keep their tokens, shifted to
// their new positions. Lexing resumes from the last line start before the
// first invalid line that no token crossed, and stops a short distance
// past the requested line or where its output meets cached lines that
// are still valid.
package highlight

import (
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/dshills/quill/internal/engine"
	"github.com/dshills/quill/internal/engine/text"
)

// DefaultLookahead is how many lines past a request are lexed and cached.
const DefaultLookahead = 200

// Span is a run of one token type within a line. Offsets are bytes from
// the start of the line.
type Span struct {
	Start int
	End   int
	Type  chroma.TokenType
}

// Highlighter tokenizes one document.
type Highlighter struct {
	mu        sync.Mutex
	lexer     chroma.Lexer
	style     *chroma.Style
	lines     []lineCache
	valid     int
	count     int
	lookahead int
	lexed     int
}

// lineCache holds the spans of one line. clean reports that no token
// crossed the line break before the line, which makes its start a point
// lexing can resume from. Entries past valid may still be ok: they are
// lines below an edit whose text did not change.
type lineCache struct {
	spans []Span
	clean bool
	ok    bool
}

// New returns a highlighter for a file name and theme. Unknown files fall
// back to plain text; unknown themes fall back to chroma's default style.
func New(filename, theme string) *Highlighter {
	lexer := lexers.Match(filename)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return &Highlighter{
		lexer:     lexer,
		style:     LookupStyle(theme),
		count:     -1,
		lookahead: DefaultLookahead,
	}
}

// LookupStyle returns the chroma style for a theme name. "default" and
// unknown names give chroma's fallback style.
func LookupStyle(theme string) *chroma.Style {
	if theme == "" || theme == "default" {
		return styles.Fallback
	}
	return styles.Get(theme)
}

// Language returns the lexer name, e.g. "Go".
func (h *Highlighter) Language() string {
	return h.lexer.Config().Name
}

// Style returns the active chroma style.
func (h *Highlighter) Style() *chroma.Style {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.style
}

// SetTheme switches the style. Cached tokens stay valid.
func (h *Highlighter) SetTheme(theme string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.style = LookupStyle(theme)
}

// SetLookahead changes how far past a request lines are cached.
func (h *Highlighter) SetLookahead(n int) {
	if n < 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lookahead = n
}

// OnChange implements engine.Observer. Lines before the edit keep their
// tokens, and lines after it keep theirs shifted by the change in line
// count until lexing shows they need redoing.
func (h *Highlighter) OnChange(ev engine.ChangeEvent) {
	snap := ev.Snapshot
	n := snap.LineCount()
	h.mu.Lock()
	defer h.mu.Unlock()
	if ev.Cause == engine.CauseLoad || h.count < 0 {
		h.truncate(0)
		h.count = n
		return
	}
	first := snap.LineOf(ev.Range.Start)
	last := snap.LineOf(ev.Range.Start + ev.NewLen)
	h.splice(first, last, n-h.count)
	h.count = n
}

// splice replaces cached lines first through last-delta with unlexed
// entries for lines first through last.
func (h *Highlighter) splice(first, last, delta int) {
	if first >= len(h.lines) {
		return
	}
	tail := []lineCache(nil)
	if oldLast := last - delta; oldLast+1 < len(h.lines) {
		tail = h.lines[oldLast+1:]
	}
	lines := make([]lineCache, 0, last+1+len(tail))
	lines = append(lines, h.lines[:first]...)
	lines = append(lines, make([]lineCache, last-first+1)...)
	lines = append(lines, tail...)
	h.lines = lines
	h.valid = min(h.valid, first)
}

// Invalidate drops cached tokens for line and every line after it.
func (h *Highlighter) Invalidate(line int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.truncate(max(line, 0))
}

func (h *Highlighter) truncate(line int) {
	if line < len(h.lines) {
		clear(h.lines[line:])
		h.lines = h.lines[:line]
	}
	h.valid = min(h.valid, line)
}

// Cached returns the number of leading lines with valid cached tokens.
func (h *Highlighter) Cached() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.valid
}

// Line returns the spans of a line in snap. Lines out of range yield nil.
func (h *Highlighter) Line(snap text.Snapshot, line int) []Span {
	n := snap.LineCount()
	if line < 0 || line >= n {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count != n {
		// The cache was built for other content.
		h.truncate(0)
	}
	for line >= h.valid {
		if !h.lex(snap, min(line+h.lookahead, n-1)) {
			return nil
		}
	}
	return h.lines[line].spans
}

// lex tokenizes from the last resume point before the first invalid line.
// It stops once line upto is done and the next line is not known to be
// valid, or earlier when it reaches a line whose cached tokens still hold.
// It reports false if the lexer failed.
func (h *Highlighter) lex(snap text.Snapshot, upto int) bool {
	n := snap.LineCount()
	h.count = n
	if len(h.lines) < n {
		h.lines = append(h.lines, make([]lineCache, n-len(h.lines))...)
	} else {
		h.lines = h.lines[:n]
	}
	from := h.valid
	line := h.resumePoint(from)
	r, err := snap.LineRange(line)
	if err != nil {
		h.truncate(0)
		return false
	}
	src, err := snap.Read(text.Span(r.Start, snap.LenBytes()))
	if err != nil {
		h.truncate(0)
		return false
	}
	it, err := h.lexer.Tokenise(nil, src)
	if err != nil {
		h.truncate(0)
		return false
	}

	var cur []Span
	col, clean := 0, true
	// next stores the finished line and reports whether lexing can stop.
	next := func(cleanAfter bool) bool {
		h.lines[line] = lineCache{spans: cur, clean: clean, ok: true}
		h.lexed++
		line++
		cur, col, clean = nil, 0, cleanAfter
		if line >= n {
			return true
		}
		below := &h.lines[line]
		if below.ok && below.clean && clean && line > from {
			return true
		}
		if line > upto {
			below.ok = false
			return true
		}
		return false
	}

	stopped := false
	for tok := it(); tok != chroma.EOF && !stopped; tok = it() {
		v := tok.Value
		for !stopped {
			i := strings.IndexByte(v, '\n')
			if i < 0 {
				cur = appendSpan(cur, col, len(v), tok.Type)
				col += len(v)
				break
			}
			cur = appendSpan(cur, col, i, tok.Type)
			v = v[i+1:]
			stopped = next(v == "")
		}
	}
	if !stopped && line < n {
		next(true)
	}
	h.valid = n
	for i, l := range h.lines {
		if !l.ok {
			h.valid = i
			break
		}
	}
	return true
}

// resumePoint returns the last clean line before line, or 0.
func (h *Highlighter) resumePoint(line int) int {
	for k := min(line, len(h.lines)) - 1; k > 0; k-- {
		if h.lines[k].ok && h.lines[k].clean {
			return k
		}
	}
	return 0
}

// appendSpan adds a run of n bytes at col, merging it into the previous
// span when the types match.
func appendSpan(spans []Span, col, n int, typ chroma.TokenType) []Span {
	if n == 0 {
		return spans
	}
	if k := len(spans) - 1; k >= 0 && spans[k].Type == typ && spans[k].End == col {
		spans[k].End = col + n
		return spans
	}
	return append(spans, Span{Start: col, End: col + n, Type: typ})
}
