package ui

import (
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/gdamore/tcell/v2"
)

// Theme holds the tcell styles the renderer draws with. Token styles come
// from a chroma style and are converted on first use.
type Theme struct {
	Text          tcell.Style
	Gutter        tcell.Style
	GutterCurrent tcell.Style
	CurrentLine   tcell.Style
	Selection     tcell.Style
	Status        tcell.Style
	Message       tcell.Style
	Modes         map[string]tcell.Style

	source *chroma.Style
	mu     sync.Mutex
	tokens map[chroma.TokenType]tcell.Style
}

// NewTheme derives a theme from a chroma style. A nil style gives the
// terminal's default colours.
func NewTheme(style *chroma.Style) *Theme {
	t := &Theme{
		Text:          tcell.StyleDefault,
		Gutter:        tcell.StyleDefault.Foreground(tcell.ColorGray),
		GutterCurrent: tcell.StyleDefault.Foreground(tcell.ColorYellow),
		CurrentLine:   tcell.StyleDefault,
		Selection:     tcell.StyleDefault.Reverse(true),
		Status:        tcell.StyleDefault.Reverse(true),
		Message:       tcell.StyleDefault,
		Modes: map[string]tcell.Style{
			"NORMAL":  tcell.StyleDefault.Bold(true).Background(tcell.ColorBlue).Foreground(tcell.ColorWhite),
			"INSERT":  tcell.StyleDefault.Bold(true).Background(tcell.ColorGreen).Foreground(tcell.ColorBlack),
			"VISUAL":  tcell.StyleDefault.Bold(true).Background(tcell.ColorPurple).Foreground(tcell.ColorWhite),
			"COMMAND": tcell.StyleDefault.Bold(true).Background(tcell.ColorYellow).Foreground(tcell.ColorBlack),
		},
		source: style,
		tokens: map[chroma.TokenType]tcell.Style{},
	}
	if style == nil {
		return t
	}

	t.Text = convertEntry(tcell.StyleDefault, style.Get(chroma.Background))
	t.Message = t.Text
	t.Gutter = convertEntry(t.Text, style.Get(chroma.LineNumbers))
	t.GutterCurrent = t.Gutter.Bold(true)
	t.CurrentLine = t.Text
	if hl := style.Get(chroma.LineHighlight); hl.Background.IsSet() {
		t.CurrentLine = t.Text.Background(color(hl.Background))
	}
	return t
}

// Token returns the style for a token type.
func (t *Theme) Token(tt chroma.TokenType) tcell.Style {
	if t.source == nil {
		return t.Text
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.tokens[tt]; ok {
		return s
	}
	s := convertEntry(t.Text, t.source.Get(tt))
	t.tokens[tt] = s
	return s
}

// Mode returns the status bar style for a mode label.
func (t *Theme) Mode(label string) tcell.Style {
	if s, ok := t.Modes[label]; ok {
		return s
	}
	return t.Status
}

func convertEntry(base tcell.Style, e chroma.StyleEntry) tcell.Style {
	s := base
	if e.Colour.IsSet() {
		s = s.Foreground(color(e.Colour))
	}
	if e.Background.IsSet() {
		s = s.Background(color(e.Background))
	}
	if e.Bold == chroma.Yes {
		s = s.Bold(true)
	}
	if e.Italic == chroma.Yes {
		s = s.Italic(true)
	}
	if e.Underline == chroma.Yes {
		s = s.Underline(true)
	}
	return s
}

func color(c chroma.Colour) tcell.Color {
	return tcell.NewRGBColor(int32(c.Red()), int32(c.Green()), int32(c.Blue()))
}
