package builtin

import (
	"github.com/dshills/quill/internal/engine"
	"github.com/dshills/quill/internal/engine/text"
	"github.com/dshills/quill/internal/plugin"
)

// TrimWhitespace removes trailing spaces and tabs from every line before
// a save.
type TrimWhitespace struct {
	enabled bool
}

// NewTrimWhitespace creates the trimmer.
func NewTrimWhitespace() *TrimWhitespace {
	return &TrimWhitespace{enabled: true}
}

func (t *TrimWhitespace) Name() string    { return "trim-whitespace" }
func (t *TrimWhitespace) Version() string { return "1.0.0" }

func (t *TrimWhitespace) Init(env *plugin.Env) error {
	t.enabled = plugin.Option(env, "on_save", true)
	return nil
}

func (t *TrimWhitespace) Close() error { return nil }

// BeforeSave proposes one deletion per line with trailing blanks.
func (t *TrimWhitespace) BeforeSave(doc *engine.Document) ([]engine.Edit, error) {
	if !t.enabled {
		return nil, nil
	}
	return TrailingWhitespace(doc.Snapshot())
}

func (t *TrimWhitespace) Commands() []plugin.Command {
	return []plugin.Command{{
		Name:        "trim",
		Description: "Remove trailing whitespace",
		Run: func(doc *engine.Document, _ []string) error {
			snap, rev := doc.Capture()
			edits, err := TrailingWhitespace(snap)
			if err != nil || len(edits) == 0 {
				return err
			}
			_, err = doc.ApplyEditsAt(rev, edits)
			return err
		},
	}}
}

// TrailingWhitespace returns delete edits for trailing spaces and tabs.
func TrailingWhitespace(snap text.Snapshot) ([]engine.Edit, error) {
	var edits []engine.Edit
	for line := range snap.LineCount() {
		s, err := snap.LineText(line)
		if err != nil {
			return nil, err
		}
		end := len(s)
		cut := end
		for cut > 0 && (s[cut-1] == ' ' || s[cut-1] == '\t') {
			cut--
		}
		if cut == end {
			continue
		}
		r, err := snap.LineRange(line)
		if err != nil {
			return nil, err
		}
		edits = append(edits, engine.Edit{
			Kind:  engine.Delete,
			Range: text.Span(r.Start+cut, r.Start+end),
		})
	}
	return edits, nil
}
