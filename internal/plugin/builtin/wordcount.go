// Package builtin contains the plugins compiled into the editor.
package builtin

import (
	"fmt"
	"sync"
	"unicode"

	"github.com/google/uuid"

	"github.com/dshills/quill/internal/engine"
	"github.com/dshills/quill/internal/engine/text"
	"github.com/dshills/quill/internal/plugin"
)

// WordCount tracks the number of words in each attached document.
type WordCount struct {
	mu     sync.Mutex
	counts map[uuid.UUID]int
	env    *plugin.Env
}

// NewWordCount creates the word count plugin.
func NewWordCount() *WordCount {
	return &WordCount{counts: make(map[uuid.UUID]int)}
}

func (w *WordCount) Name() string    { return "wordcount" }
func (w *WordCount) Version() string { return "1.0.0" }

func (w *WordCount) Init(env *plugin.Env) error {
	w.env = env
	return nil
}

func (w *WordCount) Close() error { return nil }

// OnChange recounts the document from the event's snapshot.
func (w *WordCount) OnChange(_ *engine.Document, ev engine.ChangeEvent) {
	n := CountWords(ev.Snapshot)
	w.mu.Lock()
	w.counts[ev.DocID] = n
	w.mu.Unlock()
}

// Count returns the last known word count for doc.
func (w *WordCount) Count(doc *engine.Document) int {
	w.mu.Lock()
	n, ok := w.counts[doc.ID()]
	w.mu.Unlock()
	if !ok {
		n = CountWords(doc.Snapshot())
	}
	return n
}

func (w *WordCount) Commands() []plugin.Command {
	return []plugin.Command{{
		Name:        "wordcount",
		Description: "Show the number of words in the document",
		Run: func(doc *engine.Document, _ []string) error {
			w.env.Status(fmt.Sprintf("%d words", w.Count(doc)))
			return nil
		},
	}}
}

// CountWords counts runs of non-space runes.
func CountWords(snap text.Snapshot) int {
	n := 0
	inWord := false
	for _, r := range snap.String() {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n
}
