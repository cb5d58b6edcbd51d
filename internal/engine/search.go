package engine

import (
	"fmt"
	"regexp"

	"github.com/dshills/quill/internal/engine/text"
)

// FindOptions control how a search pattern is interpreted.
type FindOptions struct {
	// Regexp treats the pattern as a regular expression in RE2 syntax.
	// Otherwise it is matched literally.
	Regexp bool

	// IgnoreCase matches without regard to case.
	IgnoreCase bool
}

func compilePattern(pattern string, opts FindOptions) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, ErrEmptyPattern
	}
	if !opts.Regexp {
		pattern = regexp.QuoteMeta(pattern)
	}
	if opts.IgnoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern: %w", err)
	}
	return re, nil
}

// Find returns the first non-empty match at or after from, wrapping to
// the start of the document. The second result is false when nothing
// matches.
func (d *Document) Find(pattern string, from int, opts FindOptions) (text.Range, bool, error) {
	re, err := compilePattern(pattern, opts)
	if err != nil {
		return text.Range{}, false, err
	}
	content := d.Text()
	from = min(max(from, 0), len(content))

	if r, ok := firstMatch(re, content, from); ok {
		return r, true, nil
	}
	if r, ok := firstMatch(re, content, 0); ok && r.Start < from {
		return r, true, nil
	}
	return text.Range{}, false, nil
}

// FindAll returns every non-overlapping non-empty match in order.
func (d *Document) FindAll(pattern string, opts FindOptions) ([]text.Range, error) {
	re, err := compilePattern(pattern, opts)
	if err != nil {
		return nil, err
	}
	return allMatches(re, d.Text()), nil
}

// FindNext moves the primary cursor to select the next match after it.
func (d *Document) FindNext(pattern string, opts FindOptions) (bool, error) {
	from := d.Primary().End()
	r, ok, err := d.Find(pattern, from, opts)
	if err != nil || !ok {
		return false, err
	}
	d.Select(r.Start, r.End)
	return true, nil
}

// ReplaceAll replaces every match with repl in one transaction and
// returns the number of replacements. With FindOptions.Regexp, repl may
// refer to submatches as $1 or ${name}.
func (d *Document) ReplaceAll(pattern, repl string, opts FindOptions) (int, CommitResult, error) {
	re, err := compilePattern(pattern, opts)
	if err != nil {
		return 0, CommitResult{}, err
	}

	var count int
	res, err := d.edit(func(t *txn) error {
		content := d.store.String()
		matches := re.FindAllStringSubmatchIndex(content, -1)
		edits := make([]text.Range, 0, len(matches))
		repls := make([]string, 0, len(matches))
		for _, m := range matches {
			if m[0] == m[1] {
				continue
			}
			s := repl
			if opts.Regexp {
				s = string(re.ExpandString(nil, repl, content, m))
			}
			edits = append(edits, text.Span(m[0], m[1]))
			repls = append(repls, s)
		}
		for i := len(edits) - 1; i >= 0; i-- {
			if err := t.apply(edits[i], repls[i]); err != nil {
				return err
			}
		}
		count = len(edits)
		return nil
	})
	if err != nil {
		return 0, CommitResult{}, err
	}
	return count, res, nil
}

func firstMatch(re *regexp.Regexp, content string, from int) (text.Range, bool) {
	for from <= len(content) {
		loc := re.FindStringIndex(content[from:])
		if loc == nil {
			return text.Range{}, false
		}
		if loc[0] != loc[1] {
			return text.Span(from+loc[0], from+loc[1]), true
		}
		// Skip an empty match.
		from += loc[0] + 1
	}
	return text.Range{}, false
}

func allMatches(re *regexp.Regexp, content string) []text.Range {
	var out []text.Range
	for _, m := range re.FindAllStringIndex(content, -1) {
		if m[0] != m[1] {
			out = append(out, text.Span(m[0], m[1]))
		}
	}
	return out
}
