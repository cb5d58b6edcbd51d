package rope

import "unicode/utf8"

// Summary holds aggregated metrics for a span of text.
// Summaries form a monoid under Add, with the zero value as identity.
type Summary struct {
	// Bytes is the UTF-8 byte count.
	Bytes int

	// Runes is the number of Unicode code points.
	Runes int

	// Newlines is the number of '\n' bytes.
	Newlines int
}

// Add combines two adjacent summaries.
func (s Summary) Add(other Summary) Summary {
	return Summary{
		Bytes:    s.Bytes + other.Bytes,
		Runes:    s.Runes + other.Runes,
		Newlines: s.Newlines + other.Newlines,
	}
}

// Summarize computes the metrics for s.
func Summarize(s string) Summary {
	sum := Summary{Bytes: len(s)}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\n' {
			sum.Newlines++
		}
		if utf8.RuneStart(c) {
			sum.Runes++
		}
	}
	return sum
}

// nthNewline returns the index of the n-th (1-based) newline in s, or -1.
func nthNewline(s string, n int) int {
	if n <= 0 {
		return -1
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n--
			if n == 0 {
				return i
			}
		}
	}
	return -1
}

// countNewlines counts '\n' bytes in s.
func countNewlines(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
		}
	}
	return n
}
