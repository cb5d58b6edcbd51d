package fileio

import (
	"bytes"
	"strings"

	"github.com/dshills/quill/internal/engine"
	"github.com/dshills/quill/internal/engine/text"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DetectBOM reports the encoding named by a leading byte order mark and
// returns data without it. ok is false when there is no BOM.
func DetectBOM(data []byte) (enc string, rest []byte, ok bool) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return text.UTF8, data[len(bomUTF8):], true
	case bytes.HasPrefix(data, bomUTF16LE):
		return text.UTF16LE, data[len(bomUTF16LE):], true
	case bytes.HasPrefix(data, bomUTF16BE):
		return text.UTF16BE, data[len(bomUTF16BE):], true
	}
	return "", data, false
}

// BOM returns the byte order mark for enc, or nil if it has none.
func BOM(enc string) []byte {
	switch enc {
	case text.UTF8:
		return bomUTF8
	case text.UTF16LE:
		return bomUTF16LE
	case text.UTF16BE:
		return bomUTF16BE
	}
	return nil
}

// DetectLineEnding reports how s terminates its lines: LF, CRLF, or
// mixed when both occur. Text without line breaks reports def.
func DetectLineEnding(s, def string) string {
	var lf, crlf int
	for i := 0; i < len(s); i++ {
		if s[i] != '\n' {
			continue
		}
		if i > 0 && s[i-1] == '\r' {
			crlf++
		} else {
			lf++
		}
	}
	switch {
	case lf > 0 && crlf > 0:
		return engine.LineEndingMixed
	case crlf > 0:
		return engine.LineEndingCRLF
	case lf > 0:
		return engine.LineEndingLF
	}
	return def
}

// NormalizeLineEndings converts CRLF pairs to LF when ending is CRLF.
// Other endings leave s unchanged, so mixed files keep their bytes.
func NormalizeLineEndings(s, ending string) string {
	if ending != engine.LineEndingCRLF || !strings.Contains(s, "\r\n") {
		return s
	}
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// ApplyLineEnding converts LF to the given terminator. Only CRLF changes
// the text.
func ApplyLineEnding(s, ending string) string {
	if ending != engine.LineEndingCRLF {
		return s
	}
	return strings.ReplaceAll(s, "\n", "\r\n")
}
