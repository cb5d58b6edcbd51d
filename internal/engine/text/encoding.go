package text

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Supported encoding names.
const (
	UTF8        = "utf-8"
	UTF16LE     = "utf-16le"
	UTF16BE     = "utf-16be"
	Latin1      = "iso-8859-1"
	Windows1252 = "windows-1252"
)

var aliases = map[string]string{
	"":         UTF8,
	"utf8":     UTF8,
	"utf16le":  UTF16LE,
	"utf16be":  UTF16BE,
	"latin1":   Latin1,
	"latin-1":  Latin1,
	"cp1252":   Windows1252,
	"ansi":     Windows1252,
	"us-ascii": UTF8,
	"ascii":    UTF8,
}

// CanonicalEncoding returns the canonical name for enc.
func CanonicalEncoding(enc string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(enc))
	if alias, ok := aliases[name]; ok {
		name = alias
	}
	switch name {
	case UTF8, UTF16LE, UTF16BE, Latin1, Windows1252:
		return name, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, enc)
}

func lookup(name string) encoding.Encoding {
	switch name {
	case UTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case UTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	case Latin1:
		return charmap.ISO8859_1
	case Windows1252:
		return charmap.Windows1252
	}
	return unicode.UTF8
}

// Decode converts data in encoding enc to a UTF-8 string. Any byte
// sequence that is invalid in enc yields a *DecodeError.
func Decode(data []byte, enc string) (string, error) {
	name, err := CanonicalEncoding(enc)
	if err != nil {
		return "", err
	}
	if pos := validate(data, name); pos >= 0 {
		return "", &DecodeError{Encoding: name, Offset: pos}
	}
	if name == UTF8 {
		return string(data), nil
	}
	out, err := lookup(name).NewDecoder().Bytes(data)
	if err != nil {
		return "", &DecodeError{Encoding: name, Err: err}
	}
	return string(out), nil
}

// Encode converts UTF-8 text to encoding enc.
func Encode(s string, enc string) ([]byte, error) {
	name, err := CanonicalEncoding(enc)
	if err != nil {
		return nil, err
	}
	if name == UTF8 {
		return []byte(s), nil
	}
	out, err := lookup(name).NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEncode, name, err)
	}
	return out, nil
}

// Load decodes data and returns a snapshot of the result.
func Load(data []byte, enc string) (Snapshot, error) {
	s, err := Decode(data, enc)
	if err != nil {
		return Snapshot{}, err
	}
	return SnapshotOf(s)
}

// validate returns the offset of the first invalid byte, or -1.
func validate(data []byte, name string) int {
	switch name {
	case UTF8:
		for i := 0; i < len(data); {
			r, size := utf8.DecodeRune(data[i:])
			if r == utf8.RuneError && size <= 1 {
				return i
			}
			i += size
		}
	case UTF16LE, UTF16BE:
		return validateUTF16(data, name == UTF16BE)
	case Latin1, Windows1252:
		cm := lookup(name).(*charmap.Charmap)
		for i, b := range data {
			if cm.DecodeByte(b) == utf8.RuneError {
				return i
			}
		}
	}
	return -1
}

func validateUTF16(data []byte, bigEndian bool) int {
	unit := func(i int) uint16 {
		if bigEndian {
			return uint16(data[i])<<8 | uint16(data[i+1])
		}
		return uint16(data[i+1])<<8 | uint16(data[i])
	}
	i := 0
	for ; i+1 < len(data); i += 2 {
		u := unit(i)
		if !utf16.IsSurrogate(rune(u)) {
			continue
		}
		if u >= 0xDC00 || i+3 >= len(data) {
			return i
		}
		if next := unit(i + 2); next < 0xDC00 || next > 0xDFFF {
			return i
		}
		i += 2
	}
	if i < len(data) {
		return i
	}
	return -1
}

// IsDecodeError reports whether err came from Decode.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
