package source

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decode turns raw export bytes into text. A UTF-8 or UTF-16 byte-order mark
// selects the encoding and is stripped. Without one, valid UTF-8 sequences are
// kept as is and each byte that is not part of one is read as Windows-1252,
// which is what spreadsheet software falls back to when saving CSV. A file
// edited by both keeps its UTF-8 characters intact.
func Decode(data []byte) (string, error) {
	// BOMOverride only switches decoders when a BOM is present; Nop passes
	// everything else through untouched.
	out, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
	if err != nil {
		return "", fmt.Errorf("decode byte-order mark: %w", err)
	}
	if utf8.Valid(out) {
		return string(out), nil
	}

	var b strings.Builder
	b.Grow(len(out))
	for len(out) > 0 {
		r, size := utf8.DecodeRune(out)
		if r == utf8.RuneError && size == 1 {
			r = charmap.Windows1252.DecodeByte(out[0])
		}
		b.WriteRune(r)
		out = out[size:]
	}
	return b.String(), nil
}
