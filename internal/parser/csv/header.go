package csv

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\ufeff"

// NormalizeHeader maps a raw header cell onto the registry's naming style:
// BOM and edge space removed, diacritics folded, lower case, and runs of
// spaces, dashes or dots collapsed into a single underscore.
//
//	"Subject Race" -> "subject_race"
//	"Número"       -> "numero"
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, utf8BOM)
	h = strings.TrimSpace(h)
	if h == "" {
		return h
	}
	if !isASCII(h) {
		// NFD splits accents off their base rune so they can be removed.
		t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
		if folded, _, err := transform.String(t, h); err == nil {
			h = folded
		}
	}

	var b strings.Builder
	b.Grow(len(h))
	sep := false
	for _, r := range strings.ToLower(h) {
		switch {
		case r == ' ' || r == '-' || r == '.' || r == '\t':
			sep = b.Len() > 0
		default:
			if sep {
				b.WriteByte('_')
				sep = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
