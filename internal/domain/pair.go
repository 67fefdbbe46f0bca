package domain

import (
	"strings"
	"unicode"
)

// CanonicalPair normalizes a raw pair string into the grouping key used by
// the scanner: uppercased, whitespace stripped, with runs of "-" and "/"
// separators collapsed to a single "/". Distinct spellings of the same
// economic pair ("ADA-USD", "ada/usd", "ADA / USD") all map to "ADA/USD".
// The function is idempotent: canonical output passes through unchanged.
func CanonicalPair(raw string) string {
	s := strings.ToUpper(raw)

	var b strings.Builder
	b.Grow(len(s))
	inSep := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		if r == '-' || r == '/' {
			if !inSep {
				b.WriteByte('/')
				inSep = true
			}
			continue
		}
		inSep = false
		b.WriteRune(r)
	}
	return b.String()
}

// BaseSymbol returns the base asset of a canonical pair ("ADA/USD" -> "ADA").
// For a pair without a separator it returns the whole string.
func BaseSymbol(pair string) string {
	if i := strings.IndexByte(pair, '/'); i >= 0 {
		return pair[:i]
	}
	return pair
}
