package manifest

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeCode returns the canonical form of a category code: all
// whitespace removed and letters uppercased, so "a - 12" and "A-12" compare
// equal.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, code))
}

// NormalizeCodes normalizes every code and drops empties.
func NormalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if n := NormalizeCode(c); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Fold lowercases s and strips diacritics ("Ilhéus" → "ilheus") for
// comparisons that must ignore accents and case.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
