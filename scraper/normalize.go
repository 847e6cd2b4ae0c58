package scraper

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripDiacritics decomposes characters and drops combining marks, so
// "Café" and "Cafe" compare equal downstream.
var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeTitle canonicalizes a free-text product title for comparison:
// lower-case, diacritics stripped, punctuation turned into spaces,
// whitespace collapsed. Token order is preserved; reordering would break
// adjacency matching in the bigram scorer. Idempotent.
func NormalizeTitle(title string) string {
	s, _, err := transform.String(stripDiacritics, title)
	if err != nil {
		s = title
	}

	s = strings.ToLower(s)

	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, s)

	return strings.Join(strings.Fields(s), " ")
}
