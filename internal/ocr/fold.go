package ocr

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// newFolder returns a transformer that strips combining marks. Tone and
// vowel marks decompose under NFD; đ has no decomposition and is mapped
// explicitly.
func newFolder() transform.Transformer {
	return transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(func(r rune) rune {
			if r == 'đ' {
				return 'd'
			}
			return r
		}),
		norm.NFC,
	)
}

// Fold lower-cases s, strips Vietnamese diacritics and collapses runs of
// whitespace to one space.
func Fold(s string) string {
	folded, _, err := transform.String(newFolder(), strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	return strings.Join(strings.Fields(folded), " ")
}
