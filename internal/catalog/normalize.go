package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases and strips accents ("Lapicera Común" -> "lapicera comun").
// Catalog names and inbound text go through the same fold so matching is
// symmetric.
func Fold(s string) string {
	s = strings.ToLower(s)
	out, _, err := transform.String(accentStripper, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeKey folds and replaces runs of non-alphanumeric characters with a
// single underscore: "Cuaderno A4" -> "cuaderno_a4". This is the stored form
// of product, category and subcategory names.
func NormalizeKey(s string) string {
	folded := Fold(s)
	var b strings.Builder
	lastUnderscore := true
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastUnderscore = false
		} else if !lastUnderscore {
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

// Tokens splits folded text on anything that is not a letter or digit.
func Tokens(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// DisplayName turns a normalized name back into something printable.
func DisplayName(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
