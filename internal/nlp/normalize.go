// ABOUTME: Text normalization helpers shared by the classifier and resolvers
// ABOUTME: Lowercasing, whitespace collapsing, diacritic stripping and tokenization

package nlp

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRE = regexp.MustCompile(`\s+`)
	tokenRE      = regexp.MustCompile(`[^\wáéíóúñü ]`)

	// Decompose, drop combining marks, recompose. "código" -> "codigo".
	diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Normalize lowercases the text, trims it and collapses runs of whitespace.
func Normalize(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	return whitespaceRE.ReplaceAllString(t, " ")
}

// StripDiacritics returns the normalized text with combining marks removed.
// Used wherever accent-insensitive comparison is needed.
func StripDiacritics(text string) string {
	out, _, err := transform.String(diacriticStripper, Normalize(text))
	if err != nil {
		return Normalize(text)
	}
	return out
}

// Tokenize splits the text into a set of lowercase word tokens.
// Accented vowels and ñ/ü survive so keyword sets can carry both spellings.
func Tokenize(text string) map[string]bool {
	cleaned := tokenRE.ReplaceAllString(strings.ToLower(text), " ")
	tokens := make(map[string]bool)
	for _, w := range strings.Fields(cleaned) {
		tokens[w] = true
	}
	return tokens
}
