package helper

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var quoteStripper = strings.NewReplacer(
	`"`, "",
	`'`, "",
	"“", "",
	"”", "",
	"‘", "",
	"’", "",
)

// Normalize canonicalizes message text for phrase matching: lower-case,
// diacritics removed, quotes removed, whitespace collapsed and trimmed.
func Normalize(text string) string {
	s := strings.ToLower(text)

	// transform chains keep state, so one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	if stripped, _, err := transform.String(t, s); err == nil {
		s = stripped
	}

	s = quoteStripper.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
