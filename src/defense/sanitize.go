package defense

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Sanitize normalizes a message before it enters the scoring pipeline:
// NFKC normalization, non-printable non-whitespace characters stripped,
// then whitespace runs (newlines included) collapsed to single spaces.
// It runs unconditionally on every message, not only when injection is
// detected, and is idempotent. Stripping runs before collapsing so
// removed characters cannot leave double spaces behind.
func Sanitize(text string) string {
	text = norm.NFKC.String(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	// Collapse all whitespace runs to single spaces.
	return strings.Join(strings.Fields(b.String()), " ")
}
