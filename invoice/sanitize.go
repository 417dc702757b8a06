package invoice

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// latin1Sanitizer decomposes accented characters, strips the combining
// marks and drops anything the built-in PDF fonts cannot encode.
var latin1Sanitizer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Remove(runes.Predicate(func(r rune) bool { return r > 0xFF })),
)

// Sanitize reduces s to its closest Latin-1 representation. Characters
// without a Latin-1 base form are dropped rather than replaced, so the
// output is always encodable by the standard 14 fonts.
func Sanitize(s string) string {
	out, _, err := transform.String(latin1Sanitizer, s)
	if err != nil {
		// transform.String only fails on transformer errors, which the
		// chain above never produces. Keep the input rather than losing it.
		return s
	}
	return out
}

// truncate cuts s to at most max runes, appending an ellipsis marker
// when anything was removed.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
