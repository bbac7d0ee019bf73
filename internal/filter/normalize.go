package filter

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldNormalizer decomposes to NFKD and strips combining marks
// (de-accenting), following derat-nup/server/query.Normalize's comment at
// https://go.dev/blog/normalization#performing-magic.
var foldNormalizer = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// foldCase normalizes s for the case-insensitive string comparisons
// requires (equal, not-equal, contains, not-contains,
// ordering), so e.g. "Café" and "cafe" compare equal while punctuation is
// preserved.
func foldCase(s string) string {
	out, _, err := transform.String(foldNormalizer, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
