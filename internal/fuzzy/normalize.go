// Package fuzzy provides the normalization and similarity primitives shared
// by the confidence scorer and the metadata resolver's fallback candidate
// synthesis (spec §4.4).
package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	bracketedQualifier = regexp.MustCompile(`[\[(][^\])]*[\])]`)
	leadingTrackNumber = regexp.MustCompile(`^\s*\d{1,3}[.\-\s]+`)
	whitespaceRun      = regexp.MustCompile(`\s+`)
)

// Normalize lowercases, strips diacritics, drops bracketed qualifiers like
// "[remastered]" or "(live)", strips a leading track number, and collapses
// whitespace, per spec §4.4's normalization rule run before any similarity
// comparison.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = leadingTrackNumber.ReplaceAllString(s, "")
	s = bracketedQualifier.ReplaceAllString(s, "")
	s = stripDiacritics(s)
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
