// Package lexicon holds the language tables shared by validators and passes:
// month names, Swiss localities, label keywords and deny lists for en, de, fr
// and it. All lookups are case- and accent-insensitive.
package lexicon

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Languages supported by the tables.
const (
	LangEN = "en"
	LangDE = "de"
	LangFR = "fr"
	LangIT = "it"
)

// Languages lists every supported language tag.
var Languages = []string{LangEN, LangDE, LangFR, LangIT}

// NormalizeLanguage maps a tag such as "de-CH" onto a supported language,
// defaulting to English.
func NormalizeLanguage(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	switch tag {
	case LangDE, LangFR, LangIT:
		return tag
	default:
		return LangEN
	}
}

// Fold lowercases s and strips combining marks, so "Neuchâtel" and
// "neuchatel" compare equal. German sharp s folds to "ss".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)
	return strings.ReplaceAll(out, "ß", "ss")
}

// Key is the normalized lookup key used by every table in this package.
// Callers keeping their own extension sets should key them with it.
func Key(s string) string { return foldKey(s) }

// foldKey normalizes a multi-word name for table lookups: folded, with
// hyphens, dots and repeated spaces collapsed to single spaces.
func foldKey(s string) string {
	s = Fold(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '-', '.', '\'', '’':
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
