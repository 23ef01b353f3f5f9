// Package address links street, number, postal code, city and country
// components into composite ADDRESS entities.
package address

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/straja-ai/docshield/internal/lexicon"
	"github.com/straja-ai/docshield/internal/safety"
)

// Component is one classified piece of an address.
type Component struct {
	Kind   safety.EntityType
	Start  int
	End    int
	Source safety.Source
	// EntityID is set when the component came from an existing entity.
	EntityID string
}

var (
	// A run of up to five words followed by a house number. The word run is
	// trimmed to the street name afterwards.
	streetLineRe = regexp.MustCompile(`([\p{L}][\p{L}'’.\-]*(?:[ \t]+[\p{L}][\p{L}'’.\-]*){0,4})[ \t]+(\d{1,4}[a-zA-Z]?)\b`)

	// Postal code followed by up to four capitalized locality words.
	postalCityRe = regexp.MustCompile(`\b(?:CH-)?([1-9]\d{3})[ \t]+(\p{Lu}[\p{L}'’.\-]*(?:[ \t]+\p{Lu}[\p{L}'’.\-]*){0,3})`)

	// Country on the same line after the city or on the next line.
	countryTailRe = regexp.MustCompile(`^[ \t]*[,\-]?[ \t]*\r?\n?[ \t]*(\p{L}[\p{L} ]{1,20})`)

	wordRe = regexp.MustCompile(`[^ \t]+`)
)

// Classify tags address components found in text. extraCities extends the
// built-in locality table; keys must come from lexicon.Key.
func Classify(text string, extraCities map[string]struct{}) []Component {
	var out []Component
	out = append(out, classifyStreets(text)...)
	out = append(out, classifyPostalLines(text, extraCities)...)
	sortComponents(out)
	return out
}

func classifyStreets(text string) []Component {
	var out []Component
	for _, m := range streetLineRe.FindAllStringSubmatchIndex(text, -1) {
		runStart, runEnd := m[2], m[3]
		start, ok := trimStreet(text[runStart:runEnd])
		if !ok {
			continue
		}
		out = append(out,
			Component{Kind: safety.TypeStreetName, Start: runStart + start, End: runEnd, Source: safety.SourceRule},
			Component{Kind: safety.TypeStreetNumber, Start: m[4], End: m[5], Source: safety.SourceRule},
		)
	}
	return out
}

// trimStreet returns the offset where the street name starts within a word
// run: at the first street-type prefix word, or at the last word when it
// carries a street suffix.
func trimStreet(run string) (int, bool) {
	words := wordRe.FindAllStringIndex(run, -1)
	if len(words) == 0 {
		return 0, false
	}
	// A prefix needs at least one name word after it.
	for _, w := range words[:len(words)-1] {
		if lexicon.IsStreetPrefix(run[w[0]:w[1]]) {
			return w[0], true
		}
	}
	last := words[len(words)-1]
	if lexicon.HasStreetSuffix(run[last[0]:last[1]]) {
		return last[0], true
	}
	return 0, false
}

func classifyPostalLines(text string, extraCities map[string]struct{}) []Component {
	var out []Component
	for _, m := range postalCityRe.FindAllStringSubmatchIndex(text, -1) {
		code, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil || !lexicon.InSwissPostalRange(code) {
			continue
		}
		cityStart, cityEnd, ok := cityPrefix(text[m[4]:m[5]], extraCities)
		if !ok {
			continue
		}
		cityStart += m[4]
		cityEnd += m[4]
		out = append(out,
			Component{Kind: safety.TypePostalCode, Start: m[2], End: m[3], Source: safety.SourceRule},
			Component{Kind: safety.TypeCity, Start: cityStart, End: cityEnd, Source: safety.SourceRule},
		)
		if cs, ce, ok := countryAfter(text, cityEnd); ok {
			out = append(out, Component{Kind: safety.TypeCountry, Start: cs, End: ce, Source: safety.SourceRule})
		}
	}
	return out
}

// cityPrefix picks the city out of the capitalized words after a postal
// code: the longest known locality prefix, else the first word unless it is
// a month or document noun.
func cityPrefix(run string, extra map[string]struct{}) (int, int, bool) {
	words := wordRe.FindAllStringIndex(run, -1)
	if len(words) == 0 {
		return 0, 0, false
	}
	for n := len(words); n > 0; n-- {
		cand := strings.TrimRight(run[:words[n-1][1]], ",.")
		if isKnownCity(cand, extra) {
			return 0, len(cand), true
		}
	}
	first := strings.TrimRight(run[words[0][0]:words[0][1]], ",.")
	if first == "" || lexicon.IsMonthName(first) || lexicon.IsDocumentNoun(first) || lexicon.IsCountryName(first) {
		return 0, 0, false
	}
	return 0, len(first), true
}

func countryAfter(text string, from int) (int, int, bool) {
	m := countryTailRe.FindStringSubmatchIndex(text[from:])
	if m == nil {
		return 0, 0, false
	}
	run := text[from+m[2] : from+m[3]]
	words := wordRe.FindAllStringIndex(run, -1)
	for n := len(words); n > 0; n-- {
		cand := run[:words[n-1][1]]
		if lexicon.IsCountryName(cand) {
			return from + m[2], from + m[2] + len(cand), true
		}
	}
	return 0, 0, false
}

func isKnownCity(name string, extra map[string]struct{}) bool {
	if lexicon.IsKnownCity(name) {
		return true
	}
	_, ok := extra[lexicon.Key(name)]
	return ok
}

// FromEntities turns pre-tagged component entities into components.
func FromEntities(entities []safety.Entity) []Component {
	var out []Component
	for _, e := range entities {
		if !e.Type.IsAddressComponent() {
			continue
		}
		out = append(out, Component{Kind: e.Type, Start: e.Start, End: e.End, Source: e.Source, EntityID: e.ID})
	}
	return out
}

// mergeComponents unions two component lists. A classified component that
// overlaps an existing one is dropped, so pre-tagged entities win.
func mergeComponents(existing, classified []Component) []Component {
	out := make([]Component, 0, len(existing)+len(classified))
	out = append(out, existing...)
	for _, c := range classified {
		if !overlapsAny(c, existing) {
			out = append(out, c)
		}
	}
	sortComponents(out)
	return out
}

func overlapsAny(c Component, list []Component) bool {
	for _, o := range list {
		if c.Start < o.End && o.Start < c.End {
			return true
		}
	}
	return false
}
