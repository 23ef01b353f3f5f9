package lexicon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonthNumberAcrossLanguages(t *testing.T) {
	cases := map[string]int{
		"März": 3, "maerz": 3, "Marz": 3, "février": 2, "fevrier": 2,
		"août": 8, "aout": 8, "Dicembre": 12, "October": 10, "Dezember": 12,
		"sept.": 9,
	}
	for word, want := range cases {
		got, ok := MonthNumber(word)
		assert.True(t, ok, word)
		assert.Equal(t, want, got, word)
	}
	assert.False(t, IsMonthName("Lausanne"))
}

func TestKnownCityFoldsAccents(t *testing.T) {
	assert.True(t, IsKnownCity("Neuchâtel"))
	assert.True(t, IsKnownCity("neuchatel"))
	assert.True(t, IsKnownCity("ZÜRICH"))
	assert.True(t, IsKnownCity("St. Gallen"))
	assert.True(t, IsKnownCity("La Chaux-de-Fonds"))
	assert.False(t, IsKnownCity("Attestation"))
	assert.True(t, CityMatchesPostalCode(1000, "Lausanne"))
	assert.False(t, CityMatchesPostalCode(8001, "Lausanne"))
}

func TestDocumentNouns(t *testing.T) {
	assert.True(t, IsDocumentNoun("Attestation"))
	assert.True(t, IsDocumentNoun("Reçu"))
	assert.False(t, IsDocumentNoun("Lausanne"))
}

func TestLabelKeywordsIncludeEnglish(t *testing.T) {
	kw := LabelKeywords("PHONE", "fr-CH")
	assert.Contains(t, kw, "telephone")
	assert.Contains(t, kw, "phone")
	assert.True(t, ContainsKeyword("contact tel: 044", kw))
	assert.False(t, ContainsKeyword("hotel lobby", kw))
}

func TestLooksLikeStreet(t *testing.T) {
	assert.True(t, LooksLikeStreet("Rue de Lausanne"))
	assert.True(t, LooksLikeStreet("Bahnhofstrasse"))
	assert.True(t, LooksLikeStreet("Via Nassa"))
	assert.False(t, LooksLikeStreet("Lausanne"))
	assert.False(t, LooksLikeStreet(""))

	assert.True(t, IsStreetPrefix("Chemin"))
	assert.True(t, IsStreetPrefix("Av."))
	assert.False(t, IsStreetPrefix("Lausanne"))
	assert.True(t, HasStreetSuffix("Kirchgasse"))
	assert.True(t, HasStreetSuffix("Hauptstraße"))
	assert.False(t, HasStreetSuffix("März"))
}

func TestNormalizeLanguage(t *testing.T) {
	assert.Equal(t, LangDE, NormalizeLanguage("de-CH"))
	assert.Equal(t, LangEN, NormalizeLanguage("rm"))
}
