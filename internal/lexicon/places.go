package lexicon

import "strings"

// swissLocalities maps postal codes to the locality names (in every official
// spelling we recognize) that use them.
var swissLocalities = map[int][]string{
	1000: {"Lausanne"}, 1003: {"Lausanne"}, 1004: {"Lausanne"}, 1005: {"Lausanne"},
	1007: {"Lausanne"}, 1010: {"Lausanne"}, 1020: {"Renens"}, 1110: {"Morges"},
	1201: {"Genève", "Genf", "Geneva", "Ginevra"}, 1202: {"Genève", "Genf", "Geneva"},
	1203: {"Genève", "Genf"}, 1204: {"Genève", "Genf"}, 1205: {"Genève", "Genf"},
	1212: {"Lancy", "Grand-Lancy"}, 1214: {"Vernier"}, 1227: {"Carouge"},
	1260: {"Nyon"}, 1400: {"Yverdon-les-Bains"}, 1630: {"Bulle"},
	1700: {"Fribourg", "Freiburg"}, 1800: {"Vevey"}, 1820: {"Montreux"},
	1870: {"Monthey"}, 1920: {"Martigny"}, 1950: {"Sion", "Sitten"},
	2000: {"Neuchâtel", "Neuenburg"}, 2072: {"Saint-Blaise", "St-Blaise"},
	2300: {"La Chaux-de-Fonds"}, 2502: {"Biel", "Bienne", "Biel/Bienne"},
	2800: {"Delémont", "Delsberg"}, 3001: {"Bern", "Berne", "Berna"},
	3011: {"Bern", "Berne"}, 3098: {"Köniz"}, 3600: {"Thun", "Thoune"},
	3960: {"Sierre", "Siders"}, 4001: {"Basel", "Bâle", "Basilea"},
	4051: {"Basel", "Bâle"}, 4123: {"Allschwil"}, 4125: {"Riehen"},
	4500: {"Solothurn", "Soleure"}, 4600: {"Olten"}, 5000: {"Aarau"},
	5400: {"Baden"}, 6003: {"Luzern", "Lucerne", "Lucerna"}, 6010: {"Kriens"},
	6032: {"Emmen"}, 6300: {"Zug", "Zoug"}, 6340: {"Baar"},
	6500: {"Bellinzona"}, 6600: {"Locarno"}, 6900: {"Lugano"},
	7000: {"Chur", "Coire", "Coira"}, 8001: {"Zürich", "Zurich", "Zurigo"},
	8002: {"Zürich", "Zurich"}, 8003: {"Zürich", "Zurich"}, 8004: {"Zürich", "Zurich"},
	8005: {"Zürich", "Zurich"}, 8008: {"Zürich", "Zurich"}, 8200: {"Schaffhausen"},
	8280: {"Kreuzlingen"}, 8400: {"Winterthur"}, 8500: {"Frauenfeld"},
	8600: {"Dübendorf"}, 8610: {"Uster"}, 8620: {"Wetzikon"},
	8640: {"Rapperswil-Jona"}, 8810: {"Horgen"}, 8820: {"Wädenswil"},
	8953: {"Dietikon"}, 9000: {"St. Gallen", "Sankt Gallen", "Saint-Gall", "San Gallo"},
}

var knownCities = func() map[string]struct{} {
	out := make(map[string]struct{})
	for _, names := range swissLocalities {
		for _, n := range names {
			out[foldKey(n)] = struct{}{}
		}
	}
	return out
}()

// Swiss postal codes span 1000..9699 (9700+ is not assigned to Switzerland).
const (
	MinSwissPostalCode = 1000
	MaxSwissPostalCode = 9699
)

// InSwissPostalRange reports whether code lies in the assigned Swiss range.
func InSwissPostalRange(code int) bool {
	return code >= MinSwissPostalCode && code <= MaxSwissPostalCode
}

// IsKnownCity reports whether name is a recognized Swiss locality.
func IsKnownCity(name string) bool {
	_, ok := knownCities[foldKey(name)]
	return ok
}

// IsKnownPostalCode reports whether code is in the locality table.
func IsKnownPostalCode(code int) bool {
	_, ok := swissLocalities[code]
	return ok
}

// CityMatchesPostalCode reports whether the locality table pairs code and name.
func CityMatchesPostalCode(code int, name string) bool {
	key := foldKey(name)
	for _, n := range swissLocalities[code] {
		if foldKey(n) == key {
			return true
		}
	}
	return false
}

var countryNames = map[string]struct{}{}

func init() {
	for _, n := range []string{
		"Schweiz", "Suisse", "Svizzera", "Switzerland", "CH",
		"Liechtenstein", "FL", "Deutschland", "Germany", "Allemagne", "Germania",
		"France", "Frankreich", "Francia", "Italia", "Italien", "Italy", "Italie",
		"Österreich", "Austria", "Autriche",
	} {
		countryNames[foldKey(n)] = struct{}{}
	}
}

// IsCountryName reports whether name is a recognized country label.
func IsCountryName(name string) bool {
	_, ok := countryNames[foldKey(name)]
	return ok
}

// streetMarkers are street-type words that start a street name (fr/it) or
// end one (de compound suffixes).
var (
	streetPrefixes = []string{
		"rue", "avenue", "av", "chemin", "ch", "route", "rte", "place", "pl",
		"boulevard", "bd", "quai", "impasse", "allee", "sentier", "via", "viale",
		"piazza", "corso", "vicolo", "strada",
	}
	streetSuffixes = []string{
		"strasse", "str", "gasse", "weg", "platz", "allee", "ring", "rain",
		"halde", "steig", "street", "road", "lane",
	}
)

// IsStreetPrefix reports whether word is a street-type word that opens a
// street name, as in "Rue de Lausanne" or "Via Nassa".
func IsStreetPrefix(word string) bool {
	key := foldKey(word)
	for _, p := range streetPrefixes {
		if key == p {
			return true
		}
	}
	return false
}

// HasStreetSuffix reports whether word ends in a street-type suffix, as in
// "Bahnhofstrasse" or "Kirchgasse".
func HasStreetSuffix(word string) bool {
	key := foldKey(word)
	for _, s := range streetSuffixes {
		if strings.HasSuffix(key, s) {
			return true
		}
	}
	return false
}

// LooksLikeStreet reports whether name carries a street-type marker.
func LooksLikeStreet(name string) bool {
	words := strings.Fields(foldKey(name))
	if len(words) == 0 {
		return false
	}
	return IsStreetPrefix(words[0]) || HasStreetSuffix(words[len(words)-1])
}
