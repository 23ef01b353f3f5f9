package lexicon

// monthNames maps folded month spellings to month numbers. Accented forms
// fold onto their ASCII spelling; transliterated forms such as "maerz" are
// listed explicitly.
var monthNames = map[string]int{
	// en
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "jun": 6, "jul": 7, "aug": 8,
	"sep": 9, "sept": 9, "oct": 10, "nov": 11, "dec": 12,

	// de
	"januar": 1, "janner": 1, "jaenner": 1, "februar": 2, "marz": 3, "maerz": 3,
	"mai": 5, "juni": 6, "juli": 7, "oktober": 10, "dezember": 12,
	"okt": 10, "dez": 12,

	// fr
	"janvier": 1, "fevrier": 2, "mars": 3, "avril": 4, "juin": 6, "juillet": 7,
	"aout": 8, "septembre": 9, "octobre": 10, "novembre": 11, "decembre": 12,
	"janv": 1, "fevr": 2, "avr": 4, "juil": 7,

	// it
	"gennaio": 1, "febbraio": 2, "marzo": 3, "aprile": 4, "maggio": 5, "giugno": 6,
	"luglio": 7, "agosto": 8, "settembre": 9, "ottobre": 10, "dicembre": 12,
	"genn": 1, "febbr": 2, "magg": 5, "giu": 6, "lug": 7, "ago": 8, "sett": 9, "ott": 10, "dic": 12,
}

// MonthNumber resolves a month name in any supported language.
func MonthNumber(word string) (int, bool) {
	m, ok := monthNames[foldKey(word)]
	return m, ok
}

// IsMonthName reports whether word names a calendar month.
func IsMonthName(word string) bool {
	_, ok := MonthNumber(word)
	return ok
}
