package lexicon

import "strings"

// labelKeywords are the field labels that typically precede a value of a given
// type in forms and letters, keyed by entity type name and language.
var labelKeywords = map[string]map[string][]string{
	"EMAIL": {
		LangEN: {"email", "e-mail", "mail"},
		LangDE: {"e-mail", "email", "mail"},
		LangFR: {"courriel", "e-mail", "email", "mél"},
		LangIT: {"e-mail", "email", "posta elettronica"},
	},
	"PHONE": {
		LangEN: {"tel", "phone", "mobile", "fax"},
		LangDE: {"tel", "telefon", "mobile", "natel", "fax"},
		LangFR: {"tél", "tel", "téléphone", "portable", "fax"},
		LangIT: {"tel", "telefono", "cellulare", "fax"},
	},
	"PERSON": {
		LangEN: {"name", "mr", "mrs", "ms", "dear"},
		LangDE: {"name", "herr", "frau", "vorname", "nachname"},
		LangFR: {"nom", "prénom", "monsieur", "madame"},
		LangIT: {"nome", "cognome", "signor", "signora"},
	},
	"ADDRESS": {
		LangEN: {"address", "street"},
		LangDE: {"adresse", "anschrift", "wohnort", "strasse"},
		LangFR: {"adresse", "domicile"},
		LangIT: {"indirizzo", "domicilio"},
	},
	"IBAN": {
		LangEN: {"iban", "account", "bank"},
		LangDE: {"iban", "konto", "bank"},
		LangFR: {"iban", "compte", "banque"},
		LangIT: {"iban", "conto", "banca"},
	},
	"SWISS_SOCIAL_INSURANCE_NUMBER": {
		LangEN: {"ahv", "avs", "social security", "insurance number"},
		LangDE: {"ahv", "ahv-nr", "sozialversicherungsnummer", "versichertennummer"},
		LangFR: {"avs", "no avs", "numéro avs", "assurance sociale"},
		LangIT: {"avs", "numero avs", "assicurazione sociale"},
	},
	"VAT_NUMBER": {
		LangEN: {"vat", "uid", "tax id"},
		LangDE: {"mwst", "uid", "ust-idnr"},
		LangFR: {"tva", "ide"},
		LangIT: {"iva", "idi"},
	},
	"DATE": {
		LangEN: {"date", "born", "birth", "dob"},
		LangDE: {"datum", "geboren", "geburtsdatum"},
		LangFR: {"date", "né", "née", "naissance"},
		LangIT: {"data", "nato", "nata", "nascita"},
	},
	"ACCOUNT_NUMBER": {
		LangEN: {"customer", "account", "reference"},
		LangDE: {"kunden", "konto", "referenz"},
		LangFR: {"client", "compte", "référence"},
		LangIT: {"cliente", "conto", "riferimento"},
	},
}

func init() {
	// Postal addresses share the address labels.
	labelKeywords["SWISS_POSTAL_ADDRESS"] = labelKeywords["ADDRESS"]
}

// LabelKeywords returns the folded label keywords for an entity type in lang.
// English labels are always included since they appear in every language.
func LabelKeywords(entityType, lang string) []string {
	byLang, ok := labelKeywords[entityType]
	if !ok {
		return nil
	}
	lang = NormalizeLanguage(lang)
	seen := map[string]struct{}{}
	var out []string
	for _, l := range []string{lang, LangEN} {
		for _, k := range byLang[l] {
			f := Fold(k)
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}

// ContainsKeyword reports whether folded window text contains any keyword as
// a whole word.
func ContainsKeyword(foldedWindow string, keywords []string) bool {
	for _, k := range keywords {
		idx := 0
		for {
			i := strings.Index(foldedWindow[idx:], k)
			if i < 0 {
				break
			}
			start := idx + i
			end := start + len(k)
			if isWordEdge(foldedWindow, start-1) && isWordEdge(foldedWindow, end) {
				return true
			}
			idx = start + 1
			if idx >= len(foldedWindow) {
				break
			}
		}
	}
	return false
}

func isWordEdge(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	c := s[i]
	return !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c >= 0x80)
}
