package lexicon

// documentNouns are document or business words that commonly follow a
// four-digit year and would otherwise read as "<postal code> <city>".
var documentNouns = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"attestation", "certificate", "certificat", "zertifikat", "bescheinigung", "certificato",
		"invoice", "rechnung", "facture", "fattura", "quittung", "recu", "ricevuta", "receipt",
		"contract", "vertrag", "contrat", "contratto", "report", "bericht", "rapport", "rapporto",
		"jahresbericht", "bilanz", "bilan", "bilancio", "total", "totale", "betrag", "montant",
		"importo", "amount", "seite", "page", "pagina", "chf", "eur", "usd", "mwst", "tva", "iva",
		"vat", "nr", "no", "jahr", "annee", "anno", "year", "offerte", "offre", "offerta",
		"mahnung", "rappel", "sollecito", "lohnausweis", "steuer", "steuererklarung", "impot",
		"imposta", "tax", "statement", "auszug", "releve", "estratto", "police", "polizza",
		"versicherung", "assurance", "assicurazione", "edition", "ausgabe", "version",
	} {
		documentNouns[foldKey(w)] = struct{}{}
	}
}

// IsDocumentNoun reports whether word is a generic document/business noun.
func IsDocumentNoun(word string) bool {
	_, ok := documentNouns[foldKey(word)]
	return ok
}
