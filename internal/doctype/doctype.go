// Package doctype classifies documents so the high-recall pass can pick a
// rule set.
package doctype

import (
	"strings"

	"github.com/straja-ai/docshield/internal/lexicon"
)

// Type is a document class.
type Type string

const (
	Invoice  Type = "INVOICE"
	Letter   Type = "LETTER"
	Form     Type = "FORM"
	Contract Type = "CONTRACT"
	Report   Type = "REPORT"
	Unknown  Type = "UNKNOWN"
)

// Parse maps a free-form name onto a Type; unrecognized names give Unknown.
func Parse(s string) Type {
	switch t := Type(strings.ToUpper(strings.TrimSpace(s))); t {
	case Invoice, Letter, Form, Contract, Report:
		return t
	}
	return Unknown
}

// Result is a classification outcome.
type Result struct {
	Type       Type    `json:"type"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
}

// Classifier assigns a document type.
type Classifier interface {
	Classify(text string) Result
}

// scanLimit bounds how much of the document the keyword classifier reads.
const scanLimit = 4096

var typeKeywords = map[Type][]string{
	Invoice: {
		"invoice", "rechnung", "facture", "fattura", "amount due", "total due",
		"zahlbar bis", "payable", "montant", "betrag", "mwst", "tva", "iva", "qr-rechnung",
	},
	Letter: {
		"dear", "sehr geehrte", "sehr geehrter", "madame", "monsieur", "gentile",
		"egregio", "kind regards", "mit freundlichen grussen", "freundliche grusse",
		"salutations", "cordiali saluti", "distinti saluti",
	},
	Form: {
		"name:", "vorname:", "nom:", "prenom:", "cognome:", "date of birth",
		"geburtsdatum", "date de naissance", "data di nascita", "signature:", "unterschrift",
		"please fill", "bitte ausfullen", "formulaire", "formular", "modulo",
	},
	Contract: {
		"contract", "vertrag", "contrat", "contratto", "agreement", "vereinbarung",
		"the parties", "die parteien", "les parties", "le parti", "clause", "klausel", "article",
	},
	Report: {
		"report", "bericht", "rapport", "rapporto", "summary", "zusammenfassung",
		"resume", "riassunto", "findings", "ergebnisse", "conclusion", "fazit",
	},
}

var languageHints = map[string][]string{
	lexicon.LangDE: {"und", "der", "die", "das", "mit", "sehr", "geehrte", "rechnung", "strasse"},
	lexicon.LangFR: {"et", "le", "la", "les", "des", "avec", "madame", "monsieur", "facture", "rue"},
	lexicon.LangIT: {"e", "il", "della", "con", "gentile", "fattura", "via", "sono"},
	lexicon.LangEN: {"and", "the", "with", "dear", "invoice", "street", "please"},
}

// KeywordClassifier scores each type by keyword hits over the first part
// of the document.
type KeywordClassifier struct {
	minHits  int
	fallback string
}

// NewKeywordClassifier returns a classifier that needs at least minHits
// keyword hits before leaving Unknown.
func NewKeywordClassifier(minHits int) *KeywordClassifier {
	if minHits < 1 {
		minHits = 1
	}
	return &KeywordClassifier{minHits: minHits, fallback: lexicon.LangEN}
}

// WithFallbackLanguage returns a copy that reports lang when no language
// hint is found in the text.
func (c *KeywordClassifier) WithFallbackLanguage(lang string) *KeywordClassifier {
	cp := *c
	cp.fallback = lexicon.NormalizeLanguage(lang)
	return &cp
}

func (c *KeywordClassifier) Classify(text string) Result {
	head := text
	if len(head) > scanLimit {
		head = head[:scanLimit]
	}
	folded := lexicon.Fold(head)

	best, bestHits, total := Unknown, 0, 0
	for _, t := range []Type{Invoice, Letter, Form, Contract, Report} {
		hits := countHits(folded, typeKeywords[t])
		total += hits
		if hits > bestHits {
			best, bestHits = t, hits
		}
	}
	res := Result{Type: Unknown, Language: detectLanguage(folded, c.fallback)}
	if bestHits < c.minHits {
		return res
	}
	res.Type = best
	res.Confidence = float64(bestHits) / float64(total)
	return res
}

func countHits(folded string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if lexicon.ContainsKeyword(folded, []string{lexicon.Fold(kw)}) {
			n++
		}
	}
	return n
}

func detectLanguage(folded, fallback string) string {
	words := strings.FieldsFunc(folded, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	seen := make(map[string]int, len(words))
	for _, w := range words {
		seen[w]++
	}
	best, bestScore := fallback, 0
	for _, lang := range lexicon.Languages {
		score := 0
		for _, h := range languageHints[lang] {
			score += seen[h]
		}
		if score > bestScore {
			best, bestScore = lang, score
		}
	}
	return best
}

// Static always returns the same result. Callers that already know the
// document type use it to bypass classification.
type Static Result

func (s Static) Classify(string) Result { return Result(s) }
