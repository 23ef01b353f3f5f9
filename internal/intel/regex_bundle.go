package intel

import (
	"regexp"

	"github.com/straja-ai/docshield/internal/doctype"
	"github.com/straja-ai/docshield/internal/safety"
	"github.com/straja-ai/docshield/internal/validate"
)

// PatternDef is one high-recall pattern. Lower Priority wins same-type
// overlaps; Specific patterns win cross-type overlaps against non-specific
// ones. Group selects the submatch that forms the entity (0 = whole match).
// Trim, when set, may shorten a match by returning a smaller end offset.
type PatternDef struct {
	Name       string
	Type       safety.EntityType
	Priority   int
	Specific   bool
	Confidence float64
	Group      int
	Re         *regexp.Regexp
	Trim       func(text string, start, end int) int
}

// BundleConfig toggles optional rule sets.
type BundleConfig struct {
	// AmountEnabled turns on currency amount detection. Amounts without
	// account context are not personal data, so it stays off by default.
	AmountEnabled bool
}

// RegexBundle holds every detection pattern. It is immutable after
// construction and shared by all documents.
type RegexBundle struct {
	id      string
	version string

	base    []PatternDef
	byType  map[doctype.Type][]PatternDef
	amounts []PatternDef
	cfg     BundleConfig
}

const (
	personName = `\p{Lu}[\pL'’\-]+(?:[ \t]+\p{Lu}[\pL'’\-]+){0,2}`
	euVATCodes = `AT|BE|BG|CY|CZ|DE|DK|EE|EL|ES|FI|FR|HR|HU|IE|IT|LT|LU|LV|MT|NL|PL|PT|RO|SE|SI|SK`
)

// NewRegexBundle builds the pattern tables.
func NewRegexBundle(cfg BundleConfig) *RegexBundle {
	base := []PatternDef{
		{
			Name: "swiss_ssn", Type: safety.TypeSwissSocialInsuranceNumber, Priority: 1, Specific: true, Confidence: 0.7,
			Re: regexp.MustCompile(`\b756[. ]?\d{4}[. ]?\d{4}[. ]?\d{2}\b`),
		},
		{
			Name: "iban", Type: safety.TypeIBAN, Priority: 1, Specific: true, Confidence: 0.7,
			Re:   regexp.MustCompile(`\b[A-Z]{2}\d{2}(?: ?[A-Z0-9]{4}){2,7}(?: ?[A-Z0-9]{1,4})?\b`),
			Trim: trimIBAN,
		},
		{
			Name: "vat_ch", Type: safety.TypeVATNumber, Priority: 1, Specific: true, Confidence: 0.7,
			Re: regexp.MustCompile(`\bCHE[-\s]?\d{3}[.\s]?\d{3}[.\s]?\d{3}(?:\s?(?:MWST|TVA|IVA))?\b`),
		},
		{
			Name: "vat_eu", Type: safety.TypeVATNumber, Priority: 2, Specific: true, Confidence: 0.6,
			Re: regexp.MustCompile(`\b(?:` + euVATCodes + `)U?\d{8,11}\b`),
		},
		{
			Name: "email", Type: safety.TypeEmail, Priority: 1, Confidence: 0.7,
			Re: regexp.MustCompile(`[A-Za-z0-9._%+\-]{1,64}@[A-Za-z0-9.\-]{1,190}\.[A-Za-z]{2,24}`),
		},
		{
			Name: "date_numeric", Type: safety.TypeDate, Priority: 1, Specific: true, Confidence: 0.6,
			Re: regexp.MustCompile(`\b\d{1,2}[./-]\d{1,2}[./-](?:\d{4}|\d{2})\b`),
		},
		{
			Name: "date_named", Type: safety.TypeDate, Priority: 2, Specific: true, Confidence: 0.55,
			Re: regexp.MustCompile(`\b\d{1,2}(?:\.|er|st|nd|rd|th)?[ \t]+\pL{3,12}\.?,?[ \t]+(?:\d{4}|\d{2})\b`),
		},
		{
			Name: "phone", Type: safety.TypePhone, Priority: 2, Confidence: 0.5,
			Re: regexp.MustCompile(`(?:\+|\b00)?\d(?:[ \-/]?[\d()]){5,17}[ \-/]?\d`),
		},
		{
			Name: "swiss_postal_line", Type: safety.TypeSwissPostalAddress, Priority: 3, Confidence: 0.55,
			Re: regexp.MustCompile(`\b(?:CH-)?[1-9]\d{3}[ \t]+\p{Lu}[\pL'’.\-]+(?:[ \t]\p{Lu}[\pL'’.\-]+){0,2}`),
		},
	}

	salutation := PatternDef{
		Name: "salutation_person", Type: safety.TypePerson, Priority: 3, Confidence: 0.6, Group: 1,
		Re: regexp.MustCompile(`\b(?:Herr|Frau|Monsieur|Madame|Mme|Signor|Signora|Sig\.ra|Sig\.|Mr\.?|Mrs\.?|Ms\.?|Dr\.?)[ \t]+(` + personName + `)`),
	}
	byType := map[doctype.Type][]PatternDef{
		doctype.Invoice: {
			{
				Name: "labeled_account", Type: safety.TypeAccountNumber, Priority: 2, Specific: true, Confidence: 0.65, Group: 1,
				Re: regexp.MustCompile(`(?i)\b(?:kunden-?(?:nummer|nr\.?)|konto-?(?:nummer|nr\.?)|customer[ \t]+(?:no\.?|number|id)|account[ \t]+(?:no\.?|number)|n[°o][ \t]*(?:de[ \t]+)?client|num[ée]ro[ \t]+(?:de[ \t]+)?client|numero[ \t]+cliente|conto[ \t]+n\.?)[ \t]*[:#]?[ \t]*([A-Z0-9][A-Z0-9\-/.]{2,24}[A-Z0-9])`),
			},
		},
		doctype.Letter: {salutation},
		doctype.Contract: {
			salutation,
			{
				Name: "contract_party", Type: safety.TypePerson, Priority: 4, Confidence: 0.5, Group: 1,
				Re: regexp.MustCompile(`(?i:zwischen|between|entre|tra)[ \t]+(` + personName + `)`),
			},
		},
		doctype.Form: {
			{
				Name: "labeled_name", Type: safety.TypePerson, Priority: 2, Confidence: 0.6, Group: 1,
				Re: regexp.MustCompile(`(?i:full[ \t]+name|nachname|vorname|name|pr[ée]nom|nom|cognome|nome)[ \t]*:[ \t]*(` + personName + `)`),
			},
		},
	}

	amounts := []PatternDef{
		{
			Name: "amount", Type: safety.TypeAmount, Priority: 5, Confidence: 0.5,
			Re: regexp.MustCompile(`\b(?:CHF|EUR|USD|Fr\.)[ \t]?\d{1,3}(?:['’ ,.]?\d{3}){0,4}(?:[.,]\d{2}|\.[-–])?`),
		},
	}

	return &RegexBundle{
		id:      "docshield-regex",
		version: "1.0.0",
		base:    base,
		byType:  byType,
		amounts: amounts,
		cfg:     cfg,
	}
}

// Status describes the bundle.
func (b *RegexBundle) Status() Status {
	return Status{Enabled: true, SourceID: b.id, SourceVersion: b.version}
}

// Patterns returns the active patterns for a document type in evaluation
// order: base patterns, then the type's rule set, then opt-in amounts.
func (b *RegexBundle) Patterns(t doctype.Type) []PatternDef {
	out := make([]PatternDef, 0, len(b.base)+len(b.byType[t])+len(b.amounts))
	out = append(out, b.base...)
	out = append(out, b.byType[t]...)
	if b.cfg.AmountEnabled {
		out = append(out, b.amounts...)
	}
	return out
}

// Match is one raw pattern hit.
type Match struct {
	Def   *PatternDef
	Start int
	End   int
}

// Scan runs every active pattern and resolves overlaps.
func (b *RegexBundle) Scan(text string, t doctype.Type) []Match {
	defs := b.Patterns(t)
	var matches []Match
	for i := range defs {
		def := &defs[i]
		for _, loc := range def.Re.FindAllStringSubmatchIndex(text, -1) {
			g := def.Group
			if 2*g+1 >= len(loc) || loc[2*g] < 0 {
				continue
			}
			start, end := loc[2*g], loc[2*g+1]
			if def.Trim != nil {
				end = def.Trim(text, start, end)
			}
			if start >= end {
				continue
			}
			matches = append(matches, Match{Def: def, Start: start, End: end})
		}
	}
	return resolveOverlaps(matches)
}

// trimIBAN cuts a match back to the registered length of its country, so a
// trailing "BIC" or "EUR" grouped like the last block is not absorbed.
func trimIBAN(text string, start, end int) int {
	want, ok := validate.IBANLength(text[start : start+2])
	if !ok {
		return end
	}
	n := 0
	for i := start; i < end; i++ {
		if text[i] == ' ' {
			continue
		}
		n++
		if n == want {
			return i + 1
		}
	}
	return end
}
