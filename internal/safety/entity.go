package safety

import (
	"slices"
	"strings"
)

// EntityType is the closed set of PII categories the pipeline emits.
type EntityType string

const (
	TypePerson                     EntityType = "PERSON"
	TypeOrganization               EntityType = "ORGANIZATION"
	TypeLocation                   EntityType = "LOCATION"
	TypeEmail                      EntityType = "EMAIL"
	TypePhone                      EntityType = "PHONE"
	TypeAddress                    EntityType = "ADDRESS"
	TypeSwissSocialInsuranceNumber EntityType = "SWISS_SOCIAL_INSURANCE_NUMBER"
	TypeIBAN                       EntityType = "IBAN"
	TypeVATNumber                  EntityType = "VAT_NUMBER"
	TypeDate                       EntityType = "DATE"
	TypeSwissPostalAddress         EntityType = "SWISS_POSTAL_ADDRESS"
	TypeAccountNumber              EntityType = "ACCOUNT_NUMBER"

	// TypeAmount is reserved. Amounts without account context are not PII,
	// so detection stays off unless explicitly enabled.
	TypeAmount EntityType = "AMOUNT"

	// Address sub-components, only produced and consumed by address linking.
	TypeStreetName   EntityType = "STREET_NAME"
	TypeStreetNumber EntityType = "STREET_NUMBER"
	TypePostalCode   EntityType = "POSTAL_CODE"
	TypeCity         EntityType = "CITY"
	TypeCountry      EntityType = "COUNTRY"
)

var knownTypes = []EntityType{
	TypePerson, TypeOrganization, TypeLocation, TypeEmail, TypePhone,
	TypeAddress, TypeSwissSocialInsuranceNumber, TypeIBAN, TypeVATNumber,
	TypeDate, TypeSwissPostalAddress, TypeAccountNumber, TypeAmount,
	TypeStreetName, TypeStreetNumber, TypePostalCode, TypeCity, TypeCountry,
}

// typeAliases maps labels commonly emitted by NER models onto our types.
var typeAliases = map[string]EntityType{
	"PER":          TypePerson,
	"PERSON":       TypePerson,
	"NAME":         TypePerson,
	"ORG":          TypeOrganization,
	"LOC":          TypeLocation,
	"GPE":          TypeLocation,
	"MAIL":         TypeEmail,
	"E-MAIL":       TypeEmail,
	"TEL":          TypePhone,
	"PHONE_NUMBER": TypePhone,
	"TELEPHONE":    TypePhone,
	"AHV":          TypeSwissSocialInsuranceNumber,
	"AVS":          TypeSwissSocialInsuranceNumber,
	"VAT":          TypeVATNumber,
	"UID":          TypeVATNumber,
}

// ParseEntityType normalizes a free-form label. The second return is false
// when the label does not map onto a known type.
func ParseEntityType(label string) (EntityType, bool) {
	norm := strings.ToUpper(strings.TrimSpace(label))
	if norm == "" {
		return "", false
	}
	if t, ok := typeAliases[norm]; ok {
		return t, true
	}
	if slices.Contains(knownTypes, EntityType(norm)) {
		return EntityType(norm), true
	}
	return "", false
}

// IsAddressComponent reports whether t is one of the address sub-component types.
func (t EntityType) IsAddressComponent() bool {
	switch t {
	case TypeStreetName, TypeStreetNumber, TypePostalCode, TypeCity, TypeCountry:
		return true
	}
	return false
}

// Source tags the provenance of an entity.
type Source string

const (
	SourceModel  Source = "MODEL"
	SourceRule   Source = "RULE"
	SourceBoth   Source = "BOTH"
	SourceManual Source = "MANUAL"
)

// MergeSource combines the provenance of two copies of the same entity.
// Manual marks are authoritative and survive any merge.
func MergeSource(a, b Source) Source {
	switch {
	case a == b:
		return a
	case a == SourceManual || b == SourceManual:
		return SourceManual
	case a == "":
		return b
	case b == "":
		return a
	default:
		return SourceBoth
	}
}

// Entity is a detected span of PII. Start and End are byte offsets into the
// source text, half-open, and are what passes slice with. CharStart and
// CharEnd are the same span in code points; they are filled on pipeline
// output and serialize as "start" and "end".
type Entity struct {
	ID           string     `json:"id"`
	Type         EntityType `json:"entity_type"`
	Text         string     `json:"text"`
	Start        int        `json:"byte_start"`
	End          int        `json:"byte_end"`
	CharStart    int        `json:"start"`
	CharEnd      int        `json:"end"`
	Confidence   float64    `json:"confidence"`
	Source       Source     `json:"source"`
	Components   []Entity   `json:"components,omitempty"`
	Reason       string     `json:"reason,omitempty"`
	NeedsReview  bool       `json:"needs_review,omitempty"`
	Linked       bool       `json:"linked,omitempty"`
	AutoAccepted bool       `json:"auto_accepted,omitempty"`
}

// Len returns the span length in bytes.
func (e Entity) Len() int { return e.End - e.Start }

// Overlaps reports whether the spans of e and o intersect.
func (e Entity) Overlaps(o Entity) bool {
	return e.Start < o.End && o.Start < e.End
}

// SpanValid checks start < end, bounds, and that Text is the exact substring.
func (e Entity) SpanValid(source string) bool {
	if e.Start < 0 || e.Start >= e.End || e.End > len(source) {
		return false
	}
	return source[e.Start:e.End] == e.Text
}

// Clone returns a deep copy, including components.
func (e Entity) Clone() Entity {
	out := e
	if len(e.Components) > 0 {
		out.Components = make([]Entity, len(e.Components))
		for i, c := range e.Components {
			out.Components[i] = c.Clone()
		}
	}
	return out
}

// CloneAll deep-copies a slice of entities.
func CloneAll(in []Entity) []Entity {
	if in == nil {
		return nil
	}
	out := make([]Entity, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}
	return out
}

// SortBySpan orders entities by start, then longer spans first, then type.
func SortBySpan(in []Entity) {
	slices.SortStableFunc(in, func(a, b Entity) int {
		if a.Start != b.Start {
			return a.Start - b.Start
		}
		if a.End != b.End {
			return b.End - a.End
		}
		return strings.Compare(string(a.Type), string(b.Type))
	})
}

// ClampConfidence bounds v to [0,1].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
