package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/straja-ai/docshield/internal/lexicon"
	"github.com/straja-ai/docshield/internal/safety"
)

const (
	maxAddressLen    = 200
	maxPostalCodeLen = 120
)

var (
	postalLineRe = regexp.MustCompile(`^(?:CH[-\s]?)?(\d{4})(?:\s+(.+))?$`)
	dateMarkRe   = regexp.MustCompile(`(?:^|[^\d])\d{1,2}[./]\d{1,2}[./]\s*$`)
	dateWordRe   = regexp.MustCompile(`(?i)(?:^|[^\pL])(?:date\s*:|datum\s*:|data\s*:|depuis|le|seit|dal)\s*$`)
)

// SwissAddressValidator rejects "<4 digits> <word>" candidates that are not
// postal lines: document titles after a year, dates, out-of-range codes.
type SwissAddressValidator struct {
	policy      Policy
	extraCities map[string]struct{}
	extraDeny   map[string]struct{}
}

// NewSwissAddressValidator builds the validator. extraCities and extraDeny
// extend the built-in locality and document-noun lists.
func NewSwissAddressValidator(p Policy, extraCities, extraDeny []string) *SwissAddressValidator {
	return &SwissAddressValidator{
		policy:      p,
		extraCities: keySet(extraCities),
		extraDeny:   keySet(extraDeny),
	}
}

func (v *SwissAddressValidator) Name() string { return "swiss_address" }
func (v *SwissAddressValidator) EntityType() safety.EntityType {
	return safety.TypeSwissPostalAddress
}
func (v *SwissAddressValidator) MaxLength() int { return maxAddressLen }

func (v *SwissAddressValidator) Validate(text string) Outcome {
	return v.ValidateInContext(text, "")
}

// ValidateInContext also rejects candidates preceded by a date fragment
// ("15.03." or "Date:") unless the locality is known.
func (v *SwissAddressValidator) ValidateInContext(text, before string) Outcome {
	if out, ok := lengthGuard(v.policy, v, text); !ok {
		return out
	}
	code, locality, ok := splitPostalLine(text)
	if !ok {
		return v.policy.Reject(TierFormatInvalid, "not a four-digit postal code followed by a locality")
	}
	if !lexicon.InSwissPostalRange(code) {
		return v.policy.Reject(TierValidationFailed, fmt.Sprintf("postal code %d outside swiss range", code))
	}
	if locality == "" || !hasLetter(locality) {
		return v.policy.Reject(TierFormatInvalid, "locality missing")
	}

	known := v.isKnownCity(locality)
	if !known {
		fields := strings.Fields(locality)
		last := strings.Trim(fields[len(fields)-1], ".,;:")
		if lexicon.IsMonthName(last) || lexicon.IsDocumentNoun(last) || v.isDenied(last) {
			return v.policy.Reject(TierKnownFalsePositive, fmt.Sprintf("trailing token %q is a month or document noun", last))
		}
		if before != "" && (dateMarkRe.MatchString(before) || dateWordRe.MatchString(before)) {
			return v.policy.Reject(TierKnownFalsePositive, "preceded by a date fragment")
		}
	}

	switch {
	case known:
		return v.policy.Accept(TierFormatVerified)
	case code >= minYear && code <= maxYear:
		return v.policy.Accept(TierWeakPattern)
	default:
		return v.policy.Accept(TierStandardPattern)
	}
}

// isKnownCity accepts the locality when it, or a leading run of its words,
// names a known city ("8001 Zürich Hauptbahnhof").
func (v *SwissAddressValidator) isKnownCity(locality string) bool {
	words := strings.Fields(locality)
	for n := len(words); n > 0; n-- {
		name := strings.Join(words[:n], " ")
		if lexicon.IsKnownCity(name) {
			return true
		}
		if _, ok := v.extraCities[lexicon.Key(name)]; ok {
			return true
		}
	}
	return false
}

func (v *SwissAddressValidator) isDenied(word string) bool {
	_, ok := v.extraDeny[lexicon.Key(word)]
	return ok
}

// PostalCodeValidator is the lightweight fallback for postal lines: range
// check plus locality lookup, no deny list.
type PostalCodeValidator struct {
	policy Policy
}

func NewPostalCodeValidator(p Policy) *PostalCodeValidator { return &PostalCodeValidator{policy: p} }

func (v *PostalCodeValidator) Name() string { return "swiss_postal_code" }
func (v *PostalCodeValidator) EntityType() safety.EntityType {
	return safety.TypeSwissPostalAddress
}
func (v *PostalCodeValidator) MaxLength() int { return maxPostalCodeLen }

func (v *PostalCodeValidator) Validate(text string) Outcome {
	if out, ok := lengthGuard(v.policy, v, text); !ok {
		return out
	}
	code, locality, ok := splitPostalLine(text)
	if !ok {
		return v.policy.Reject(TierFormatInvalid, "not a four-digit postal code")
	}
	if !lexicon.InSwissPostalRange(code) {
		return v.policy.Reject(TierValidationFailed, fmt.Sprintf("postal code %d outside swiss range", code))
	}
	if locality != "" && lexicon.CityMatchesPostalCode(code, locality) {
		return v.policy.Accept(TierFormatVerified)
	}
	if lexicon.IsKnownPostalCode(code) {
		return v.policy.Accept(TierStandardPattern)
	}
	return v.policy.Accept(TierWeakPattern)
}

func splitPostalLine(text string) (int, string, bool) {
	m := postalLineRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, "", false
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}
	return code, strings.TrimSpace(m[2]), true
}

func hasLetter(s string) bool {
	for _, r := range s {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || r > 0x7f {
			return true
		}
	}
	return false
}

func keySet(words []string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if k := lexicon.Key(w); k != "" {
			out[k] = struct{}{}
		}
	}
	return out
}
