package validate

import (
	"regexp"
	"strings"

	"github.com/straja-ai/docshield/internal/safety"
)

const maxVATLen = 32

var (
	swissVATRe = regexp.MustCompile(`^CHE[-\s]?(\d{3})[.\s]?(\d{3})[.\s]?(\d{3})(?:\s*(?:MWST|TVA|IVA|VAT))?$`)
	euVATRe    = regexp.MustCompile(`^(AT|BE|BG|CY|CZ|DE|DK|EE|EL|ES|FI|FR|HR|HU|IE|IT|LT|LU|LV|MT|NL|PL|PT|RO|SE|SI|SK)U?(\d{8,11})$`)
	vatStrip   = strings.NewReplacer(" ", "", ".", "", "-", "")
)

// swissVATWeights are the mod-11 weights for the eight leading UID digits.
var swissVATWeights = [8]int{5, 4, 3, 2, 7, 6, 5, 4}

// VATValidator verifies Swiss UID numbers by weighted mod-11 and accepts EU
// VAT numbers on shape alone.
type VATValidator struct {
	policy Policy
}

func NewVATValidator(p Policy) *VATValidator { return &VATValidator{policy: p} }

func (v *VATValidator) Name() string                  { return "vat" }
func (v *VATValidator) EntityType() safety.EntityType { return safety.TypeVATNumber }
func (v *VATValidator) MaxLength() int                { return maxVATLen }

func (v *VATValidator) Validate(text string) Outcome {
	if out, ok := lengthGuard(v.policy, v, text); !ok {
		return out
	}
	s := strings.ToUpper(strings.TrimSpace(text))
	if m := swissVATRe.FindStringSubmatch(s); m != nil {
		digits := m[1] + m[2] + m[3]
		check, ok := swissVATCheckDigit(digits[:8])
		if !ok {
			return v.policy.Reject(TierValidationFailed, "swiss vat checksum yields 10 (mod 11), number is invalid")
		}
		if check != int(digits[8]-'0') {
			return v.policy.Reject(TierValidationFailed, "swiss vat checksum mismatch (mod 11)")
		}
		return v.policy.Accept(TierChecksumVerified)
	}
	if euVATRe.MatchString(vatStrip.Replace(s)) {
		return v.policy.Accept(TierRegionalFormat)
	}
	return v.policy.Reject(TierFormatInvalid, "vat number matches neither swiss UID nor EU format")
}

// swissVATCheckDigit returns false when the remainder yields the invalid
// check value 10.
func swissVATCheckDigit(first8 string) (int, bool) {
	sum := 0
	for i := 0; i < 8; i++ {
		sum += int(first8[i]-'0') * swissVATWeights[i]
	}
	check := 11 - sum%11
	switch check {
	case 11:
		return 0, true
	case 10:
		return 0, false
	}
	return check, true
}
