package validate

import (
	"strings"

	"github.com/straja-ai/docshield/internal/safety"
)

const maxSSNLen = 20

// SocialInsuranceValidator checks Swiss 13-digit social insurance numbers
// (756 prefix) with an EAN-13 check digit.
type SocialInsuranceValidator struct {
	policy Policy
}

func NewSocialInsuranceValidator(p Policy) *SocialInsuranceValidator {
	return &SocialInsuranceValidator{policy: p}
}

func (v *SocialInsuranceValidator) Name() string { return "swiss_social_insurance" }
func (v *SocialInsuranceValidator) EntityType() safety.EntityType {
	return safety.TypeSwissSocialInsuranceNumber
}
func (v *SocialInsuranceValidator) MaxLength() int { return maxSSNLen }

func (v *SocialInsuranceValidator) Validate(text string) Outcome {
	if out, ok := lengthGuard(v.policy, v, text); !ok {
		return out
	}
	digits := make([]byte, 0, 13)
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c >= '0' && c <= '9':
			digits = append(digits, c)
		case c == '.' || c == ' ' || c == '-':
		default:
			return v.policy.Reject(TierFormatInvalid, "social insurance number contains non-digit characters")
		}
	}
	if len(digits) != 13 {
		return v.policy.Reject(TierFormatInvalid, "social insurance number must have 13 digits")
	}
	if !strings.HasPrefix(string(digits), "756") {
		return v.policy.Reject(TierFormatInvalid, "social insurance number must start with 756")
	}
	if ean13CheckDigit(digits[:12]) != int(digits[12]-'0') {
		return v.policy.Reject(TierValidationFailed, "social insurance number checksum mismatch (EAN-13)")
	}
	return v.policy.Accept(TierChecksumVerified)
}

// ean13CheckDigit weights the first twelve digits 1,3,1,3,... from the left.
func ean13CheckDigit(first12 []byte) int {
	sum := 0
	for i, c := range first12 {
		d := int(c - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return (10 - sum%10) % 10
}
