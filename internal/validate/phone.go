package validate

import (
	"regexp"
	"strings"

	"github.com/straja-ai/docshield/internal/safety"
)

const maxPhoneLen = 32

var (
	phoneSeparators = strings.NewReplacer(" ", "", "-", "", "/", "", ".", "", "(", "", ")", "", "\u00a0", "")
	swissPhoneRe    = regexp.MustCompile(`^(?:\+41|0041|0)[1-9]\d{8}$`)
	intlPhoneRe     = regexp.MustCompile(`^(?:\+|00)(\d{7,14})$`)
	nationalPhoneRe = regexp.MustCompile(`^0\d{6,12}$`)
	phoneCharsRe    = regexp.MustCompile(`^\+?[\d \-/.()\x{00a0}]+$`)
)

// europeanCallingCodes covers the EU/EFTA/UK numbering plans accepted as
// valid international numbers. Switzerland is handled separately.
var europeanCallingCodes = []string{
	"30", "31", "32", "33", "34", "36", "39", "40", "43", "44", "45", "46", "47", "48", "49",
	"350", "351", "352", "353", "354", "356", "357", "358", "359", "370", "371", "372",
	"385", "386", "420", "421", "423",
}

// PhoneValidator accepts Swiss numbers in national or international form
// and international numbers from European calling codes.
type PhoneValidator struct {
	policy Policy
}

func NewPhoneValidator(p Policy) *PhoneValidator { return &PhoneValidator{policy: p} }

func (v *PhoneValidator) Name() string                  { return "phone" }
func (v *PhoneValidator) EntityType() safety.EntityType { return safety.TypePhone }
func (v *PhoneValidator) MaxLength() int                { return maxPhoneLen }

func (v *PhoneValidator) Validate(text string) Outcome {
	if out, ok := lengthGuard(v.policy, v, text); !ok {
		return out
	}
	raw := strings.TrimSpace(text)
	if !phoneCharsRe.MatchString(raw) {
		return v.policy.Reject(TierFormatInvalid, "phone contains characters other than digits and separators")
	}
	// "+41 (0)44 ..." carries a redundant trunk prefix.
	raw = strings.Replace(raw, "(0)", "", 1)
	compact := phoneSeparators.Replace(raw)

	if swissPhoneRe.MatchString(compact) {
		return v.policy.Accept(TierFormatVerified)
	}
	if m := intlPhoneRe.FindStringSubmatch(compact); m != nil {
		digits := m[1]
		if strings.HasPrefix(digits, "41") {
			return v.policy.Reject(TierValidationFailed, "swiss number has wrong length")
		}
		for _, cc := range europeanCallingCodes {
			if strings.HasPrefix(digits, cc) {
				return v.policy.Accept(TierStandardPattern)
			}
		}
		return v.policy.Reject(TierValidationFailed, "calling code outside supported numbering plans")
	}
	if nationalPhoneRe.MatchString(compact) {
		return v.policy.Reject(TierValidationFailed, "national number does not match swiss numbering plan")
	}
	return v.policy.Reject(TierValidationFailed, "does not match swiss or european numbering plan")
}
