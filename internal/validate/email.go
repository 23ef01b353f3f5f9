package validate

import (
	"regexp"
	"strings"

	"github.com/straja-ai/docshield/internal/safety"
)

const maxEmailLen = 254

var emailShapeRe = regexp.MustCompile(`^[a-z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+(?:\.[a-z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+)*@(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+[a-z]{2,63}$`)

// EmailValidator checks address syntax: a single @, no consecutive dots
// and a top-level domain of at least two letters.
type EmailValidator struct {
	policy Policy
}

func NewEmailValidator(p Policy) *EmailValidator { return &EmailValidator{policy: p} }

func (v *EmailValidator) Name() string                  { return "email" }
func (v *EmailValidator) EntityType() safety.EntityType { return safety.TypeEmail }
func (v *EmailValidator) MaxLength() int                { return maxEmailLen }

func (v *EmailValidator) Validate(text string) Outcome {
	if out, ok := lengthGuard(v.policy, v, text); !ok {
		return out
	}
	s := strings.ToLower(strings.TrimSpace(text))
	if strings.Count(s, "@") != 1 {
		return v.policy.Reject(TierFormatInvalid, "email must contain exactly one @")
	}
	local, domain, _ := strings.Cut(s, "@")
	if local == "" || len(local) > 64 {
		return v.policy.Reject(TierFormatInvalid, "email local part empty or longer than 64")
	}
	if strings.Contains(s, "..") {
		return v.policy.Reject(TierFormatInvalid, "email contains consecutive dots")
	}
	if i := strings.LastIndexByte(domain, '.'); i < 0 || len(domain)-i-1 < 2 {
		return v.policy.Reject(TierFormatInvalid, "email top-level domain shorter than two letters")
	}
	if !emailShapeRe.MatchString(s) {
		return v.policy.Reject(TierFormatInvalid, "email does not match address syntax")
	}
	return v.policy.Accept(TierFormatVerified)
}
