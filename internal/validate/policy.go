package validate

import (
	"fmt"
	"sort"
)

// Tier names a confidence class. Validators report tiers; the policy table
// maps them to numbers.
type Tier string

const (
	TierChecksumVerified   Tier = "checksum_verified"
	TierFormatVerified     Tier = "format_verified"
	TierStandardPattern    Tier = "standard_pattern"
	TierRegionalFormat     Tier = "regional_format"
	TierWeakPattern        Tier = "weak_pattern"
	TierUncertain          Tier = "uncertain"
	TierFormatInvalid      Tier = "format_invalid"
	TierValidationFailed   Tier = "validation_failed"
	TierKnownFalsePositive Tier = "known_false_positive"
)

// tierOrder lists tiers from most to least trusted. Any policy must keep
// confidences strictly decreasing along it.
var tierOrder = []Tier{
	TierChecksumVerified,
	TierFormatVerified,
	TierStandardPattern,
	TierRegionalFormat,
	TierWeakPattern,
	TierUncertain,
	TierFormatInvalid,
	TierValidationFailed,
	TierKnownFalsePositive,
}

// Policy is the confidence table.
type Policy map[Tier]float64

// DefaultPolicy returns the reference confidence table.
func DefaultPolicy() Policy {
	return Policy{
		TierChecksumVerified:   0.95,
		TierFormatVerified:     0.90,
		TierStandardPattern:    0.85,
		TierRegionalFormat:     0.82,
		TierWeakPattern:        0.75,
		TierUncertain:          0.50,
		TierFormatInvalid:      0.40,
		TierValidationFailed:   0.30,
		TierKnownFalsePositive: 0.20,
	}
}

// WithOverrides returns a copy of p with the given tier values replaced.
func (p Policy) WithOverrides(overrides map[string]float64) (Policy, error) {
	out := make(Policy, len(p))
	for k, v := range p {
		out[k] = v
	}
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		tier := Tier(k)
		if _, ok := out[tier]; !ok {
			return nil, fmt.Errorf("unknown confidence tier %q", k)
		}
		out[tier] = overrides[k]
	}
	return out, out.Check()
}

// Check verifies the table covers every tier, stays in [0,1] and preserves
// the tier ordering.
func (p Policy) Check() error {
	prev := 2.0
	for _, t := range tierOrder {
		v, ok := p[t]
		if !ok {
			return fmt.Errorf("confidence tier %q missing", t)
		}
		if v < 0 || v > 1 {
			return fmt.Errorf("confidence tier %q out of range: %v", t, v)
		}
		if v >= prev {
			return fmt.Errorf("confidence tier %q (%v) must be below the previous tier (%v)", t, v, prev)
		}
		prev = v
	}
	return nil
}

// Confidence returns the value for tier.
func (p Policy) Confidence(t Tier) float64 {
	if v, ok := p[t]; ok {
		return v
	}
	return DefaultPolicy()[t]
}

// Accept builds a passing outcome.
func (p Policy) Accept(t Tier) Outcome {
	return Outcome{Valid: true, Confidence: p.Confidence(t), Tier: t}
}

// Reject builds a failing outcome.
func (p Policy) Reject(t Tier, reason string) Outcome {
	return Outcome{Valid: false, Confidence: p.Confidence(t), Tier: t, Reason: reason}
}
