// Package validate holds the per-type format validators, the confidence
// policy they report against, the registry that maps each entity type to
// exactly one validator, and the pass that applies them.
package validate

import (
	"fmt"

	"github.com/straja-ai/docshield/internal/safety"
)

// Validator checks the format of one entity type. Implementations must be
// pure and must reject inputs longer than MaxLength before running any
// regular expression.
type Validator interface {
	Name() string
	EntityType() safety.EntityType
	MaxLength() int
	Validate(text string) Outcome
}

// ContextValidator is implemented by validators that can use the text
// immediately preceding a candidate.
type ContextValidator interface {
	Validator
	ValidateInContext(text, before string) Outcome
}

// Outcome is the result of one validation. Reason is set on rejection.
type Outcome struct {
	Valid      bool    `json:"is_valid"`
	Confidence float64 `json:"confidence"`
	Tier       Tier    `json:"tier"`
	Reason     string  `json:"reason,omitempty"`
}

// ReasonTooLong prefixes every length-cap rejection.
const ReasonTooLong = "input exceeds maximum length"

// lengthGuard rejects oversized input. It runs before any pattern matching.
func lengthGuard(p Policy, v Validator, text string) (Outcome, bool) {
	if max := v.MaxLength(); max > 0 && len(text) > max {
		return p.Reject(TierFormatInvalid, fmt.Sprintf("%s: %d > %d bytes", ReasonTooLong, len(text), max)), false
	}
	return Outcome{}, true
}
