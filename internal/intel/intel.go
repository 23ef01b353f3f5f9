// Package intel implements the high-recall detection pass: a fixed table
// of regex patterns, document-type rule sets and an optional external
// entity source, fused into one over-inclusive candidate list.
package intel

import (
	"context"

	"github.com/straja-ai/docshield/internal/safety"
)

// Status describes an entity source.
type Status struct {
	Enabled       bool   `json:"enabled"`
	SourceID      string `json:"source_id"`
	SourceVersion string `json:"source_version"`
}

// EntitySource is an external entity recognizer, typically an ML model.
// Offsets in the returned predictions are byte offsets into text.
type EntitySource interface {
	Status() Status
	Predict(ctx context.Context, text string) ([]safety.Prediction, error)
}
