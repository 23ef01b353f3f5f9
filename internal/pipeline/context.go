// Package pipeline sequences detection passes over one document and merges
// their output.
package pipeline

import (
	"context"
	"time"

	"github.com/straja-ai/docshield/internal/doctype"
	"github.com/straja-ai/docshield/internal/safety"
)

// Pass is one detection stage. Execute receives a private copy of the
// entities found so far and returns the updated list. Passes must not drop
// entities; they add, annotate or re-score.
type Pass interface {
	Name() string
	Execute(ctx context.Context, text string, entities []safety.Entity, rc *RunContext) ([]safety.Entity, error)
}

// RunContext is the state of one Process call. It is never shared between
// documents.
type RunContext struct {
	DocumentID   string
	Language     string
	DocumentType doctype.Type
	Metadata     map[string]string
	PassResults  []PassResult
	StartTime    time.Time
}

func newRunContext(docID, language string, docType doctype.Type) *RunContext {
	return &RunContext{
		DocumentID:   docID,
		Language:     language,
		DocumentType: docType,
		Metadata:     make(map[string]string),
		StartTime:    time.Now(),
	}
}

// EntityID returns the stable ID for an entity of type t at [start,end).
func (rc *RunContext) EntityID(t safety.EntityType, start, end int) string {
	docID := ""
	if rc != nil {
		docID = rc.DocumentID
	}
	return safety.EntityID(docID, t, start, end)
}

// SetMetadata records an opaque key/value for this run.
func (rc *RunContext) SetMetadata(key, value string) {
	if rc.Metadata == nil {
		rc.Metadata = make(map[string]string)
	}
	rc.Metadata[key] = value
}

// NewEntity builds an entity over text[start:end] with a stable ID.
func (rc *RunContext) NewEntity(text string, t safety.EntityType, start, end int, confidence float64, source safety.Source) safety.Entity {
	return safety.Entity{
		ID:         rc.EntityID(t, start, end),
		Type:       t,
		Text:       text[start:end],
		Start:      start,
		End:        end,
		Confidence: safety.ClampConfidence(confidence),
		Source:     source,
	}
}

// PassResult records what one pass did.
type PassResult struct {
	PassName         string        `json:"pass_name"`
	EntitiesAdded    int           `json:"entities_added"`
	EntitiesModified int           `json:"entities_modified"`
	Duration         time.Duration `json:"-"`
	DurationMs       float64       `json:"duration_ms"`
	Error            string        `json:"error,omitempty"`
}

// Failed reports whether the pass was skipped because of an error.
func (r PassResult) Failed() bool { return r.Error != "" }

// Metadata summarizes a run.
type Metadata struct {
	Language               string                     `json:"language"`
	DocumentTypeConfidence float64                    `json:"document_type_confidence"`
	TotalDuration          time.Duration              `json:"-"`
	TotalDurationMs        float64                    `json:"total_duration_ms"`
	PassResults            []PassResult               `json:"pass_results"`
	EntityCounts           map[safety.EntityType]int  `json:"entity_counts"`
	NeedsReview            int                        `json:"needs_review"`
	Extra                  map[string]string          `json:"extra,omitempty"`
}

// Result is the output of Process.
type Result struct {
	DocumentID   string          `json:"document_id"`
	Entities     []safety.Entity `json:"entities"`
	DocumentType doctype.Type    `json:"document_type"`
	Metadata     Metadata        `json:"metadata"`
}

// Document is one input of ProcessBatch.
type Document struct {
	ID       string
	Text     string
	Language string
	Options  []ProcessOption
}

// Observer receives every finished result. Observers must not mutate it.
type Observer interface {
	ObserveResult(ctx context.Context, res *Result)
}
