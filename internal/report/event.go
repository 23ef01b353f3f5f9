// Package report turns pipeline results into detection summaries and
// delivers them to sinks off the hot path. Summaries carry counts and pass
// outcomes only, never entity text.
package report

import (
	"sort"
	"time"

	"github.com/straja-ai/docshield/internal/pipeline"
	"github.com/straja-ai/docshield/internal/redact"
)

// EventVersion is bumped when the JSON shape changes incompatibly.
const EventVersion = "1"

// PassSummary is the per-pass part of an event.
type PassSummary struct {
	Name       string  `json:"name"`
	Added      int     `json:"added"`
	Modified   int     `json:"modified"`
	DurationMs float64 `json:"duration_ms"`
	Failed     bool    `json:"failed,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// Event is one document's detection summary.
type Event struct {
	Version                string         `json:"version"`
	Timestamp              time.Time      `json:"timestamp"`
	DocumentID             string         `json:"document_id"`
	DocumentType           string         `json:"document_type"`
	DocumentTypeConfidence float64        `json:"document_type_confidence"`
	Language               string         `json:"language"`
	Entities               int            `json:"entities"`
	Counts                 map[string]int `json:"counts,omitempty"`
	NeedsReview            int            `json:"needs_review"`
	Linked                 int            `json:"linked"`
	Passes                 []PassSummary  `json:"passes"`
	TotalMs                float64        `json:"total_ms"`
}

// BuildEvent summarizes res. It returns nil for a nil result.
func BuildEvent(res *pipeline.Result) *Event {
	if res == nil {
		return nil
	}
	md := res.Metadata
	ev := &Event{
		Version:                EventVersion,
		Timestamp:              time.Now().UTC(),
		DocumentID:             res.DocumentID,
		DocumentType:           string(res.DocumentType),
		DocumentTypeConfidence: md.DocumentTypeConfidence,
		Language:               md.Language,
		Entities:               len(res.Entities),
		NeedsReview:            md.NeedsReview,
		TotalMs:                md.TotalDurationMs,
	}
	if len(md.EntityCounts) > 0 {
		ev.Counts = make(map[string]int, len(md.EntityCounts))
		for t, n := range md.EntityCounts {
			ev.Counts[string(t)] = n
		}
	}
	for _, e := range res.Entities {
		if e.Linked {
			ev.Linked++
		}
	}
	ev.Passes = make([]PassSummary, 0, len(md.PassResults))
	for _, pr := range md.PassResults {
		ev.Passes = append(ev.Passes, PassSummary{
			Name:       pr.PassName,
			Added:      pr.EntitiesAdded,
			Modified:   pr.EntitiesModified,
			DurationMs: pr.DurationMs,
			Failed:     pr.Failed(),
			// panic values may quote document text
			Error: redact.String(pr.Error),
		})
	}
	return ev
}

// FailedPasses lists the names of passes that were skipped, sorted.
func (e *Event) FailedPasses() []string {
	if e == nil {
		return nil
	}
	var out []string
	for _, p := range e.Passes {
		if p.Failed {
			out = append(out, p.Name)
		}
	}
	sort.Strings(out)
	return out
}
