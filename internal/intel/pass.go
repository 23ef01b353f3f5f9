package intel

import (
	"context"
	"fmt"

	"github.com/straja-ai/docshield/internal/detecterr"
	"github.com/straja-ai/docshield/internal/pipeline"
	"github.com/straja-ai/docshield/internal/redact"
	"github.com/straja-ai/docshield/internal/safety"
)

// DefaultModelThreshold is the acceptance threshold for external
// predictions. It is deliberately lower than a precision-oriented 0.5.
const DefaultModelThreshold = 0.3

// Pass is the high-recall detection pass.
type Pass struct {
	bundle    *RegexBundle
	source    EntitySource
	threshold float64
}

// NewPass builds the pass. A nil source means regex-only detection.
func NewPass(bundle *RegexBundle, source EntitySource, threshold float64) *Pass {
	if source == nil {
		source = NewNoop()
	}
	if threshold <= 0 {
		threshold = DefaultModelThreshold
	}
	return &Pass{bundle: bundle, source: source, threshold: threshold}
}

func (p *Pass) Name() string { return "high_recall" }

type spanKey struct {
	typ        safety.EntityType
	start, end int
}

func (p *Pass) Execute(ctx context.Context, text string, entities []safety.Entity, rc *pipeline.RunContext) ([]safety.Entity, error) {
	index := make(map[spanKey]int, len(entities))
	for i, e := range entities {
		index[spanKey{e.Type, e.Start, e.End}] = i
	}

	for _, m := range p.bundle.Scan(text, rc.DocumentType) {
		key := spanKey{m.Def.Type, m.Start, m.End}
		if i, ok := index[key]; ok {
			// Already present (manual or an earlier identical rule hit).
			if entities[i].Source != safety.SourceManual && entities[i].Confidence < m.Def.Confidence {
				entities[i].Confidence = m.Def.Confidence
			}
			continue
		}
		index[key] = len(entities)
		entities = append(entities, rc.NewEntity(text, m.Def.Type, m.Start, m.End, m.Def.Confidence, safety.SourceRule))
	}

	preds, err := p.source.Predict(ctx, text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// Degrade to regex-only detection.
		err = detecterr.New(detecterr.KindModel, "predict", err)
		redact.Logf("intel: document %s: %v", rc.DocumentID, err)
		rc.SetMetadata("entity_source_error", string(detecterr.KindOf(err)))
		return entities, nil
	}

	accepted := 0
	for _, pr := range preds {
		typ, ok := safety.ParseEntityType(pr.Label)
		if !ok || pr.Confidence < p.threshold {
			continue
		}
		if pr.Start < 0 || pr.Start >= pr.End || pr.End > len(text) {
			continue
		}
		conf := safety.ClampConfidence(pr.Confidence)
		key := spanKey{typ, pr.Start, pr.End}
		if i, ok := index[key]; ok {
			e := &entities[i]
			switch e.Source {
			case safety.SourceManual:
			case safety.SourceModel:
				e.Confidence = max(e.Confidence, conf)
			default:
				e.Source = safety.MergeSource(e.Source, safety.SourceModel)
				e.Confidence = max(e.Confidence, conf)
			}
			accepted++
			continue
		}
		index[key] = len(entities)
		entities = append(entities, rc.NewEntity(text, typ, pr.Start, pr.End, conf, safety.SourceModel))
		accepted++
	}
	if len(preds) > 0 {
		rc.SetMetadata("entity_source_predictions", fmt.Sprintf("%d/%d", accepted, len(preds)))
	}
	return entities, nil
}
