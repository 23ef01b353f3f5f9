package validate

import (
	"context"
	"unicode/utf8"

	"github.com/straja-ai/docshield/internal/pipeline"
	"github.com/straja-ai/docshield/internal/safety"
)

// contextBytes is how much preceding text a ContextValidator sees.
const contextBytes = 20

// Pass re-scores every entity with the validator registered for its type.
// It never removes entities. Manual entities are left untouched.
type Pass struct {
	registry *Registry
}

// NewPass builds the format validation pass.
func NewPass(r *Registry) *Pass { return &Pass{registry: r} }

func (p *Pass) Name() string { return "format_validation" }

func (p *Pass) Execute(ctx context.Context, text string, entities []safety.Entity, _ *pipeline.RunContext) ([]safety.Entity, error) {
	for i := range entities {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		e := &entities[i]
		if e.Source == safety.SourceManual {
			continue
		}
		v, ok := p.registry.Get(e.Type)
		if !ok {
			continue
		}
		var out Outcome
		if cv, ok := v.(ContextValidator); ok {
			out = cv.ValidateInContext(e.Text, preceding(text, e.Start, contextBytes))
		} else {
			out = v.Validate(e.Text)
		}
		e.Confidence = out.Confidence
		if out.Valid {
			e.Reason = ""
		} else {
			e.Reason = out.Reason
		}
	}
	return entities, nil
}

// preceding returns up to n bytes before start, trimmed to a rune boundary.
func preceding(text string, start, n int) string {
	from := start - n
	if from < 0 {
		from = 0
	}
	for from < start && !utf8.RuneStart(text[from]) {
		from++
	}
	return text[from:start]
}
