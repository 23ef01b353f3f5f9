package address

import (
	"context"
	"strconv"

	"github.com/straja-ai/docshield/internal/pipeline"
	"github.com/straja-ai/docshield/internal/safety"
)

// PassName identifies the linking pass in pass results.
const PassName = "address_linking"

// componentConfidence is assigned to components classified from text.
const componentConfidence = 0.7

// Pass runs the linker over the entity list. Component entities that end up
// in a composite are kept and marked linked.
type Pass struct {
	linker *Linker
}

// NewPass wraps l as a pipeline pass.
func NewPass(l *Linker) *Pass {
	if l == nil {
		l = NewLinker(DefaultConfig())
	}
	return &Pass{linker: l}
}

func (p *Pass) Name() string { return PassName }

func (p *Pass) Execute(ctx context.Context, text string, entities []safety.Entity, rc *pipeline.RunContext) ([]safety.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	comps := mergeComponents(FromEntities(entities), Classify(text, p.linker.extra))
	composites := p.linker.Link(text, comps)
	rc.SetMetadata("address_composites", strconv.Itoa(len(composites)))
	if len(composites) == 0 {
		return entities, nil
	}

	index := make(map[string]int, len(entities))
	for i, e := range entities {
		index[e.ID] = i
	}
	upsert := func(e safety.Entity) {
		if i, ok := index[e.ID]; ok {
			entities[i] = e
			return
		}
		index[e.ID] = len(entities)
		entities = append(entities, e)
	}

	for _, c := range composites {
		parts := make([]safety.Entity, 0, len(c.Components))
		for _, comp := range c.Components {
			var part safety.Entity
			if i, ok := index[comp.EntityID]; ok && comp.EntityID != "" {
				entities[i].Linked = true
				part = entities[i].Clone()
			} else {
				part = rc.NewEntity(text, comp.Kind, comp.Start, comp.End, componentConfidence, comp.Source)
				part.Linked = true
				upsert(part)
			}
			parts = append(parts, part)
		}

		addr := rc.NewEntity(text, safety.TypeAddress, c.Start, c.End, c.Confidence, safety.SourceRule)
		addr.Components = parts
		addr.NeedsReview = c.Status == StatusNeedsReview
		addr.AutoAccepted = c.Status == StatusAutoAccepted
		upsert(addr)

		for i := range entities {
			e := &entities[i]
			if e.Type == safety.TypeSwissPostalAddress && e.Start >= c.Start && e.End <= c.End {
				e.Linked = true
			}
		}
	}
	return entities, nil
}
