package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/straja-ai/docshield/internal/detecterr"
	"github.com/straja-ai/docshield/internal/doctype"
	"github.com/straja-ai/docshield/internal/safety"
)

// findPass tags every occurrence of needle.
type findPass struct {
	name   string
	needle string
	typ    safety.EntityType
	conf   float64
	source safety.Source
}

func (p findPass) Name() string { return p.name }

func (p findPass) Execute(_ context.Context, text string, entities []safety.Entity, rc *RunContext) ([]safety.Entity, error) {
	from := 0
	for {
		i := strings.Index(text[from:], p.needle)
		if i < 0 {
			return entities, nil
		}
		start := from + i
		entities = append(entities, rc.NewEntity(text, p.typ, start, start+len(p.needle), p.conf, p.source))
		from = start + len(p.needle)
	}
}

type scalePass struct{ factor float64 }

func (scalePass) Name() string { return "scale" }

func (p scalePass) Execute(_ context.Context, _ string, entities []safety.Entity, _ *RunContext) ([]safety.Entity, error) {
	for i := range entities {
		entities[i].Confidence = safety.ClampConfidence(entities[i].Confidence * p.factor)
	}
	return entities, nil
}

type failPass struct{}

func (failPass) Name() string { return "fail" }
func (failPass) Execute(context.Context, string, []safety.Entity, *RunContext) ([]safety.Entity, error) {
	return nil, errors.New("boom")
}

type panicPass struct{}

func (panicPass) Name() string { return "panic" }
func (panicPass) Execute(_ context.Context, _ string, entities []safety.Entity, _ *RunContext) ([]safety.Entity, error) {
	entities[0].Confidence = 0 // must not leak into the caller's list
	panic("index out of range")
}

type dropPass struct{}

func (dropPass) Name() string { return "drop" }
func (dropPass) Execute(_ context.Context, _ string, entities []safety.Entity, _ *RunContext) ([]safety.Entity, error) {
	return entities[:0], nil
}

type badSpanPass struct{}

func (badSpanPass) Name() string { return "bad_span" }
func (badSpanPass) Execute(_ context.Context, text string, entities []safety.Entity, _ *RunContext) ([]safety.Entity, error) {
	return append(entities, safety.Entity{ID: "x", Type: safety.TypeEmail, Text: "nope", Start: 0, End: len(text) + 1}), nil
}

const doc = "Contact info@example.ch or info@example.ch"

func emailPass() findPass {
	return findPass{name: "emails", needle: "info@example.ch", typ: safety.TypeEmail, conf: 0.6, source: safety.SourceRule}
}

func TestProcessRecordsPassResults(t *testing.T) {
	p := New(WithPasses(emailPass(), scalePass{factor: 1.5}))
	res, err := p.Process(context.Background(), doc, "doc-1", "de-CH")
	require.NoError(t, err)

	require.Len(t, res.Entities, 2)
	for _, e := range res.Entities {
		assert.Equal(t, doc[e.Start:e.End], e.Text)
		assert.InDelta(t, 0.9, e.Confidence, 1e-9)
	}
	require.Len(t, res.Metadata.PassResults, 2)
	assert.Equal(t, "emails", res.Metadata.PassResults[0].PassName)
	assert.Equal(t, 2, res.Metadata.PassResults[0].EntitiesAdded)
	assert.Equal(t, 0, res.Metadata.PassResults[1].EntitiesAdded)
	assert.Equal(t, 2, res.Metadata.PassResults[1].EntitiesModified)
	assert.Equal(t, 2, res.Metadata.EntityCounts[safety.TypeEmail])
	assert.Equal(t, "de", res.Metadata.Language)
	assert.Equal(t, doctype.Unknown, res.DocumentType)
	assert.Equal(t, []string{"emails", "scale"}, p.PassNames())
}

func TestFailingPassesAreSkipped(t *testing.T) {
	for _, bad := range []Pass{failPass{}, panicPass{}, dropPass{}, badSpanPass{}} {
		t.Run(bad.Name(), func(t *testing.T) {
			p := New(WithPasses(emailPass(), bad, scalePass{factor: 1.5}))
			res, err := p.Process(context.Background(), doc, "doc-1", "en")
			require.NoError(t, err)

			require.Len(t, res.Metadata.PassResults, 3)
			failed := res.Metadata.PassResults[1]
			assert.True(t, failed.Failed())
			assert.Zero(t, failed.EntitiesAdded)
			assert.Zero(t, failed.EntitiesModified)
			assert.False(t, res.Metadata.PassResults[2].Failed())

			require.Len(t, res.Entities, 2)
			for _, e := range res.Entities {
				assert.InDelta(t, 0.9, e.Confidence, 1e-9)
			}
		})
	}
}

func TestPanicIsTypedError(t *testing.T) {
	_, err := safeExecute(context.Background(), panicPass{}, doc, []safety.Entity{{}}, newRunContext("d", "en", doctype.Unknown))
	require.Error(t, err)
	assert.ErrorIs(t, err, detecterr.ErrPassPanicked)
	assert.Equal(t, detecterr.KindPassExecution, detecterr.KindOf(err))
}

func TestProcessIsIdempotent(t *testing.T) {
	p := New(WithPasses(emailPass(), scalePass{factor: 1.2}))
	a, err := p.Process(context.Background(), doc, "doc-7", "en")
	require.NoError(t, err)
	b, err := p.Process(context.Background(), doc, "doc-7", "en")
	require.NoError(t, err)
	assert.Equal(t, a.Entities, b.Entities)
}

func TestManualEntities(t *testing.T) {
	p := New(WithPasses(emailPass()))
	manual := safety.Entity{Type: safety.TypeEmail, Start: 8, End: 23}
	res, err := p.Process(context.Background(), doc, "doc-1", "en", WithManualEntities(manual))
	require.NoError(t, err)

	require.Len(t, res.Entities, 2)
	first := res.Entities[0]
	assert.Equal(t, safety.SourceManual, first.Source)
	assert.Equal(t, 1.0, first.Confidence)
	assert.Equal(t, "info@example.ch", first.Text)

	_, err = p.Process(context.Background(), doc, "doc-1", "en", WithManualEntities(safety.Entity{Type: safety.TypeEmail, Start: 5, End: 500}))
	require.Error(t, err)
	assert.Equal(t, detecterr.KindConfig, detecterr.KindOf(err))
}

func TestDocumentTypeSelection(t *testing.T) {
	p := New(WithClassifier(doctype.Static{Type: doctype.Invoice, Confidence: 0.7, Language: "fr"}))
	res, err := p.Process(context.Background(), doc, "d", "")
	require.NoError(t, err)
	assert.Equal(t, doctype.Invoice, res.DocumentType)
	assert.Equal(t, "fr", res.Metadata.Language)

	res, err = p.Process(context.Background(), doc, "d", "it", WithDocumentType(doctype.Letter), WithMetadata("origin", "upload"))
	require.NoError(t, err)
	assert.Equal(t, doctype.Letter, res.DocumentType)
	assert.Equal(t, "it", res.Metadata.Language)
	assert.Equal(t, "upload", res.Metadata.Extra["origin"])
}

func TestProcessHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(WithPasses(emailPass())).Process(ctx, doc, "d", "en")
	assert.ErrorIs(t, err, context.Canceled)
}

type recordingObserver struct {
	mu  sync.Mutex
	ids []string
}

func (o *recordingObserver) ObserveResult(_ context.Context, res *Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ids = append(o.ids, res.DocumentID)
}

func TestProcessBatchKeepsOrder(t *testing.T) {
	obs := &recordingObserver{}
	p := New(WithPasses(emailPass()), WithObserver(obs))

	var docs []Document
	for i := 0; i < 20; i++ {
		docs = append(docs, Document{
			ID:       fmt.Sprintf("doc-%02d", i),
			Text:     strings.Repeat("info@example.ch ", i%3+1),
			Language: "en",
		})
	}
	results, err := p.ProcessBatch(context.Background(), docs, 4)
	require.NoError(t, err)
	require.Len(t, results, len(docs))
	for i, res := range results {
		assert.Equal(t, docs[i].ID, res.DocumentID)
		assert.Len(t, res.Entities, i%3+1)
	}
	assert.Len(t, obs.ids, len(docs))
}
