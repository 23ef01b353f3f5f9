package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"runtime/debug"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/straja-ai/docshield/internal/detecterr"
	"github.com/straja-ai/docshield/internal/doctype"
	"github.com/straja-ai/docshield/internal/lexicon"
	"github.com/straja-ai/docshield/internal/redact"
	"github.com/straja-ai/docshield/internal/safety"
	"github.com/straja-ai/docshield/internal/telemetry"
)

// Pipeline runs its passes in registration order. Configure it before the
// first Process call; afterwards it is safe for concurrent use.
type Pipeline struct {
	passes     []Pass
	classifier doctype.Classifier
	telemetry  *telemetry.Provider
	observers  []Observer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPasses appends passes in order.
func WithPasses(passes ...Pass) Option {
	return func(p *Pipeline) { p.passes = append(p.passes, passes...) }
}

// WithClassifier sets the document classifier. Without one every document
// is UNKNOWN unless the caller overrides it.
func WithClassifier(c doctype.Classifier) Option {
	return func(p *Pipeline) { p.classifier = c }
}

// WithTelemetry sets the span and metric provider.
func WithTelemetry(t *telemetry.Provider) Option {
	return func(p *Pipeline) { p.telemetry = t }
}

// WithObserver registers a result observer.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observers = append(p.observers, o) }
}

// New builds a pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.telemetry == nil {
		p.telemetry = telemetry.Noop()
	}
	return p
}

// Register appends a pass.
func (p *Pipeline) Register(pass Pass) { p.passes = append(p.passes, pass) }

// PassNames lists registered passes in execution order.
func (p *Pipeline) PassNames() []string {
	out := make([]string, len(p.passes))
	for i, pass := range p.passes {
		out[i] = pass.Name()
	}
	return out
}

type processOptions struct {
	manual   []safety.Entity
	docType  doctype.Type
	metadata map[string]string
}

// ProcessOption adjusts one Process call.
type ProcessOption func(*processOptions)

// WithManualEntities injects caller-marked entities. They enter with source
// MANUAL and full confidence; their Text is taken from the document.
func WithManualEntities(entities ...safety.Entity) ProcessOption {
	return func(o *processOptions) { o.manual = append(o.manual, entities...) }
}

// WithDocumentType skips classification.
func WithDocumentType(t doctype.Type) ProcessOption {
	return func(o *processOptions) { o.docType = t }
}

// WithMetadata attaches an opaque key/value to the run context.
func WithMetadata(key, value string) ProcessOption {
	return func(o *processOptions) {
		if o.metadata == nil {
			o.metadata = make(map[string]string)
		}
		o.metadata[key] = value
	}
}

// Process runs every pass over text. A failing or panicking pass is
// recorded in the pass results and skipped; Process itself only fails on
// invalid manual entities or a cancelled context.
func (p *Pipeline) Process(ctx context.Context, text, documentID, language string, opts ...ProcessOption) (*Result, error) {
	var o processOptions
	for _, opt := range opts {
		opt(&o)
	}

	cls := doctype.Result{Type: doctype.Unknown}
	switch {
	case o.docType != "":
		cls = doctype.Result{Type: o.docType, Confidence: 1}
	case p.classifier != nil:
		cls = p.classifier.Classify(text)
	}
	if language == "" {
		language = cls.Language
	}
	language = lexicon.NormalizeLanguage(language)

	rc := newRunContext(documentID, language, cls.Type)
	for k, v := range o.metadata {
		rc.Metadata[k] = v
	}

	ctx, span := p.telemetry.StartSpan(ctx, "docshield.process", map[string]interface{}{
		"document_type": string(cls.Type),
		"language":      language,
		"bytes":         len(text),
	})
	defer span.End()

	entities, err := manualEntities(text, o.manual, rc)
	if err != nil {
		span.SetStatus(codes.Error, "invalid manual entities")
		return nil, err
	}

	for _, pass := range p.passes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var res PassResult
		entities, res = p.runPass(ctx, pass, text, entities, rc)
		rc.PassResults = append(rc.PassResults, res)
	}

	entities = Dedup(text, rc.DocumentID, entities)
	safety.NewCharIndex(text).Annotate(entities)

	total := time.Since(rc.StartTime)
	result := &Result{
		DocumentID:   documentID,
		Entities:     entities,
		DocumentType: cls.Type,
		Metadata: Metadata{
			Language:               language,
			DocumentTypeConfidence: cls.Confidence,
			TotalDuration:          total,
			TotalDurationMs:        durationMs(total),
			PassResults:            rc.PassResults,
			EntityCounts:           make(map[safety.EntityType]int),
			Extra:                  rc.Metadata,
		},
	}
	byType := make(map[string]int)
	for _, e := range entities {
		result.Metadata.EntityCounts[e.Type]++
		byType[string(e.Type)]++
		if e.NeedsReview {
			result.Metadata.NeedsReview++
		}
	}

	p.telemetry.RecordDocument(ctx, string(cls.Type), language, result.Metadata.TotalDurationMs, byType, result.Metadata.NeedsReview)
	for _, obs := range p.observers {
		obs.ObserveResult(ctx, result)
	}
	return result, nil
}

// ProcessBatch runs independent documents concurrently, at most limit at a
// time (unbounded when limit <= 0). Results keep input order.
func (p *Pipeline) ProcessBatch(ctx context.Context, docs []Document, limit int) ([]*Result, error) {
	results := make([]*Result, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, d := range docs {
		g.Go(func() error {
			res, err := p.Process(gctx, d.Text, d.ID, d.Language, d.Options...)
			if err != nil {
				return fmt.Errorf("document %s: %w", d.ID, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) runPass(ctx context.Context, pass Pass, text string, entities []safety.Entity, rc *RunContext) ([]safety.Entity, PassResult) {
	name := pass.Name()
	res := PassResult{PassName: name}
	ctx, span := p.telemetry.StartSpan(ctx, "docshield.pass", map[string]interface{}{"pass": name})
	defer span.End()

	start := time.Now()
	out, err := safeExecute(ctx, pass, text, safety.CloneAll(entities), rc)
	if err == nil {
		err = checkOutput(text, entities, out)
		if err != nil {
			err = detecterr.PassFailure(name, err)
		}
	}
	res.Duration = time.Since(start)
	res.DurationMs = durationMs(res.Duration)

	p.telemetry.RecordPass(ctx, name, res.DurationMs, err != nil)
	if err != nil {
		res.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, string(detecterr.KindOf(err)))
		redact.Logf("pipeline: document %s: %v", rc.DocumentID, err)
		return entities, res
	}
	res.EntitiesAdded, res.EntitiesModified = diffEntities(entities, out)
	return out, res
}

func safeExecute(ctx context.Context, pass Pass, text string, entities []safety.Entity, rc *RunContext) (out []safety.Entity, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = detecterr.PassFailure(pass.Name(), fmt.Errorf("%w: %v", detecterr.ErrPassPanicked, r))
			if debugPanics() {
				redact.Logf("pipeline: pass %s panic stack:\n%s", pass.Name(), debug.Stack())
			}
		}
	}()
	out, err = pass.Execute(ctx, text, entities, rc)
	if err != nil {
		var de *detecterr.Error
		if !errors.As(err, &de) {
			err = detecterr.PassFailure(pass.Name(), err)
		}
	}
	return out, err
}

// checkOutput enforces the pass contract: every span is exact and no input
// entity disappears.
func checkOutput(text string, in, out []safety.Entity) error {
	seen := make(map[string]struct{}, len(out))
	for _, e := range out {
		if !e.SpanValid(text) {
			return fmt.Errorf("entity %s %s has invalid span [%d,%d)", e.ID, e.Type, e.Start, e.End)
		}
		for _, c := range e.Components {
			if !c.SpanValid(text) {
				return fmt.Errorf("component %s of %s has invalid span [%d,%d)", c.Type, e.ID, c.Start, c.End)
			}
		}
		seen[e.ID] = struct{}{}
	}
	for _, e := range in {
		if _, ok := seen[e.ID]; !ok {
			return fmt.Errorf("entity %s %s was dropped", e.ID, e.Type)
		}
	}
	return nil
}

func diffEntities(before, after []safety.Entity) (added, modified int) {
	prev := make(map[string]safety.Entity, len(before))
	for _, e := range before {
		prev[e.ID] = e
	}
	for _, e := range after {
		old, ok := prev[e.ID]
		switch {
		case !ok:
			added++
		case !reflect.DeepEqual(old, e):
			modified++
		}
	}
	return added, modified
}

func manualEntities(text string, in []safety.Entity, rc *RunContext) ([]safety.Entity, error) {
	out := make([]safety.Entity, 0, len(in))
	for _, m := range in {
		if m.Start < 0 || m.Start >= m.End || m.End > len(text) {
			return nil, detecterr.New(detecterr.KindConfig, "manual_entity",
				fmt.Errorf("span [%d,%d) out of range for %d-byte document", m.Start, m.End, len(text)))
		}
		e := rc.NewEntity(text, m.Type, m.Start, m.End, 1, safety.SourceManual)
		if m.Confidence > 0 {
			e.Confidence = safety.ClampConfidence(m.Confidence)
		}
		out = append(out, e)
	}
	return out, nil
}

func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func debugPanics() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("DOCSHIELD_DEBUG_PIPELINE")))
	return v == "1" || v == "true" || v == "yes"
}
