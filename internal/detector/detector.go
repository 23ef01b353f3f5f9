// Package detector assembles the detection pipeline from configuration:
// the frozen validator registry, the pass sequence, the document
// classifier and the optional model, telemetry and report sinks.
package detector

import (
	"context"
	"fmt"

	"github.com/straja-ai/docshield/internal/address"
	"github.com/straja-ai/docshield/internal/config"
	"github.com/straja-ai/docshield/internal/detecterr"
	"github.com/straja-ai/docshield/internal/doctype"
	"github.com/straja-ai/docshield/internal/intel"
	"github.com/straja-ai/docshield/internal/ner"
	"github.com/straja-ai/docshield/internal/pipeline"
	"github.com/straja-ai/docshield/internal/redact"
	"github.com/straja-ai/docshield/internal/report"
	"github.com/straja-ai/docshield/internal/scoring"
	"github.com/straja-ai/docshield/internal/telemetry"
	"github.com/straja-ai/docshield/internal/validate"
)

// Version is reported as the telemetry service version.
var Version = "dev"

// Detector owns a configured pipeline and the resources behind it.
type Detector struct {
	cfg        *config.Config
	pipeline   *pipeline.Pipeline
	registry   *validate.Registry
	source     intel.EntitySource
	recognizer *ner.Recognizer
	telemetry  *telemetry.Provider
	emitter    *report.Emitter
}

type options struct {
	source     intel.EntitySource
	classifier doctype.Classifier
	observers  []pipeline.Observer
}

// Option adjusts New.
type Option func(*options)

// WithEntitySource replaces the configured model with src.
func WithEntitySource(src intel.EntitySource) Option {
	return func(o *options) { o.source = src }
}

// WithClassifier replaces the keyword classifier.
func WithClassifier(c doctype.Classifier) Option {
	return func(o *options) { o.classifier = c }
}

// WithObserver adds a result observer next to the report emitter.
func WithObserver(obs pipeline.Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// New validates cfg and builds the detector. Close releases what it opened.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Detector, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	d := &Detector{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			d.Close(context.Background())
		}
	}()

	policy, err := validate.DefaultPolicy().WithOverrides(cfg.Validation.Confidence)
	if err != nil {
		return nil, detecterr.New(detecterr.KindConfig, "detector.policy", err)
	}
	d.registry, err = validate.NewDefaultRegistry(policy, validate.Options{
		ExtraCities:    cfg.Validation.ExtraCities,
		ExtraDenyNouns: cfg.Validation.DenyNouns,
	})
	if err != nil {
		return nil, err
	}
	d.registry.Freeze()

	if d.source, err = d.entitySource(o.source); err != nil {
		return nil, err
	}

	if d.telemetry, err = telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
		Protocol: cfg.Telemetry.Protocol,
		Service:  cfg.Telemetry.ServiceName,
		Version:  Version,
	}); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	popts := []pipeline.Option{
		pipeline.WithPasses(d.passes()...),
		pipeline.WithTelemetry(d.telemetry),
	}

	classifier := o.classifier
	if classifier == nil {
		classifier = doctype.NewKeywordClassifier(cfg.Pipeline.ClassifierMinHits).
			WithFallbackLanguage(cfg.Pipeline.DefaultLanguage)
	}
	popts = append(popts, pipeline.WithClassifier(classifier))

	if cfg.Report.Path != "" {
		sink, err := report.NewFileSink(cfg.Report.Path)
		if err != nil {
			return nil, detecterr.New(detecterr.KindConfig, "detector.report", err)
		}
		d.emitter = report.NewEmitter(report.EmitterConfig{
			QueueSize: cfg.Report.QueueSize,
			Workers:   cfg.Report.Workers,
		}, sink)
		popts = append(popts, pipeline.WithObserver(d.emitter))
	}
	for _, obs := range o.observers {
		popts = append(popts, pipeline.WithObserver(obs))
	}

	d.pipeline = pipeline.New(popts...)
	ok = true
	return d, nil
}

// entitySource picks the model behind the high-recall pass. A bundle that
// fails to load falls back to regex only unless the model is required.
func (d *Detector) entitySource(override intel.EntitySource) (intel.EntitySource, error) {
	if override != nil {
		return override, nil
	}
	r := d.cfg.Recall
	if r.ModelDir == "" {
		return intel.NewNoop(), nil
	}
	rec, err := ner.Load(ner.Config{
		BundleDir: r.ModelDir,
		Version:   r.ModelVersion,
		SeqLen:    r.SeqLen,
		PoolSize:  r.PoolSize,
		LowerCase: !r.Cased,
	})
	if err != nil {
		if r.RequireModel {
			return nil, err
		}
		redact.Logf("detector: model unavailable, running regex only: %v", err)
		return intel.NewNoop(), nil
	}
	d.recognizer = rec
	return rec, nil
}

func (d *Detector) passes() []pipeline.Pass {
	cfg := d.cfg
	passes := []pipeline.Pass{
		intel.NewPass(intel.NewRegexBundle(intel.BundleConfig{AmountEnabled: cfg.Recall.AmountEnabled}), d.source, cfg.Recall.ModelThreshold),
		validate.NewPass(d.registry),
	}
	if cfg.Address.IsEnabled() {
		passes = append(passes, address.NewPass(address.NewLinker(address.Config{
			Window:        cfg.Address.Window,
			MinComponents: cfg.Address.MinComponents,
			ReviewBelow:   cfg.Address.ReviewBelow,
			AcceptAbove:   cfg.Address.AcceptAbove,
			ExtraCities:   cfg.Validation.ExtraCities,
		})))
	}
	s := cfg.Scoring
	return append(passes, scoring.NewPass(scoring.Config{
		Window:          s.Window,
		ReviewThreshold: s.ReviewThreshold,
		KeywordBoost:    s.KeywordBoost,
		RepetitionStep:  s.RepetitionStep,
		RepetitionCap:   s.RepetitionCap,
		ZoneFactor:      s.ZoneFactor,
		ZoneLines:       s.ZoneLines,
		ZoneMinLines:    s.ZoneMinLines,
		MinMultiplier:   s.MinMultiplier,
		MaxMultiplier:   s.MaxMultiplier,
	}))
}

// Process runs the pipeline over one document. An empty language is
// detected from the text.
func (d *Detector) Process(ctx context.Context, text, documentID, language string, opts ...pipeline.ProcessOption) (*pipeline.Result, error) {
	return d.pipeline.Process(ctx, text, documentID, language, opts...)
}

// ProcessBatch runs documents concurrently, bounded by
// pipeline.batch_concurrency.
func (d *Detector) ProcessBatch(ctx context.Context, docs []pipeline.Document) ([]*pipeline.Result, error) {
	return d.pipeline.ProcessBatch(ctx, docs, d.cfg.Pipeline.BatchConcurrency)
}

// Pipeline exposes the underlying pipeline.
func (d *Detector) Pipeline() *pipeline.Pipeline { return d.pipeline }

// Registry exposes the frozen validator registry.
func (d *Detector) Registry() *validate.Registry { return d.registry }

// SourceStatus describes the model behind the high-recall pass.
func (d *Detector) SourceStatus() intel.Status {
	if d.source == nil {
		return intel.Status{}
	}
	return d.source.Status()
}

// ReportMetrics returns delivery counters, zero when reports are off.
func (d *Detector) ReportMetrics() report.Metrics {
	return d.emitter.MetricsSnapshot()
}

// Close drains reports, flushes telemetry and releases model sessions.
func (d *Detector) Close(ctx context.Context) {
	if d == nil {
		return
	}
	if d.emitter != nil {
		d.emitter.Close(ctx)
		d.emitter = nil
	}
	if d.telemetry != nil {
		d.telemetry.Shutdown(ctx)
		d.telemetry = nil
	}
	if d.recognizer != nil {
		d.recognizer.Close()
		d.recognizer = nil
	}
}
