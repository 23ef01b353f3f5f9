// Package telemetry wires OpenTelemetry tracing and metrics for the
// detection pipeline. When disabled every helper is a no-op.
package telemetry

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/straja-ai/docshield/internal/redact"
)

const instrumentationName = "docshield"

// Config controls telemetry setup.
type Config struct {
	Enabled  bool
	Endpoint string
	Protocol string // grpc | http
	Service  string
	Version  string
}

// Provider wires tracer/meter providers and exposes helpers.
type Provider struct {
	Enabled bool
	tracer  trace.Tracer
	meter   metric.Meter

	documentsCounter      metric.Int64Counter
	documentDuration      metric.Float64Histogram
	passDuration          metric.Float64Histogram
	passFailures          metric.Int64Counter
	entitiesCounter       metric.Int64Counter
	reviewCounter         metric.Int64Counter
	shutdownTraceProvider func(context.Context) error
	shutdownMeterProvider func(context.Context) error
}

// Noop returns a disabled provider.
func Noop() *Provider {
	p := &Provider{
		Enabled: false,
		tracer:  tracenoop.NewTracerProvider().Tracer(""),
		meter:   noop.NewMeterProvider().Meter(""),
	}
	p.initInstruments()
	return p
}

// NewProvider configures OTLP exporters and providers. When disabled it
// returns no-op providers.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !cfg.Enabled {
		return Noop(), nil
	}

	redact.Logf("telemetry enabled (OpenTelemetry OTLP %s) endpoint=%s", strings.ToLower(cfg.Protocol), cfg.Endpoint)

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.Service),
			attribute.String("service.version", cfg.Version),
		),
	)
	if err != nil {
		return nil, err
	}

	var (
		traceExp  sdktrace.SpanExporter
		metricExp sdkmetric.Exporter
	)
	switch strings.ToLower(cfg.Protocol) {
	case "", "grpc":
		if traceExp, err = otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.Endpoint), otlptracegrpc.WithInsecure()); err != nil {
			return nil, err
		}
		if metricExp, err = otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpoint(cfg.Endpoint), otlpmetricgrpc.WithInsecure()); err != nil {
			return nil, err
		}
	case "http":
		if traceExp, err = otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.Endpoint), otlptracehttp.WithInsecure()); err != nil {
			return nil, err
		}
		if metricExp, err = otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(cfg.Endpoint), otlpmetrichttp.WithInsecure()); err != nil {
			return nil, err
		}
	default:
		redact.Logf("telemetry: unknown protocol %q, falling back to no-op", cfg.Protocol)
		return Noop(), nil
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)))
	otel.SetMeterProvider(mp)

	p := &Provider{
		Enabled:               true,
		tracer:                tp.Tracer(instrumentationName),
		meter:                 mp.Meter(instrumentationName),
		shutdownTraceProvider: tp.Shutdown,
		shutdownMeterProvider: mp.Shutdown,
	}
	p.initInstruments()
	return p, nil
}

func (p *Provider) initInstruments() {
	if p == nil {
		return
	}
	// Instruments are best-effort; creation errors leave no-op instruments.
	p.documentsCounter, _ = p.meter.Int64Counter("docshield_documents_total")
	p.documentDuration, _ = p.meter.Float64Histogram("docshield_document_duration_ms")
	p.passDuration, _ = p.meter.Float64Histogram("docshield_pass_duration_ms")
	p.passFailures, _ = p.meter.Int64Counter("docshield_pass_failures_total")
	p.entitiesCounter, _ = p.meter.Int64Counter("docshield_entities_total")
	p.reviewCounter, _ = p.meter.Int64Counter("docshield_entities_needs_review_total")
}

// Tracer returns the tracer.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil {
		return tracenoop.NewTracerProvider().Tracer("")
	}
	return p.tracer
}

// Meter returns the meter.
func (p *Provider) Meter() metric.Meter {
	if p == nil {
		return noop.NewMeterProvider().Meter("")
	}
	return p.meter
}

// StartSpan opens a span with filtered attributes.
func (p *Provider) StartSpan(ctx context.Context, name string, attrs map[string]interface{}) (context.Context, trace.Span) {
	return p.Tracer().Start(ctx, name, trace.WithAttributes(SafeAttributes(attrs)...))
}

// Shutdown flushes providers.
func (p *Provider) Shutdown(ctx context.Context) {
	if p == nil {
		return
	}
	if p.shutdownTraceProvider != nil {
		_ = p.shutdownTraceProvider(ctx)
	}
	if p.shutdownMeterProvider != nil {
		_ = p.shutdownMeterProvider(ctx)
	}
}

// RecordPass emits the duration of one pass and counts failures.
func (p *Provider) RecordPass(ctx context.Context, pass string, durMs float64, failed bool) {
	if p == nil || p.passDuration == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("docshield.pass", pass))
	p.passDuration.Record(ctx, durMs, attrs)
	if failed {
		p.passFailures.Add(ctx, 1, attrs)
	}
}

// RecordDocument emits per-document counters with safe labels. Entity
// counts are keyed by type only.
func (p *Provider) RecordDocument(ctx context.Context, docType, language string, durMs float64, byType map[string]int, needsReview int) {
	if p == nil || p.documentsCounter == nil {
		return
	}
	labels := []attribute.KeyValue{
		attribute.String("docshield.document_type", docType),
		attribute.String("docshield.language", language),
	}
	p.documentsCounter.Add(ctx, 1, metric.WithAttributes(labels...))
	p.documentDuration.Record(ctx, durMs, metric.WithAttributes(labels...))
	for typ, n := range byType {
		p.entitiesCounter.Add(ctx, int64(n), metric.WithAttributes(append(labels, attribute.String("docshield.entity_type", typ))...))
	}
	if needsReview > 0 {
		p.reviewCounter.Add(ctx, int64(needsReview), metric.WithAttributes(labels...))
	}
}
