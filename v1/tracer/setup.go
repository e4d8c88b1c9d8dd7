package tracer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "github.com/awa-ai/awadb"

// Tracer owns the SDK tracer provider and creates spans for awadb
// operations.
type Tracer struct {
	tracer *sdktrace.TracerProvider
	t      trace.Tracer
}

// NewClient builds a provider exporting to cfg.Endpoint over OTLP/HTTP and
// installs it as the global provider.
func NewClient(cfg Config) (*Tracer, error) {
	var opts []sdktrace.TracerProviderOption
	if cfg.Endpoint != "" {
		clientOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			clientOpts = append(clientOpts, otlptracehttp.WithInsecure())
		}
		exp, err := otlptrace.New(context.Background(), otlptracehttp.NewClient(clientOpts...))
		if err != nil {
			return nil, fmt.Errorf("create otlp exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	t := newTracer(cfg, opts...)
	otel.SetTracerProvider(t.tracer)
	return t, nil
}

// NewWithExporter builds a provider that exports synchronously to exp. It
// does not touch the global provider.
func NewWithExporter(cfg Config, exp sdktrace.SpanExporter) *Tracer {
	return newTracer(cfg, sdktrace.WithSyncer(exp))
}

func newTracer(cfg Config, opts ...sdktrace.TracerProviderOption) *Tracer {
	sampler := sdktrace.AlwaysSample()
	if cfg.SampleRatio > 0 && cfg.SampleRatio < 1 {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRatio)
	}
	opts = append(opts,
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))),
	)
	tp := sdktrace.NewTracerProvider(opts...)
	return &Tracer{tracer: tp, t: tp.Tracer(instrumentation)}
}

// StartSpan starts a span named name. Attribute values are converted with
// fmt when they are not strings, bools or integers.
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs map[string]interface{}) (context.Context, trace.Span) {
	if t == nil || t.t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.t.Start(ctx, name, trace.WithAttributes(toAttributes(attrs)...))
}

// RecordError marks span as failed. A nil err is ignored.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Shutdown flushes pending spans.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.tracer == nil {
		return nil
	}
	return t.tracer.Shutdown(ctx)
}

func toAttributes(attrs map[string]interface{}) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		switch x := v.(type) {
		case string:
			out = append(out, attribute.String(k, x))
		case bool:
			out = append(out, attribute.Bool(k, x))
		case int:
			out = append(out, attribute.Int(k, x))
		case int64:
			out = append(out, attribute.Int64(k, x))
		case float64:
			out = append(out, attribute.Float64(k, x))
		default:
			out = append(out, attribute.String(k, fmt.Sprint(x)))
		}
	}
	return out
}
