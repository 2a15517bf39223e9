// Package telemetry wires OpenTelemetry tracing and the metric
// instrument helpers. With tracing disabled every helper degrades to a
// no-op so call sites never branch on configuration.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Config holds OpenTelemetry settings
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	CollectorAddr  string
	SampleRatio    float64
}

// Telemetry holds the tracer provider for shutdown
type Telemetry struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

var active *Telemetry

// Init sets up the OTLP gRPC exporter and tracer provider. When
// disabled it installs a tracer that produces non-recording spans.
func Init(ctx context.Context, cfg *Config) (*Telemetry, error) {
	name := "availability-service"
	if cfg != nil && cfg.ServiceName != "" {
		name = cfg.ServiceName
	}

	if cfg == nil || !cfg.Enabled {
		active = &Telemetry{tracer: otel.Tracer(name)}
		return active, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.CollectorAddr),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(name),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build resource: %w", err)
	}

	sampler := sdktrace.AlwaysSample()
	if cfg.SampleRatio > 0 && cfg.SampleRatio < 1 {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRatio)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	active = &Telemetry{provider: provider, tracer: provider.Tracer(name)}
	return active, nil
}

// Shutdown flushes and stops the tracer provider
func Shutdown(ctx context.Context) error {
	if active != nil && active.provider != nil {
		return active.provider.Shutdown(ctx)
	}
	return nil
}

// StartSpan opens a span on the service tracer. Before Init it returns
// the span already carried by the context.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if active == nil || active.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return active.tracer.Start(ctx, name, opts...)
}

// SetSpanError records an error on the span in the context
func SetSpanError(ctx context.Context, err error) {
	trace.SpanFromContext(ctx).RecordError(err)
}
