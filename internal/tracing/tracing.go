// Package tracing sets up OpenTelemetry spans for cache lookups and catalog reads.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultEndpoint   = "localhost:4318"
	defaultSampleRate = 0.1
	flushTimeout      = 5 * time.Second
	instrumentation   = "storefront-cache"
)

// Options configures tracing.
type Options struct {
	Enabled     bool
	ServiceName string
	Version     string
	Endpoint    string  // OTLP/HTTP collector as host:port, no scheme
	SampleRate  float64 // 0.0 to 1.0
}

func (o Options) withDefaults() Options {
	if o.Endpoint == "" {
		o.Endpoint = defaultEndpoint
	}
	if o.Version == "" {
		o.Version = "dev"
	}
	if o.SampleRate < 0 || o.SampleRate > 1 {
		o.SampleRate = defaultSampleRate
	}
	return o
}

// Init installs a global tracer provider exporting over OTLP/HTTP and returns a
// shutdown function that flushes pending spans. Disabled tracing leaves the global
// no-op provider in place.
func Init(ctx context.Context, opts Options) (func(context.Context) error, error) {
	if !opts.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	opts = opts.withDefaults()

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(opts.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(opts.ServiceName),
		semconv.ServiceVersionKey.String(opts.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.SampleRate))),
	)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, flushTimeout)
		defer cancel()
		return tp.Shutdown(ctx)
	}, nil
}

// StartSpan starts a span on the global provider.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentation).Start(ctx, name, opts...)
}
