package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Options{ServiceName: "storefront-cache"})
	if err != nil {
		t.Fatalf("disabled Init returned error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("disabled shutdown returned error: %v", err)
	}

	_, span := StartSpan(context.Background(), "cache.get")
	defer span.End()
	if span.SpanContext().IsValid() {
		t.Error("span should be a no-op when tracing is disabled")
	}
}

func TestInitEnabledRecordsSpans(t *testing.T) {
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	// No collector listens here; exporting fails quietly at shutdown.
	shutdown, err := Init(context.Background(), Options{
		Enabled:     true,
		ServiceName: "storefront-cache",
		Endpoint:    "localhost:14318",
		SampleRate:  1,
	})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	_, span := StartSpan(context.Background(), "catalog.GetProduct")
	if !span.SpanContext().IsValid() {
		t.Error("expected a sampled span")
	}
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Logf("shutdown: %v", err)
	}
}

func TestWithDefaults(t *testing.T) {
	got := Options{SampleRate: 3}.withDefaults()
	if got.Endpoint != defaultEndpoint || got.Version != "dev" || got.SampleRate != defaultSampleRate {
		t.Errorf("unexpected defaults: %+v", got)
	}
	kept := Options{Endpoint: "otel:4318", Version: "1.2.0", SampleRate: 0.5}.withDefaults()
	if kept.Endpoint != "otel:4318" || kept.Version != "1.2.0" || kept.SampleRate != 0.5 {
		t.Errorf("explicit values overwritten: %+v", kept)
	}
}
