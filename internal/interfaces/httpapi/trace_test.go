package httpapi

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpan_RequiresRequestSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	_, span := startSpan(context.Background(), "httpapi.Handler.ListDevices")
	span.End()
	if got := len(recorder.Ended()); got != 0 {
		t.Fatalf("expected no spans without a request span, got %d", got)
	}

	ctx, parent := provider.Tracer("test").Start(context.Background(), "GET /v1/devices")
	_, span = startSpan(ctx, "httpapi.Handler.ListDevices")
	span.End()
	parent.End()

	ended := recorder.Ended()
	if len(ended) != 2 {
		t.Fatalf("expected handler and request spans, got %d", len(ended))
	}
	if got := ended[0].Name(); got != "httpapi.Handler.ListDevices" {
		t.Fatalf("unexpected handler span name %q", got)
	}
	if ended[0].Parent().SpanID() != ended[1].SpanContext().SpanID() {
		t.Fatalf("handler span is not a child of the request span")
	}
}
