package httpapi

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var apiTracer = otel.Tracer("matchday/internal/interfaces/httpapi")

// inertSpan is handed out when the request carries no span context, so
// routes filtered out of tracing never produce standalone root spans.
var inertSpan = trace.SpanFromContext(context.Background())

// startSpan opens a handler span under the otelhttp request span.
func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if !trace.SpanContextFromContext(ctx).IsValid() {
		return ctx, inertSpan
	}
	return apiTracer.Start(ctx, name)
}
