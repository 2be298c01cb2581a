package usecase

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var serviceTracer = otel.Tracer("matchday/internal/usecase")

// inertSpan is handed out when the caller carries no span context, so
// background refresh cycles never become standalone root spans.
var inertSpan = trace.SpanFromContext(context.Background())

func startUsecaseSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if !trace.SpanContextFromContext(ctx).IsValid() {
		return ctx, inertSpan
	}
	return serviceTracer.Start(ctx, name)
}
