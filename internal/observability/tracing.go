package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns the named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartRunSpan opens a span for one run's lifetime.
func StartRunSpan(ctx context.Context, tracer trace.Tracer, runID, sessionID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "runner.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("session.id", sessionID),
		))
}

// EndSpan records err (when non-nil) and ends the span.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
