package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "rainmaker"

// StartPipelineSpan starts a span for the agent fan-out over one event.
func StartPipelineSpan(ctx context.Context, eventID, eventType string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "pipeline",
		trace.WithAttributes(
			attribute.String("event.id", eventID),
			attribute.String("event.type", eventType),
		),
	)
}

// StartDispatchSpan starts a span for one action execution.
func StartDispatchSpan(ctx context.Context, actionID, actionType string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "dispatch",
		trace.WithAttributes(
			attribute.String("action.id", actionID),
			attribute.String("action.type", actionType),
		),
	)
}
