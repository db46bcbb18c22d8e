package observe

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// scopeName is the instrumentation scope on every span the bot emits.
const scopeName = "github.com/quizzardhq/quizzard"

// StartSpan opens a span on the globally registered tracer. The caller ends
// it.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(scopeName).Start(ctx, name, opts...)
}

// TraceID returns the trace ID of the span in ctx, or "" when ctx carries no
// span with a valid trace ID. Log lines and response headers use it to tie a
// request to its spans.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
