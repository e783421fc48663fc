package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	context_ "github.com/mkrupp/micropost/internal/infra/context"
)

// Group keys added by TracingHandler.
const (
	traceGroupKey  = "trace"
	callerGroupKey = "caller"
)

// TracingHandler wraps another slog.Handler and decorates every record with the
// request correlation found in the context: the request trace id, the active
// OpenTelemetry span and the authenticated caller.
type TracingHandler struct {
	h slog.Handler
}

var _ slog.Handler = (*TracingHandler)(nil)

// NewTracingHandler creates a new TracingHandler wrapping the given handler.
func NewTracingHandler(h slog.Handler) *TracingHandler {
	return &TracingHandler{h: h}
}

// Handle implements slog.Handler.
func (h *TracingHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make([]any, 0, 6)

	if requestID, ok := context_.RequestIDFromContext(ctx); ok {
		attrs = append(attrs, slog.String("id", requestID))
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String("otel_trace_id", sc.TraceID().String()),
			slog.String("otel_span_id", sc.SpanID().String()),
		)
	}

	if len(attrs) > 0 {
		r.AddAttrs(slog.Group(traceGroupKey, attrs...))
	}

	if identity := context_.IdentityFromContext(ctx); identity != nil {
		r.AddAttrs(slog.Group(callerGroupKey,
			slog.String("id", identity.ID.String()),
			slog.String("role", string(identity.Role)),
		))
	}

	//nolint:wrapcheck
	return h.h.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.WithAttrs.
func (h *TracingHandler) WithAttrs(attrs []slog.Attr) Handler {
	return NewTracingHandler(h.h.WithAttrs(attrs))
}

// WithGroup implements slog.Handler.WithGroup.
func (h *TracingHandler) WithGroup(name string) Handler {
	return NewTracingHandler(h.h.WithGroup(name))
}

// Enabled implements slog.Handler.Enabled.
func (h *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.h.Enabled(ctx, level)
}
