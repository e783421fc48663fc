package http

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mkrupp/micropost/internal/domain"
	context_ "github.com/mkrupp/micropost/internal/infra/context"
)

const (
	RequestIDHeader = "X-Request-ID"
	tracerName      = "github.com/mkrupp/micropost/internal/infra/transport/http"
)

// TracingMiddleware creates middleware that adds request tracing.
// It uses the X-Request-ID header if present, otherwise generates a new ID,
// echoes it on the response and stores it in the request context. It also
// starts an OpenTelemetry server span on the globally registered provider.
func TracingMiddleware(next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := getRequestID(r)
		w.Header().Set(RequestIDHeader, requestID)

		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.request_id", requestID),
			),
		)
		defer span.End()

		sw := NewStatusRecorder(w)

		next.ServeHTTP(sw, r.WithContext(context_.WithRequestID(ctx, requestID)))

		span.SetAttributes(attribute.Int("http.status_code", sw.StatusCode))

		if sw.StatusCode >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(sw.StatusCode))
		}
	})
}

func getRequestID(r *http.Request) string {
	if requestID := r.Header.Get(RequestIDHeader); requestID != "" {
		return requestID
	}

	return domain.NewID().String()
}
