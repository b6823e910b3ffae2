// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Context keys and getter/setter functions live here so values set by
// middleware can be consumed by services without pulling net/http into the
// service layer.
//
// Usage in services (read values):
//
//	traceID := requestcontext.TraceID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithTraceID(ctx, traceID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Context key types (unexported for encapsulation).
type (
	traceIDKey     struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need raw context.WithValue.
var (
	ContextKeyTraceID     = traceIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// TraceID retrieves the correlation id for the current request. When no id was
// injected by middleware it falls back to the active OpenTelemetry span's
// trace id, and finally to the empty string.
func TraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(ContextKeyTraceID).(string); ok && traceID != "" {
		return traceID
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// WithTraceID injects a correlation id into the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ContextKeyTraceID, traceID)
}

// Now returns the request-scoped time when one was injected, otherwise the
// wall clock. Injecting a fixed time keeps store cutoff logic deterministic in
// tests.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a fixed request time into the context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
