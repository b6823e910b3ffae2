// Package audit reports committed record mutations to an external
// observability system. Emission is best-effort: a failed emit is logged and
// never fails or rolls back the mutation that produced it. Callers that need
// to surface emission failure (the manual retry path) use EmitStrict.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Sink delivers a single audit event to the external audit system.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

// Emitter validates and forwards events to a sink.
type Emitter struct {
	sink   Sink
	logger *slog.Logger
}

func NewEmitter(sink Sink, logger *slog.Logger) *Emitter {
	return &Emitter{sink: sink, logger: logger}
}

// Emit sends the event best-effort. Sink failures and malformed events are
// logged and swallowed; audit is observability, not a correctness dependency
// of the store.
func (e *Emitter) Emit(ctx context.Context, event Event) {
	if err := e.EmitStrict(ctx, event); err != nil {
		e.logger.Error("failed to emit audit event",
			"type", string(event.Type),
			"trace_id", event.TraceID,
			"error", err.Error(),
		)
	}
}

// EmitStrict sends the event and propagates any failure to the caller. Used
// by the manual retry path, which exists specifically to surface emission
// failures.
func (e *Emitter) EmitStrict(ctx context.Context, event Event) error {
	if !event.Type.Valid() {
		return &InvalidEventError{Type: event.Type}
	}
	if event.Version == 0 {
		event.Version = 1
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return e.sink.Emit(ctx, event)
}

// InvalidEventError reports an event that failed validation before reaching
// the sink.
type InvalidEventError struct {
	Type EventType
}

func (e *InvalidEventError) Error() string {
	return "audit event type must be one of: movement_created, movement_updated (got " + string(e.Type) + ")"
}
