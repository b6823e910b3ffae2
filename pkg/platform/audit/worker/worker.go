// Package worker drains audit events from a channel inbox so emission never
// blocks the request path that produced the mutation.
package worker

import (
	"context"
	"log/slog"

	"wastetrack/pkg/platform/audit"
)

// Worker consumes audit events from an inbox and emits them best-effort.
type Worker struct {
	emitter *audit.Emitter
	inbox   <-chan audit.Event
	logger  *slog.Logger
}

func New(emitter *audit.Emitter, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{emitter: emitter, inbox: inbox, logger: logger}
}

// Run processes events until the context is cancelled. Emit failures are
// already logged by the emitter, so the loop never stops on them.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			w.emitter.Emit(ctx, event)
		}
	}
}

// Dispatcher feeds the worker inbox without blocking callers. When the inbox
// is full the event is dropped and counted as an emission failure; audit loss
// must never stall a committed mutation.
type Dispatcher struct {
	inbox  chan<- audit.Event
	logger *slog.Logger
}

func NewDispatcher(inbox chan<- audit.Event, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{inbox: inbox, logger: logger}
}

func (d *Dispatcher) Dispatch(event audit.Event) {
	select {
	case d.inbox <- event:
	default:
		d.logger.Error("audit inbox full, dropping event",
			"type", string(event.Type),
			"trace_id", event.TraceID,
		)
	}
}
