package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []Event
	err    error
}

func (s *recordingSink) Emit(_ context.Context, event Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEmitSwallowsSinkFailure(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker unreachable")}
	emitter := NewEmitter(sink, discardLogger())

	// Must not panic or propagate; the mutation already committed.
	emitter.Emit(context.Background(), Event{
		Type:    EventMovementCreated,
		TraceID: "trace-1",
		Data:    map[string]string{"id": "WT-1"},
	})
}

func TestEmitStrictPropagatesSinkFailure(t *testing.T) {
	sinkErr := errors.New("broker unreachable")
	emitter := NewEmitter(&recordingSink{err: sinkErr}, discardLogger())

	err := emitter.EmitStrict(context.Background(), Event{
		Type:    EventMovementUpdated,
		TraceID: "trace-2",
		Data:    map[string]string{"id": "WT-2"},
	})

	assert.ErrorIs(t, err, sinkErr)
}

func TestEmitStrictRejectsUnknownType(t *testing.T) {
	sink := &recordingSink{}
	emitter := NewEmitter(sink, discardLogger())

	err := emitter.EmitStrict(context.Background(), Event{Type: "movement_deleted"})

	var invalid *InvalidEventError
	require.ErrorAs(t, err, &invalid)
	assert.Empty(t, sink.events, "invalid events never reach the sink")
}

func TestEmitStrictDefaultsVersionAndTimestamp(t *testing.T) {
	sink := &recordingSink{}
	emitter := NewEmitter(sink, discardLogger())

	err := emitter.EmitStrict(context.Background(), Event{
		Type:    EventMovementCreated,
		TraceID: "trace-3",
		Data:    map[string]string{"id": "WT-3"},
	})

	require.NoError(t, err)
	require.Len(t, sink.events, 1)
	assert.Equal(t, 1, sink.events[0].Version)
	assert.False(t, sink.events[0].Timestamp.IsZero())
}
