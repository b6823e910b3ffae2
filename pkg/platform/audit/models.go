package audit

import "time"

// EventType classifies audit events emitted after committed mutations.
type EventType string

const (
	EventMovementCreated EventType = "movement_created"
	EventMovementUpdated EventType = "movement_updated"
)

// Valid reports whether t is one of the known event types. Emission with an
// unknown type is rejected before reaching any sink.
func (t EventType) Valid() bool {
	return t == EventMovementCreated || t == EventMovementUpdated
}

// Event is emitted from domain logic after a mutation commits. Keep it
// transport-agnostic so sinks can fan out without knowing record internals.
type Event struct {
	Type      EventType `json:"type"`
	TraceID   string    `json:"traceId"`
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}
