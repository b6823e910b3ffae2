package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// LogSink writes audit events to the structured log. Used for local
// development when no broker is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(_ context.Context, event Event) error {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal audit data: %w", err)
	}
	s.logger.Info("audit event",
		"type", string(event.Type),
		"trace_id", event.TraceID,
		"version", event.Version,
		"data", string(payload),
	)
	return nil
}
