package service

import (
	"context"
	"errors"

	"wastetrack/internal/movement/store"
	"wastetrack/pkg/platform/audit"
	"wastetrack/pkg/platform/sentinel"
	dErrors "wastetrack/pkg/domain-errors"
)

// RetryAuditRequest locates a committed mutation whose original audit emission
// was lost. Either TraceID or the (TrackingID, Revision) pair must be given.
type RetryAuditRequest struct {
	TraceID    string
	TrackingID string
	Revision   int
}

// RetryAudit re-emits the audit event for an existing record state. Unlike
// the post-commit pipeline this is synchronous and strict: a sink failure is
// reported to the caller, that being the whole point of the operation.
func (s *Service) RetryAudit(ctx context.Context, req RetryAuditRequest) (*audit.Event, error) {
	byTrace := req.TraceID != ""
	byRevision := req.TrackingID != "" && req.Revision > 0
	if !byTrace && !byRevision {
		return nil, dErrors.New(dErrors.CodeBadRequest, "a traceId or a wasteTrackingId with revision is required")
	}
	if s.retrier == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "audit emitter is not configured")
	}

	record, err := s.reader.FindForAudit(ctx, store.AuditLookup{
		TraceID:    req.TraceID,
		TrackingID: req.TrackingID,
		Revision:   req.Revision,
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no waste input matches the audit lookup")
	}
	if err != nil {
		return nil, err
	}

	eventType := audit.EventMovementUpdated
	if record.Revision == 1 {
		eventType = audit.EventMovementCreated
	}
	event := audit.Event{
		Type:    eventType,
		TraceID: record.TraceID,
		Version: 1,
		Data:    *record,
	}
	if emitErr := s.retrier.EmitStrict(ctx, event); emitErr != nil {
		s.metrics.IncrementAuditEmitFailures()
		return nil, dErrors.Wrap(emitErr, dErrors.CodeUnavailable, "re-emit audit event")
	}
	return &event, nil
}
