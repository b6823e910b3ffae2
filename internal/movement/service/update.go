package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"wastetrack/internal/movement/models"
	"wastetrack/internal/movement/store"
	"wastetrack/pkg/platform/audit"
	"wastetrack/pkg/platform/sentinel"
	dErrors "wastetrack/pkg/domain-errors"
)

type UpdateRequest struct {
	TrackingID string
	APICode    string
	TraceID    string
	// Section targets a partial update inside the receipt; SectionReceipt
	// replaces the whole payload.
	Section models.Section
	Payload json.RawMessage
}

type UpdateResult struct {
	// Found is false when the tracking id has no record. The attempt is
	// preserved as an invalid submission but no record or history is written.
	Found    bool
	Revision int
	Record   models.WasteInput
}

// Update applies a revision-checked mutation: snapshot the current record
// into history, then advance it by exactly one revision. The snapshot and the
// mutation commit together or not at all, so history always holds exactly
// revision-1 entries.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (*UpdateResult, error) {
	if req.TrackingID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "wasteTrackingId is required")
	}
	if len(req.Payload) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "payload is required")
	}
	orgID, err := s.validator.Resolve(req.APICode)
	if err != nil {
		return nil, err
	}

	var result UpdateResult
	err = s.retrying(ctx, s.mutatePolicy, "update waste input", func(ctx context.Context) error {
		return s.tx.RunInTx(ctx, func(st store.Store) error {
			now := s.now().UTC()
			current, getErr := st.Get(ctx, req.TrackingID)
			if errors.Is(getErr, sentinel.ErrNotFound) {
				result = UpdateResult{Found: false}
				return st.RecordInvalidSubmission(ctx, models.InvalidSubmission{
					ID:               uuid.NewString(),
					TrackingID:       req.TrackingID,
					AttemptedPayload: req.Payload,
					Reason:           models.ReasonNotFound,
					CreatedAt:        now,
				})
			}
			if getErr != nil {
				return getErr
			}
			if ownErr := s.validator.AssertOwnership(current.OrgID, orgID); ownErr != nil {
				return ownErr
			}

			if histErr := st.AppendHistory(ctx, models.HistoryEntry{
				ID:         uuid.NewString(),
				TrackingID: req.TrackingID,
				Snapshot:   *current,
				SnapshotAt: now,
			}); histErr != nil {
				return histErr
			}

			applyErr := st.ApplyConditional(ctx, store.ConditionalUpdate{
				TrackingID:       req.TrackingID,
				ExpectedRevision: current.Revision,
				ExpectedOrgID:    orgID,
				Section:          req.Section,
				Payload:          req.Payload,
				TraceID:          req.TraceID,
				UpdatedAt:        now,
			})
			if errors.Is(applyErr, sentinel.ErrConflict) {
				return s.classifyConflict(ctx, st, req.TrackingID, orgID)
			}
			if applyErr != nil {
				return applyErr
			}

			updated, readErr := st.Get(ctx, req.TrackingID)
			if readErr != nil {
				return readErr
			}
			result = UpdateResult{Found: true, Revision: updated.Revision, Record: *updated}
			return nil
		})
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			s.metrics.IncrementConflicts()
		}
		return nil, err
	}

	if !result.Found {
		s.metrics.IncrementInvalidSubmissions()
		return &result, nil
	}
	s.metrics.IncrementUpdated(orgID)
	s.dispatchAudit(audit.EventMovementUpdated, result.Record)
	return &result, nil
}

// classifyConflict turns a zero-match conditional write into the most precise
// failure the current row supports. The predicate alone cannot distinguish a
// vanished row, an ownership mismatch, and a concurrent revision bump.
func (s *Service) classifyConflict(ctx context.Context, st store.Store, trackingID, orgID string) error {
	probe, err := st.Get(ctx, trackingID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeNotFound, "waste input %s not found", trackingID)
	}
	if err != nil {
		return err
	}
	if probe.OrgID != orgID {
		return dErrors.New(dErrors.CodeForbidden, "organisation does not own this waste input")
	}
	return dErrors.Newf(dErrors.CodeConflict, "waste input %s was modified concurrently", trackingID)
}
