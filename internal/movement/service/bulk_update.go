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

type BulkUpdateItem struct {
	TrackingID string
	Payload    json.RawMessage
}

type BulkUpdateRequest struct {
	BulkID  string
	TraceID string
	Items   []BulkUpdateItem
}

type BulkUpdateResult struct {
	// Updated is false when the batch was recognised as already applied and
	// nothing was written.
	Updated bool
	Records []models.WasteInput
}

// BulkUpdate applies the batch of receipt updates all-or-nothing: one missing
// record or concurrency conflict aborts every write, including the history
// snapshots taken so far. A bulk id whose update generation already exists is
// a no-op.
func (s *Service) BulkUpdate(ctx context.Context, req BulkUpdateRequest) (*BulkUpdateResult, error) {
	if req.BulkID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "bulkId is required")
	}
	if len(req.Items) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "at least one movement is required")
	}
	for _, item := range req.Items {
		if item.TrackingID == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "every movement must carry a wasteTrackingId")
		}
		if len(item.Payload) == 0 {
			return nil, dErrors.New(dErrors.CodeBadRequest, "every movement must carry a receipt")
		}
	}

	if s.cache != nil && s.cache.Seen(ctx, req.BulkID, models.BulkUpdated) {
		if prior, err := s.reader.FindByBulk(ctx, req.BulkID, models.BulkUpdated); err == nil && len(prior) > 0 {
			return &BulkUpdateResult{Updated: false, Records: prior}, nil
		}
	}

	var result BulkUpdateResult
	err := s.retrying(ctx, s.mutatePolicy, "bulk update waste inputs", func(ctx context.Context) error {
		return s.tx.RunInTx(ctx, func(st store.Store) error {
			applied, findErr := st.FindByBulk(ctx, req.BulkID, models.BulkUpdated)
			if findErr != nil {
				return findErr
			}
			if len(applied) > 0 {
				result = BulkUpdateResult{Updated: false, Records: applied}
				return nil
			}

			now := s.now().UTC()
			updated := make([]models.WasteInput, 0, len(req.Items))
			for _, item := range req.Items {
				current, getErr := st.Get(ctx, item.TrackingID)
				if errors.Is(getErr, sentinel.ErrNotFound) {
					return dErrors.Newf(dErrors.CodeNotFound, "waste input %s not found", item.TrackingID)
				}
				if getErr != nil {
					return getErr
				}

				if histErr := st.AppendHistory(ctx, models.HistoryEntry{
					ID:         uuid.NewString(),
					TrackingID: item.TrackingID,
					Snapshot:   *current,
					SnapshotAt: now,
				}); histErr != nil {
					return histErr
				}

				applyErr := st.ApplyConditional(ctx, store.ConditionalUpdate{
					TrackingID:       item.TrackingID,
					ExpectedRevision: current.Revision,
					Section:          models.SectionReceipt,
					Payload:          item.Payload,
					BulkID:           req.BulkID,
					TraceID:          req.TraceID,
					UpdatedAt:        now,
				})
				if errors.Is(applyErr, sentinel.ErrConflict) {
					return dErrors.Newf(dErrors.CodeConflict, "waste input %s was modified concurrently", item.TrackingID)
				}
				if applyErr != nil {
					return applyErr
				}

				after, readErr := st.Get(ctx, item.TrackingID)
				if readErr != nil {
					return readErr
				}
				updated = append(updated, *after)
			}
			result = BulkUpdateResult{Updated: true, Records: updated}
			return nil
		})
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			s.metrics.IncrementConflicts()
		}
		return nil, err
	}

	if result.Updated {
		s.markBulkSeen(ctx, req.BulkID, models.BulkUpdated)
		for _, record := range result.Records {
			s.metrics.IncrementUpdated(record.OrgID)
			s.dispatchAudit(audit.EventMovementUpdated, record)
		}
	}
	return &result, nil
}
