package service

import (
	"context"
	"encoding/json"
	"errors"

	"wastetrack/internal/movement/models"
	"wastetrack/internal/movement/store"
	"wastetrack/internal/tracking"
	"wastetrack/pkg/platform/audit"
	"wastetrack/pkg/platform/sentinel"
	dErrors "wastetrack/pkg/domain-errors"
)

// BulkCreateItem is one record of a batch creation. Batch items carry their
// owning organisation directly; the API-code handshake happens upstream of
// batch submission.
type BulkCreateItem struct {
	OrgID   string
	Receipt json.RawMessage
}

type BulkCreateRequest struct {
	BulkID  string
	TraceID string
	Items   []BulkCreateItem
}

type BulkCreateResult struct {
	TrackingIDs []string
	// AlreadyApplied marks a duplicate batch: the bulk id was created before,
	// so nothing was written and TrackingIDs lists the earlier outcome.
	AlreadyApplied bool
}

// BulkCreate creates every item of the batch under freshly issued tracking
// ids, all-or-nothing. Resubmission of an applied bulk id is a no-op that
// reports the previously created ids.
func (s *Service) BulkCreate(ctx context.Context, req BulkCreateRequest) (*BulkCreateResult, error) {
	if req.BulkID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "bulkId is required")
	}
	if len(req.Items) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "at least one movement is required")
	}
	for _, item := range req.Items {
		if item.OrgID == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "every movement must carry an orgId")
		}
		if len(item.Receipt) == 0 {
			return nil, dErrors.New(dErrors.CodeBadRequest, "every movement must carry a receipt")
		}
	}
	if s.issuer == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "tracking id issuer is not configured")
	}

	// Cache hit short-circuits before id issuance, but the store stays the
	// authority on whether the batch really ran.
	if s.cache != nil && s.cache.Seen(ctx, req.BulkID, models.BulkInitial) {
		if prior, err := s.reader.FindByBulk(ctx, req.BulkID, models.BulkInitial); err == nil && len(prior) > 0 {
			return &BulkCreateResult{TrackingIDs: trackingIDs(prior), AlreadyApplied: true}, nil
		}
	}

	var result BulkCreateResult
	err := s.retrying(ctx, s.mutatePolicy, "bulk create waste inputs", func(ctx context.Context) error {
		prior, findErr := s.reader.FindByBulk(ctx, req.BulkID, models.BulkInitial)
		if findErr != nil {
			return findErr
		}
		if len(prior) > 0 {
			result = BulkCreateResult{TrackingIDs: trackingIDs(prior), AlreadyApplied: true}
			return nil
		}

		ids, issueErr := tracking.IssueBatch(ctx, s.issuer, len(req.Items), s.batchSize)
		if issueErr != nil {
			return dErrors.Wrap(issueErr, dErrors.CodeUnavailable, "issue tracking ids")
		}
		if len(ids) != len(req.Items) {
			return dErrors.Newf(dErrors.CodeInternal, "issued %d tracking ids for %d movements", len(ids), len(req.Items))
		}

		now := s.now().UTC()
		records := make([]models.WasteInput, 0, len(req.Items))
		for i, item := range req.Items {
			records = append(records, models.WasteInput{
				ID:            ids[i],
				Revision:      1,
				OrgID:         item.OrgID,
				TraceID:       req.TraceID,
				BulkID:        req.BulkID,
				Receipt:       item.Receipt,
				CreatedAt:     now,
				LastUpdatedAt: now,
			})
		}

		txErr := s.tx.RunInTx(ctx, func(st store.Store) error {
			applied, reErr := st.FindByBulk(ctx, req.BulkID, models.BulkInitial)
			if reErr != nil {
				return reErr
			}
			if len(applied) > 0 {
				result = BulkCreateResult{TrackingIDs: trackingIDs(applied), AlreadyApplied: true}
				return nil
			}
			for i := range records {
				if insErr := st.Insert(ctx, &records[i]); insErr != nil {
					if errors.Is(insErr, sentinel.ErrDuplicate) {
						return dErrors.Newf(dErrors.CodeConflict, "waste input %s already exists", records[i].ID)
					}
					return insErr
				}
			}
			result = BulkCreateResult{TrackingIDs: ids}
			return nil
		})
		if txErr != nil {
			return txErr
		}
		if !result.AlreadyApplied {
			s.markBulkSeen(ctx, req.BulkID, models.BulkInitial)
			for _, record := range records {
				s.metrics.IncrementCreated(record.OrgID)
				s.dispatchAudit(audit.EventMovementCreated, record)
			}
		}
		return nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			s.metrics.IncrementConflicts()
		}
		return nil, err
	}
	return &result, nil
}

func (s *Service) markBulkSeen(ctx context.Context, bulkID string, generation models.BulkRevision) {
	if s.cache == nil {
		return
	}
	if err := s.cache.MarkSeen(ctx, bulkID, generation); err != nil {
		s.logger.Warn("failed to mark bulk id in cache", "bulk_id", bulkID, "error", err.Error())
	}
}

func trackingIDs(records []models.WasteInput) []string {
	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.ID)
	}
	return ids
}
