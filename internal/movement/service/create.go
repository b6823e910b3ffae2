package service

import (
	"context"
	"encoding/json"
	"errors"

	"wastetrack/internal/movement/models"
	"wastetrack/internal/movement/store"
	"wastetrack/pkg/platform/audit"
	"wastetrack/pkg/platform/sentinel"
	dErrors "wastetrack/pkg/domain-errors"
)

// CreateRequest carries a single-record creation. The tracking id is issued
// externally and presented by the caller; this service never mints ids for
// single creates.
type CreateRequest struct {
	TrackingID             string
	APICode                string
	TraceID                string
	Receipt                json.RawMessage
	SubmittingOrganisation *models.SubmittingOrganisation
}

type CreateResult struct {
	Record models.WasteInput
	// Replayed marks a duplicate submission recognised as a retry of an
	// already-applied create (same trace id). The original outcome stands.
	Replayed bool
}

// Create inserts a new record at revision 1. A duplicate tracking id from the
// same trace is treated as a replayed retry and succeeds without writing;
// from any other trace it is a conflict.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if req.TrackingID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "wasteTrackingId is required")
	}
	if req.TraceID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "trace id is required")
	}
	if len(req.Receipt) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "receipt is required")
	}
	orgID, err := s.validator.Resolve(req.APICode)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	record := models.WasteInput{
		ID:                     req.TrackingID,
		Revision:               1,
		OrgID:                  orgID,
		TraceID:                req.TraceID,
		Receipt:                req.Receipt,
		SubmittingOrganisation: req.SubmittingOrganisation,
		CreatedAt:              now,
		LastUpdatedAt:          now,
	}

	var result CreateResult
	err = s.retrying(ctx, s.createPolicy, "create waste input", func(ctx context.Context) error {
		return s.tx.RunInTx(ctx, func(st store.Store) error {
			insertErr := st.Insert(ctx, &record)
			if insertErr == nil {
				result = CreateResult{Record: record}
				return nil
			}
			if !errors.Is(insertErr, sentinel.ErrDuplicate) {
				return insertErr
			}
			existing, getErr := st.Get(ctx, req.TrackingID)
			if getErr != nil {
				return getErr
			}
			if existing.TraceID != req.TraceID {
				return dErrors.Newf(dErrors.CodeConflict, "waste input %s already exists", req.TrackingID)
			}
			result = CreateResult{Record: *existing, Replayed: true}
			return nil
		})
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			s.metrics.IncrementConflicts()
		}
		return nil, err
	}

	if !result.Replayed {
		s.metrics.IncrementCreated(orgID)
		s.dispatchAudit(audit.EventMovementCreated, result.Record)
	}
	return &result, nil
}
