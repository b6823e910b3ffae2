//go:build integration

package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"wastetrack/internal/movement/models"
	"wastetrack/internal/movement/store"
	"wastetrack/internal/platform/postgres"
	"wastetrack/pkg/platform/sentinel"
	"wastetrack/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(postgres.ApplySchema(context.Background(), s.postgres.DB))
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"waste_inputs", "waste_inputs_history", "invalid_submissions")
	s.Require().NoError(err)
}

func newWasteInput(id string) *models.WasteInput {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.WasteInput{
		ID:            id,
		Revision:      1,
		OrgID:         "org-a",
		TraceID:       "trace-" + uuid.NewString(),
		Receipt:       json.RawMessage(`{"movement":{"quantity":10}}`),
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
}

func (s *PostgresStoreSuite) insert(input *models.WasteInput) {
	s.Require().NoError(s.store.Insert(context.Background(), input))
}

func (s *PostgresStoreSuite) TestInsertAndGet() {
	ctx := context.Background()

	input := newWasteInput("WT-PG-1")
	input.BulkID = "bulk-1"
	input.SubmittingOrganisation = &models.SubmittingOrganisation{CustomerOrganisationID: "cust-1"}
	s.insert(input)

	got, err := s.store.Get(ctx, "WT-PG-1")
	s.Require().NoError(err)
	s.Equal(input.ID, got.ID)
	s.Equal(1, got.Revision)
	s.Equal("org-a", got.OrgID)
	s.Equal(input.TraceID, got.TraceID)
	s.Equal("bulk-1", got.BulkID)
	s.JSONEq(string(input.Receipt), string(got.Receipt))
	s.Require().NotNil(got.SubmittingOrganisation)
	s.Equal("cust-1", got.SubmittingOrganisation.CustomerOrganisationID)
	s.WithinDuration(input.CreatedAt, got.CreatedAt, time.Millisecond)

	_, err = s.store.Get(ctx, "WT-PG-MISSING")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestInsertDuplicate() {
	input := newWasteInput("WT-PG-DUP")
	s.insert(input)

	err := s.store.Insert(context.Background(), newWasteInput("WT-PG-DUP"))
	s.ErrorIs(err, sentinel.ErrDuplicate)
}

func (s *PostgresStoreSuite) TestApplyConditional() {
	ctx := context.Background()

	s.Run("matching revision advances by one", func() {
		s.insert(newWasteInput("WT-PG-UPD"))

		err := s.store.ApplyConditional(ctx, store.ConditionalUpdate{
			TrackingID:       "WT-PG-UPD",
			ExpectedRevision: 1,
			Section:          models.SectionReceipt,
			Payload:          json.RawMessage(`{"movement":{"quantity":20}}`),
			TraceID:          "trace-2",
			UpdatedAt:        time.Now().UTC(),
		})
		s.Require().NoError(err)

		got, err := s.store.Get(ctx, "WT-PG-UPD")
		s.Require().NoError(err)
		s.Equal(2, got.Revision)
		s.Equal("trace-2", got.TraceID)
		s.JSONEq(`{"movement":{"quantity":20}}`, string(got.Receipt))
	})

	s.Run("stale revision matches nothing", func() {
		s.insert(newWasteInput("WT-PG-STALE"))

		err := s.store.ApplyConditional(ctx, store.ConditionalUpdate{
			TrackingID:       "WT-PG-STALE",
			ExpectedRevision: 5,
			Section:          models.SectionReceipt,
			Payload:          json.RawMessage(`{}`),
			TraceID:          "trace-2",
			UpdatedAt:        time.Now().UTC(),
		})
		s.ErrorIs(err, sentinel.ErrConflict)

		got, err := s.store.Get(ctx, "WT-PG-STALE")
		s.Require().NoError(err)
		s.Equal(1, got.Revision)
	})

	s.Run("organisation predicate matches nothing for a foreign org", func() {
		s.insert(newWasteInput("WT-PG-ORG"))

		err := s.store.ApplyConditional(ctx, store.ConditionalUpdate{
			TrackingID:       "WT-PG-ORG",
			ExpectedRevision: 1,
			ExpectedOrgID:    "org-b",
			Section:          models.SectionReceipt,
			Payload:          json.RawMessage(`{}`),
			TraceID:          "trace-2",
			UpdatedAt:        time.Now().UTC(),
		})
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("section update merges into the receipt", func() {
		s.insert(newWasteInput("WT-PG-SECTION"))

		err := s.store.ApplyConditional(ctx, store.ConditionalUpdate{
			TrackingID:       "WT-PG-SECTION",
			ExpectedRevision: 1,
			Section:          models.SectionHazardous,
			Payload:          json.RawMessage(`{"containsHazardous":true}`),
			TraceID:          "trace-2",
			UpdatedAt:        time.Now().UTC(),
		})
		s.Require().NoError(err)

		got, err := s.store.Get(ctx, "WT-PG-SECTION")
		s.Require().NoError(err)
		s.JSONEq(
			`{"movement":{"quantity":10},"hazardousWaste":{"containsHazardous":true}}`,
			string(got.Receipt),
		)
	})

	s.Run("bulk id is stamped when given and kept when absent", func() {
		input := newWasteInput("WT-PG-BULKSTAMP")
		input.BulkID = "bulk-orig"
		s.insert(input)

		err := s.store.ApplyConditional(ctx, store.ConditionalUpdate{
			TrackingID:       "WT-PG-BULKSTAMP",
			ExpectedRevision: 1,
			Section:          models.SectionReceipt,
			Payload:          json.RawMessage(`{}`),
			TraceID:          "trace-2",
			UpdatedAt:        time.Now().UTC(),
		})
		s.Require().NoError(err)

		got, err := s.store.Get(ctx, "WT-PG-BULKSTAMP")
		s.Require().NoError(err)
		s.Equal("bulk-orig", got.BulkID)

		err = s.store.ApplyConditional(ctx, store.ConditionalUpdate{
			TrackingID:       "WT-PG-BULKSTAMP",
			ExpectedRevision: 2,
			Section:          models.SectionReceipt,
			Payload:          json.RawMessage(`{}`),
			BulkID:           "bulk-next",
			TraceID:          "trace-3",
			UpdatedAt:        time.Now().UTC(),
		})
		s.Require().NoError(err)

		got, err = s.store.Get(ctx, "WT-PG-BULKSTAMP")
		s.Require().NoError(err)
		s.Equal("bulk-next", got.BulkID)
	})
}

// TestConcurrentConditionalUpdate verifies the revision predicate admits
// exactly one writer per revision.
func (s *PostgresStoreSuite) TestConcurrentConditionalUpdate() {
	ctx := context.Background()
	s.insert(newWasteInput("WT-PG-RACE"))

	const goroutines = 20
	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.ApplyConditional(ctx, store.ConditionalUpdate{
				TrackingID:       "WT-PG-RACE",
				ExpectedRevision: 1,
				Section:          models.SectionReceipt,
				Payload:          json.RawMessage(`{"movement":{}}`),
				TraceID:          uuid.NewString(),
				UpdatedAt:        time.Now().UTC(),
			})
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one update should win")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "all others should conflict")

	got, err := s.store.Get(ctx, "WT-PG-RACE")
	s.Require().NoError(err)
	s.Equal(2, got.Revision)
}

func (s *PostgresStoreSuite) TestHistory() {
	ctx := context.Background()
	input := newWasteInput("WT-PG-HIST")
	s.insert(input)

	entry := models.HistoryEntry{
		ID:         uuid.NewString(),
		TrackingID: "WT-PG-HIST",
		Snapshot:   *input,
		SnapshotAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	s.Require().NoError(s.store.AppendHistory(ctx, entry))

	count, err := s.store.HistoryCount(ctx, "WT-PG-HIST")
	s.Require().NoError(err)
	s.Equal(1, count)

	got, err := s.store.HistoryByRevision(ctx, "WT-PG-HIST", 1)
	s.Require().NoError(err)
	s.Equal(entry.ID, got.ID)
	s.Equal(1, got.Snapshot.Revision)
	s.JSONEq(string(input.Receipt), string(got.Snapshot.Receipt))

	_, err = s.store.HistoryByRevision(ctx, "WT-PG-HIST", 2)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestFindByBulk() {
	ctx := context.Background()

	first := newWasteInput("WT-PG-B1")
	first.BulkID = "bulk-find"
	second := newWasteInput("WT-PG-B2")
	second.BulkID = "bulk-find"
	s.insert(first)
	s.insert(second)

	live, err := s.store.FindByBulk(ctx, "bulk-find", models.BulkInitial)
	s.Require().NoError(err)
	s.Len(live, 2)

	updated, err := s.store.FindByBulk(ctx, "bulk-find", models.BulkUpdated)
	s.Require().NoError(err)
	s.Empty(updated)

	// Move one record past revision 1 and snapshot it; the initial generation
	// must still be findable through history.
	s.Require().NoError(s.store.AppendHistory(ctx, models.HistoryEntry{
		ID:         uuid.NewString(),
		TrackingID: first.ID,
		Snapshot:   *first,
		SnapshotAt: time.Now().UTC(),
	}))
	s.Require().NoError(s.store.ApplyConditional(ctx, store.ConditionalUpdate{
		TrackingID:       first.ID,
		ExpectedRevision: 1,
		Section:          models.SectionReceipt,
		Payload:          json.RawMessage(`{}`),
		TraceID:          "trace-next",
		UpdatedAt:        time.Now().UTC(),
	}))

	initial, err := s.store.FindByBulk(ctx, "bulk-find", models.BulkInitial)
	s.Require().NoError(err)
	s.Len(initial, 2, "live row plus history snapshot together cover the batch")
}

func (s *PostgresStoreSuite) TestFindForAudit() {
	ctx := context.Background()
	input := newWasteInput("WT-PG-AUD")
	s.insert(input)

	byTrace, err := s.store.FindForAudit(ctx, store.AuditLookup{TraceID: input.TraceID})
	s.Require().NoError(err)
	s.Equal("WT-PG-AUD", byTrace.ID)

	byRevision, err := s.store.FindForAudit(ctx, store.AuditLookup{TrackingID: "WT-PG-AUD", Revision: 1})
	s.Require().NoError(err)
	s.Equal(input.TraceID, byRevision.TraceID)

	// Supersede the live row; revision 1 must resolve from history.
	s.Require().NoError(s.store.AppendHistory(ctx, models.HistoryEntry{
		ID:         uuid.NewString(),
		TrackingID: input.ID,
		Snapshot:   *input,
		SnapshotAt: time.Now().UTC(),
	}))
	s.Require().NoError(s.store.ApplyConditional(ctx, store.ConditionalUpdate{
		TrackingID:       input.ID,
		ExpectedRevision: 1,
		Section:          models.SectionReceipt,
		Payload:          json.RawMessage(`{}`),
		TraceID:          "trace-next",
		UpdatedAt:        time.Now().UTC(),
	}))

	fromHistory, err := s.store.FindForAudit(ctx, store.AuditLookup{TrackingID: "WT-PG-AUD", Revision: 1})
	s.Require().NoError(err)
	s.Equal(1, fromHistory.Revision)
	s.Equal(input.TraceID, fromHistory.TraceID)

	_, err = s.store.FindForAudit(ctx, store.AuditLookup{TraceID: "trace-unknown"})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestRecordInvalidSubmission() {
	ctx := context.Background()

	err := s.store.RecordInvalidSubmission(ctx, models.InvalidSubmission{
		ID:               uuid.NewString(),
		TrackingID:       "WT-PG-NOPE",
		AttemptedPayload: json.RawMessage(`{"movement":{}}`),
		Reason:           models.ReasonNotFound,
		CreatedAt:        time.Now().UTC(),
	})
	s.Require().NoError(err)

	var count int
	err = s.postgres.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM invalid_submissions WHERE tracking_id = $1`, "WT-PG-NOPE",
	).Scan(&count)
	s.Require().NoError(err)
	s.Equal(1, count)
}
