// Package store persists waste-input records, their append-only history, and
// invalid-submission diagnostics. Stores are pure I/O: revision arithmetic,
// ownership checks, and idempotency decisions belong to the service layer.
package store

import (
	"context"
	"encoding/json"
	"time"

	"wastetrack/internal/movement/models"
)

// ConditionalUpdate describes a revision-predicated write. The write matches
// only when the stored row still carries ExpectedRevision (and, when set,
// ExpectedOrgID); zero matches surface as sentinel.ErrConflict.
type ConditionalUpdate struct {
	TrackingID       string
	ExpectedRevision int
	// ExpectedOrgID tightens the predicate to the owning organisation.
	// Empty skips the organisation clause.
	ExpectedOrgID string
	Section       models.Section
	Payload       json.RawMessage
	BulkID        string
	TraceID       string
	UpdatedAt     time.Time
}

// AuditLookup locates a record (live row first, then history snapshots) for
// audit re-emission. Either TraceID or the (TrackingID, Revision) pair must be
// set.
type AuditLookup struct {
	TraceID    string
	TrackingID string
	Revision   int
}

// Store is the persistence contract for the record set, history log, and
// diagnostics. Implementations must honour sentinel errors:
// Get returns sentinel.ErrNotFound, Insert returns sentinel.ErrDuplicate,
// ApplyConditional returns sentinel.ErrConflict on zero matches.
type Store interface {
	Get(ctx context.Context, trackingID string) (*models.WasteInput, error)
	Insert(ctx context.Context, input *models.WasteInput) error
	ApplyConditional(ctx context.Context, update ConditionalUpdate) error

	AppendHistory(ctx context.Context, entry models.HistoryEntry) error
	HistoryCount(ctx context.Context, trackingID string) (int, error)
	HistoryByRevision(ctx context.Context, trackingID string, revision int) (*models.HistoryEntry, error)

	// FindByBulk returns records tagged with bulkID at the given generation,
	// checking live rows first and falling back to history snapshots (a later
	// mutation moves the live row past the generation the probe looks for).
	FindByBulk(ctx context.Context, bulkID string, generation models.BulkRevision) ([]models.WasteInput, error)

	RecordInvalidSubmission(ctx context.Context, submission models.InvalidSubmission) error

	// FindForAudit resolves a record for audit re-emission, searching live
	// rows then history. Returns sentinel.ErrNotFound when nothing matches.
	FindForAudit(ctx context.Context, lookup AuditLookup) (*models.WasteInput, error)
}
