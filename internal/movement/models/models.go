// Package models defines the persisted shapes of the waste-input record
// store. The receipt payload is opaque to this service; its structure is owned
// by the upstream validation layer.
package models

import (
	"encoding/json"
	"time"
)

// WasteInput is the primary record: one row per externally issued tracking id.
// Revision starts at 1 and advances by exactly one per accepted mutation; it
// doubles as the optimistic-concurrency token.
type WasteInput struct {
	ID       string `json:"wasteTrackingId"`
	Revision int    `json:"revision"`
	// OrgID identifies the owning organisation; set at creation, immutable.
	OrgID   string `json:"orgId"`
	TraceID string `json:"traceId"`
	// BulkID is present only when the record originated from, or was last
	// mutated by, a batch operation.
	BulkID string `json:"bulkId,omitempty"`
	// Receipt is the opaque movement payload, persisted as JSONB.
	Receipt json.RawMessage `json:"receipt"`
	// SubmittingOrganisation is the customer-supplied organisation reference.
	// When present the record's receipt was stripped of its API code upstream.
	SubmittingOrganisation *SubmittingOrganisation `json:"submittingOrganisation,omitempty"`
	CreatedAt              time.Time               `json:"createdAt"`
	LastUpdatedAt          time.Time               `json:"lastUpdatedAt"`
}

type SubmittingOrganisation struct {
	CustomerOrganisationID string `json:"customerOrganisationId"`
}

// HistoryEntry is an immutable snapshot of a WasteInput captured immediately
// before a mutation. Entries are keyed for retrieval by (TrackingID, Revision)
// and by TraceID, and are never updated or deleted.
type HistoryEntry struct {
	ID         string     `json:"id"`
	TrackingID string     `json:"wasteTrackingId"`
	Snapshot   WasteInput `json:"snapshot"`
	SnapshotAt time.Time  `json:"timestamp"`
}

// InvalidSubmission is a diagnostic row recorded when an update targets a
// tracking id that does not exist. It is an observability artifact, not part
// of the record/history chain.
type InvalidSubmission struct {
	ID               string          `json:"id"`
	TrackingID       string          `json:"wasteTrackingId"`
	AttemptedPayload json.RawMessage `json:"attemptedPayload"`
	Reason           string          `json:"reason"`
	CreatedAt        time.Time       `json:"timestamp"`
}

// ReasonNotFound is the only reason this core records today.
const ReasonNotFound = "Waste input not found"

// Section names a partial update target inside the receipt payload. An empty
// section replaces the whole receipt.
type Section string

const (
	SectionReceipt   Section = ""
	SectionHazardous Section = "hazardousWaste"
	SectionPops      Section = "pops"
)

// BulkRevision selects which generation of bulk-tagged rows an idempotency
// probe looks for.
type BulkRevision int

const (
	// BulkInitial matches rows still at revision 1 (bulk create already ran).
	BulkInitial BulkRevision = iota
	// BulkUpdated matches rows past revision 1 (bulk update already ran).
	BulkUpdated
)
