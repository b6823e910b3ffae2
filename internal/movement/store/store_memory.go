package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"wastetrack/internal/movement/models"
	"wastetrack/pkg/platform/sentinel"
)

// MemoryStore is the in-memory Store used by unit tests and local runs. It
// supports cloning so a memory transaction can mutate a copy and swap it in
// only on success.
type MemoryStore struct {
	mu      sync.RWMutex
	inputs  map[string]models.WasteInput
	history []models.HistoryEntry
	invalid []models.InvalidSubmission
}

func NewMemory() *MemoryStore {
	return &MemoryStore{inputs: make(map[string]models.WasteInput)}
}

// Clone deep-copies the store. Receipt payloads are copied so a transaction
// working on the clone cannot alias committed state.
func (s *MemoryStore) Clone() *MemoryStore {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clone := &MemoryStore{
		inputs:  make(map[string]models.WasteInput, len(s.inputs)),
		history: make([]models.HistoryEntry, len(s.history)),
		invalid: make([]models.InvalidSubmission, len(s.invalid)),
	}
	for id, input := range s.inputs {
		clone.inputs[id] = copyInput(input)
	}
	for i, entry := range s.history {
		entry.Snapshot = copyInput(entry.Snapshot)
		clone.history[i] = entry
	}
	copy(clone.invalid, s.invalid)
	return clone
}

// Adopt replaces this store's state with the clone's. Called by the memory
// transaction runner after fn succeeds.
func (s *MemoryStore) Adopt(clone *MemoryStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = clone.inputs
	s.history = clone.history
	s.invalid = clone.invalid
}

func copyInput(input models.WasteInput) models.WasteInput {
	if input.Receipt != nil {
		receipt := make(json.RawMessage, len(input.Receipt))
		copy(receipt, input.Receipt)
		input.Receipt = receipt
	}
	if input.SubmittingOrganisation != nil {
		org := *input.SubmittingOrganisation
		input.SubmittingOrganisation = &org
	}
	return input
}

func (s *MemoryStore) Get(_ context.Context, trackingID string) (*models.WasteInput, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	input, ok := s.inputs[trackingID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	input = copyInput(input)
	return &input, nil
}

func (s *MemoryStore) Insert(_ context.Context, input *models.WasteInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.inputs[input.ID]; exists {
		return sentinel.ErrDuplicate
	}
	s.inputs[input.ID] = copyInput(*input)
	return nil
}

func (s *MemoryStore) ApplyConditional(_ context.Context, update ConditionalUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	input, ok := s.inputs[update.TrackingID]
	if !ok || input.Revision != update.ExpectedRevision {
		return sentinel.ErrConflict
	}
	if update.ExpectedOrgID != "" && input.OrgID != update.ExpectedOrgID {
		return sentinel.ErrConflict
	}

	receipt, err := applySection(input.Receipt, update.Section, update.Payload)
	if err != nil {
		return err
	}
	input.Receipt = receipt
	input.Revision++
	input.TraceID = update.TraceID
	input.LastUpdatedAt = update.UpdatedAt
	if update.BulkID != "" {
		input.BulkID = update.BulkID
	}
	s.inputs[update.TrackingID] = input
	return nil
}

// applySection merges a partial payload into the receipt, or replaces it
// wholesale when no section is named.
func applySection(receipt json.RawMessage, section models.Section, payload json.RawMessage) (json.RawMessage, error) {
	if section == models.SectionReceipt {
		return payload, nil
	}
	merged := make(map[string]json.RawMessage)
	if len(receipt) > 0 {
		if err := json.Unmarshal(receipt, &merged); err != nil {
			return nil, fmt.Errorf("decode receipt for section update: %w", err)
		}
	}
	merged[string(section)] = payload
	out, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encode receipt after section update: %w", err)
	}
	return out, nil
}

func (s *MemoryStore) AppendHistory(_ context.Context, entry models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.Snapshot = copyInput(entry.Snapshot)
	s.history = append(s.history, entry)
	return nil
}

func (s *MemoryStore) HistoryCount(_ context.Context, trackingID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, entry := range s.history {
		if entry.TrackingID == trackingID {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) HistoryByRevision(_ context.Context, trackingID string, revision int) (*models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, entry := range s.history {
		if entry.TrackingID == trackingID && entry.Snapshot.Revision == revision {
			found := entry
			found.Snapshot = copyInput(found.Snapshot)
			return &found, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) FindByBulk(_ context.Context, bulkID string, generation models.BulkRevision) ([]models.WasteInput, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []models.WasteInput
	for _, input := range s.inputs {
		if matchesBulk(input, bulkID, generation) {
			matches = append(matches, copyInput(input))
		}
	}
	if len(matches) > 0 {
		return matches, nil
	}
	for _, entry := range s.history {
		if matchesBulk(entry.Snapshot, bulkID, generation) {
			matches = append(matches, copyInput(entry.Snapshot))
		}
	}
	return matches, nil
}

func matchesBulk(input models.WasteInput, bulkID string, generation models.BulkRevision) bool {
	if input.BulkID != bulkID {
		return false
	}
	if generation == models.BulkInitial {
		return input.Revision == 1
	}
	return input.Revision > 1
}

func (s *MemoryStore) RecordInvalidSubmission(_ context.Context, submission models.InvalidSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invalid = append(s.invalid, submission)
	return nil
}

// InvalidSubmissions returns recorded diagnostics. Test helper; the service
// never reads them back.
func (s *MemoryStore) InvalidSubmissions() []models.InvalidSubmission {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.InvalidSubmission, len(s.invalid))
	copy(out, s.invalid)
	return out
}

func (s *MemoryStore) FindForAudit(_ context.Context, lookup AuditLookup) (*models.WasteInput, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, input := range s.inputs {
		if matchesAudit(input, lookup) {
			input = copyInput(input)
			return &input, nil
		}
	}
	for _, entry := range s.history {
		if matchesAudit(entry.Snapshot, lookup) {
			snapshot := copyInput(entry.Snapshot)
			return &snapshot, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func matchesAudit(input models.WasteInput, lookup AuditLookup) bool {
	if lookup.TraceID != "" {
		return input.TraceID == lookup.TraceID
	}
	return input.ID == lookup.TrackingID && input.Revision == lookup.Revision
}
