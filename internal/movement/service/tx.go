package service

import (
	"context"
	"time"

	"wastetrack/internal/movement/store"
)

const defaultMemoryTxTimeout = 5 * time.Second

// MemoryTx runs mutations against a MemoryStore with all-or-nothing
// semantics: fn mutates a deep clone, and only a successful fn swaps the
// clone in. Test and local-mode counterpart of the SQL transaction runner
// wired in cmd/server.
type MemoryTx struct {
	store   *store.MemoryStore
	timeout time.Duration
}

func NewMemoryTx(s *store.MemoryStore) *MemoryTx {
	return &MemoryTx{store: s, timeout: defaultMemoryTxTimeout}
}

func (t *MemoryTx) RunInTx(ctx context.Context, fn func(s store.Store) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	clone := t.store.Clone()
	if err := fn(clone); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.store.Adopt(clone)
	return nil
}
