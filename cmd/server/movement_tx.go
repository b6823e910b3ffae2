package main

import (
	"context"
	"database/sql"
	"time"

	"wastetrack/internal/movement/store"
	dErrors "wastetrack/pkg/domain-errors"
)

const defaultMovementTxTimeout = 5 * time.Second

// movementPostgresTx runs a mutation against a single SQL transaction. The
// callback gets a transaction-scoped store; any error rolls everything back,
// including history snapshots already appended.
type movementPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newMovementPostgresTx(db *sql.DB, timeout time.Duration) *movementPostgresTx {
	return &movementPostgresTx{db: db, timeout: timeout}
}

func (t *movementPostgresTx) RunInTx(ctx context.Context, fn func(s store.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultMovementTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(store.NewPostgresTx(tx)); err != nil {
		return err
	}

	return tx.Commit()
}
