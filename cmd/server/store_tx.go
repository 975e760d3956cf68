package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "quorum/pkg/domain-errors"
	"quorum/pkg/platform/tx"
)

const defaultStoreTxTimeout = 5 * time.Second

// postgresStoreTx runs a multi-store operation atomically. The claim path
// commits the counter increment, the participant row and the pending
// assignments as one; the withdraw path commits the assignment
// cancellations and the item status flip as one. The transaction travels
// through context, so every store involved writes into it.
type postgresStoreTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newPostgresStoreTx(db *sql.DB) *postgresStoreTx {
	return &postgresStoreTx{db: db}
}

func (t *postgresStoreTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultStoreTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	dbTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = dbTx.Rollback()
	}()

	if err := fn(tx.WithTx(ctx, dbTx)); err != nil {
		return err
	}
	return dbTx.Commit()
}
