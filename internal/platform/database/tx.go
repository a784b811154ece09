package database

import (
	"context"
	"database/sql"
	"time"

	dErrors "guidinghand/pkg/domain-errors"
)

const defaultTxTimeout = 5 * time.Second

// RunInTx runs fn inside a transaction, committing on nil and rolling back
// otherwise. A context without a deadline gets a 5s timeout.
func RunInTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx *sql.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTxTimeout)
		defer cancel()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback after commit is no-op; error already captured
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

// AdvisoryXactLock takes a transaction-scoped advisory lock keyed by the
// hash of key. It is released on commit or rollback.
func AdvisoryXactLock(ctx context.Context, tx *sql.Tx, key string) error {
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1)::bigint)`, key)
	return err
}
