package main

import (
	"context"
	"database/sql"
	"fmt"

	"guidinghand/internal/platform/database"
	reportservice "guidinghand/internal/reports/service"
	reportstore "guidinghand/internal/reports/store"
)

// intakePostgresTx runs the intake guard and insert in one transaction,
// serialized per reporter email by a transaction-scoped advisory lock.
type intakePostgresTx struct {
	db *sql.DB
}

func newIntakePostgresTx(db *sql.DB) *intakePostgresTx {
	return &intakePostgresTx{db: db}
}

func (t *intakePostgresTx) RunInTx(ctx context.Context, reporterEmail string, fn func(ctx context.Context, store reportservice.IntakeStore) error) error {
	return database.RunInTx(ctx, t.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := database.AdvisoryXactLock(ctx, tx, "intake:"+reporterEmail); err != nil {
			return fmt.Errorf("acquire intake lock: %w", err)
		}
		return fn(ctx, reportstore.NewPostgresTx(tx))
	})
}
