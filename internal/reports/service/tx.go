package service

import (
	"context"
	"time"

	"guidinghand/internal/reports/metrics"
	dErrors "guidinghand/pkg/domain-errors"
	platformsync "guidinghand/pkg/platform/sync"
)

// IntakeTx runs the guard check and the insert for one reporter as a single
// linearizable step. Implementations wrap a database transaction with an
// advisory lock or, in memory, a per-reporter shard lock.
type IntakeTx interface {
	RunInTx(ctx context.Context, reporterEmail string, fn func(ctx context.Context, store IntakeStore) error) error
}

const defaultIntakeTxTimeout = 5 * time.Second

type shardedIntakeTx struct {
	mu      *platformsync.ShardedMutex
	store   IntakeStore
	timeout time.Duration
	metrics *metrics.Metrics
}

// NewShardedIntakeTx serializes intake per reporter email over an in-memory
// store.
func NewShardedIntakeTx(store IntakeStore, m *metrics.Metrics) IntakeTx {
	return &shardedIntakeTx{
		mu:      platformsync.NewShardedMutex(0),
		store:   store,
		timeout: defaultIntakeTxTimeout,
		metrics: m,
	}
}

func (t *shardedIntakeTx) RunInTx(ctx context.Context, reporterEmail string, fn func(ctx context.Context, store IntakeStore) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	lockStart := time.Now()
	if err := t.mu.LockContext(ctx, reporterEmail); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "intake busy for reporter: lock wait timed out")
	}
	defer t.mu.Unlock(reporterEmail)
	if t.metrics != nil {
		t.metrics.ObserveLockWait(time.Since(lockStart).Seconds())
	}
	return fn(ctx, t.store)
}
