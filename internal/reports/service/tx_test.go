package service

import (
	"context"
	"time"

	dErrors "guidinghand/pkg/domain-errors"
)

// TestShardedIntakeTxHonorsDeadlineWhileWaiting verifies a reporter stuck
// behind a held shard gets a timeout instead of blocking forever.
func (s *ServiceSuite) TestShardedIntakeTxHonorsDeadlineWhileWaiting() {
	tx := NewShardedIntakeTx(s.store, nil).(*shardedIntakeTx)
	tx.mu.Lock("reporter@example.com")

	ctx, cancel := context.WithTimeout(s.ctx, 20*time.Millisecond)
	defer cancel()

	called := false
	start := time.Now()
	err := tx.RunInTx(ctx, "reporter@example.com", func(context.Context, IntakeStore) error {
		called = true
		return nil
	})
	s.Less(time.Since(start), time.Second)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
	s.False(called)

	s.Run("released shard is usable again", func() {
		tx.mu.Unlock("reporter@example.com")
		s.NoError(tx.RunInTx(s.ctx, "reporter@example.com", func(context.Context, IntakeStore) error { return nil }))
	})
}

func (s *ServiceSuite) TestShardedIntakeTxAppliesDefaultTimeout() {
	tx := NewShardedIntakeTx(s.store, nil).(*shardedIntakeTx)
	tx.timeout = 20 * time.Millisecond
	tx.mu.Lock("reporter@example.com")
	defer tx.mu.Unlock("reporter@example.com")

	err := tx.RunInTx(context.Background(), "reporter@example.com", func(context.Context, IntakeStore) error { return nil })
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
}
