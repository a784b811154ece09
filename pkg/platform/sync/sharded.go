package sync

import (
	"context"
	"hash/fnv"
)

const defaultShards = 64

// ShardedMutex serializes work per key without a global lock. Keys that hash
// to the same shard share a lock, which is safe but may over-serialize.
// The in-memory intake path locks on the reporter email so guard checks and
// the insert are linearizable for one reporter.
//
// Each shard is a one-slot semaphore so a waiter can give up when its
// context ends.
type ShardedMutex struct {
	shards []chan struct{}
}

// NewShardedMutex creates a ShardedMutex with n shards (64 when n <= 0).
func NewShardedMutex(n int) *ShardedMutex {
	if n <= 0 {
		n = defaultShards
	}
	shards := make([]chan struct{}, n)
	for i := range shards {
		shards[i] = make(chan struct{}, 1)
	}
	return &ShardedMutex{shards: shards}
}

// Lock acquires the shard for key, waiting as long as it takes.
func (m *ShardedMutex) Lock(key string) {
	m.shards[m.shardFor(key)] <- struct{}{}
}

// LockContext acquires the shard for key or returns ctx.Err() once ctx is
// done. The shard is not held when an error is returned.
func (m *ShardedMutex) LockContext(ctx context.Context, key string) error {
	shard := m.shards[m.shardFor(key)]
	select {
	case shard <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unlock releases the shard for key.
func (m *ShardedMutex) Unlock(key string) {
	<-m.shards[m.shardFor(key)]
}

// WithLock runs fn while holding the shard for key.
func (m *ShardedMutex) WithLock(key string, fn func() error) error {
	m.Lock(key)
	defer m.Unlock(key)
	return fn()
}

func (m *ShardedMutex) shardFor(key string) int {
	if key == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(m.shards)))
}
