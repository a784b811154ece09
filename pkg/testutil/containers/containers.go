//go:build integration

// Package containers starts the Postgres, Redis, and Kafka dependencies for
// integration suites. Each starts on first use and is shared by every suite
// in the test binary; Ryuk removes them when the process exits.
package containers

import (
	"sync"
	"testing"
)

type Manager struct {
	mu       sync.Mutex
	postgres *PostgresContainer
	redis    *RedisContainer
	kafka    *KafkaContainer
}

var globalManager = sync.OnceValue(func() *Manager { return &Manager{} })

func GetManager() *Manager {
	return globalManager()
}

// lazy starts *slot once under m.mu.
func lazy[C any](m *Manager, t *testing.T, slot **C, start func(*testing.T) *C) *C {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if *slot == nil {
		*slot = start(t)
	}
	return *slot
}

// GetPostgres returns a migrated Postgres. Suites call TruncateAll in
// SetupTest because the schema is shared.
func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	return lazy(m, t, &m.postgres, NewPostgresContainer)
}

// GetRedis returns a Redis for the task queue suites.
func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	return lazy(m, t, &m.redis, NewRedisContainer)
}

// GetKafka returns a single-broker Kafka for the match event suites.
func (m *Manager) GetKafka(t *testing.T) *KafkaContainer {
	return lazy(m, t, &m.kafka, NewKafkaContainer)
}
