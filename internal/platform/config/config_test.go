package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GUIDINGHAND_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Empty(t, cfg.Database.URL, "no DATABASE_URL selects in-memory stores")
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "guidinghand.match.events", cfg.Kafka.Topic)
	assert.Equal(t, 10*time.Second, cfg.Notify.Timeout)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 24*time.Hour, cfg.Guard.DuplicateWindow)
	assert.Equal(t, time.Hour, cfg.Guard.RateWindow)
	assert.Equal(t, 5, cfg.Guard.RateLimit)
}

func TestLoad_YAMLWithEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlDoc := `
server:
  addr: ":9090"
database:
  url: "${TEST_PG_URL}"
kafka:
  brokers: ["kafka-1:9092", "kafka-2:9092"]
retry:
  max_attempts: 8
  base_backoff: 1s
  max_backoff: 1m
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))

	t.Setenv("GUIDINGHAND_CONFIG", path)
	t.Setenv("TEST_PG_URL", "postgres://gh@db/gh")
	t.Setenv("RETRY_MAX_ATTEMPTS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "postgres://gh@db/gh", cfg.Database.URL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts, "env wins over yaml")
	assert.Equal(t, time.Second, cfg.Retry.BaseBackoff)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("GUIDINGHAND_CONFIG", "")

	t.Run("zero workers", func(t *testing.T) {
		t.Setenv("WORKER_CONCURRENCY", "0")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("max backoff below base", func(t *testing.T) {
		t.Setenv("RETRY_BASE_BACKOFF", "10m")
		t.Setenv("RETRY_MAX_BACKOFF", "1m")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("GUIDINGHAND_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := Load()
		require.Error(t, err)
	})
}

func TestListOr(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, listOr(" a, ,b ", nil))
	assert.Equal(t, []string{"x"}, listOr("", []string{"x"}))
}
