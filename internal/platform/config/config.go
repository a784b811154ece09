// Package config loads service configuration from an optional YAML file
// (with ${VAR} expansion) overlaid by environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the fully resolved service configuration.
type Config struct {
	Server   Server
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Notify   NotifyConfig
	Workers  WorkerConfig
	Retry    RetryConfig
	Guard    GuardConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr               string
	Environment        string
	LogLevel           string
	CORSAllowedOrigins []string
}

// DatabaseConfig selects PostgreSQL stores when URL is set; otherwise the
// in-memory stores are used.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig backs the task queue when URL is set.
type RedisConfig struct {
	URL          string
	Queue        string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables match event publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// NotifyConfig points at the email transport. An empty URL logs messages
// instead of sending them.
type NotifyConfig struct {
	URL     string
	Timeout time.Duration
}

// WorkerConfig sizes the matching worker pool.
type WorkerConfig struct {
	Concurrency int
}

// RetryConfig tunes the notification retry queue.
type RetryConfig struct {
	MaxAttempts  int
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
	PollInterval time.Duration
	BatchSize    int
}

// GuardConfig tunes the missing-person intake guard.
type GuardConfig struct {
	DuplicateWindow time.Duration
	RateWindow      time.Duration
	RateLimit       int
}

// IsProduction reports whether the service runs with production defaults.
func (s Server) IsProduction() bool {
	return strings.EqualFold(s.Environment, "production")
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Server struct {
		Addr        string   `yaml:"addr"`
		Environment string   `yaml:"environment"`
		LogLevel    string   `yaml:"log_level"`
		CORSOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		URL   string `yaml:"url"`
		Queue string `yaml:"queue"`
	} `yaml:"redis"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
	Notify struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"notify"`
	Workers struct {
		Concurrency int `yaml:"concurrency"`
	} `yaml:"workers"`
	Retry struct {
		MaxAttempts  int    `yaml:"max_attempts"`
		BaseBackoff  string `yaml:"base_backoff"`
		MaxBackoff   string `yaml:"max_backoff"`
		PollInterval string `yaml:"poll_interval"`
	} `yaml:"retry"`
}

// Load resolves configuration: built-in defaults, then the YAML file named
// by GUIDINGHAND_CONFIG (if any), then environment variables.
func Load() (*Config, error) {
	var raw rawConfig
	if path := os.Getenv("GUIDINGHAND_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &raw); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	}
	return fromRaw(raw)
}

func fromRaw(raw rawConfig) (*Config, error) {
	notifyTimeout, err := durationOr(raw.Notify.Timeout, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("notify.timeout: %w", err)
	}
	baseBackoff, err := durationOr(raw.Retry.BaseBackoff, 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("retry.base_backoff: %w", err)
	}
	maxBackoff, err := durationOr(raw.Retry.MaxBackoff, 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("retry.max_backoff: %w", err)
	}
	pollInterval, err := durationOr(raw.Retry.PollInterval, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("retry.poll_interval: %w", err)
	}

	cfg := &Config{
		Server: Server{
			Addr:               firstNonEmpty(os.Getenv("ADDR"), raw.Server.Addr, ":8080"),
			Environment:        firstNonEmpty(os.Getenv("ENVIRONMENT"), raw.Server.Environment, "development"),
			LogLevel:           firstNonEmpty(os.Getenv("LOG_LEVEL"), raw.Server.LogLevel, "info"),
			CORSAllowedOrigins: listOr(os.Getenv("CORS_ALLOWED_ORIGINS"), raw.Server.CORSOrigins),
		},
		Database: DatabaseConfig{
			URL:             firstNonEmpty(os.Getenv("DATABASE_URL"), raw.Database.URL),
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			URL:          firstNonEmpty(os.Getenv("REDIS_URL"), raw.Redis.URL),
			Queue:        firstNonEmpty(os.Getenv("TASK_QUEUE"), raw.Redis.Queue, "guidinghand:tasks"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: listOr(os.Getenv("KAFKA_BROKERS"), raw.Kafka.Brokers),
			Topic:   firstNonEmpty(os.Getenv("MATCH_EVENTS_TOPIC"), raw.Kafka.Topic, "guidinghand.match.events"),
		},
		Notify: NotifyConfig{
			URL:     firstNonEmpty(os.Getenv("NOTIFY_URL"), raw.Notify.URL),
			Timeout: envOrDefaultDuration("NOTIFY_TIMEOUT", notifyTimeout),
		},
		Workers: WorkerConfig{
			Concurrency: envOrDefaultInt("WORKER_CONCURRENCY", intOr(raw.Workers.Concurrency, 4)),
		},
		Retry: RetryConfig{
			MaxAttempts:  envOrDefaultInt("RETRY_MAX_ATTEMPTS", intOr(raw.Retry.MaxAttempts, 5)),
			BaseBackoff:  envOrDefaultDuration("RETRY_BASE_BACKOFF", baseBackoff),
			MaxBackoff:   envOrDefaultDuration("RETRY_MAX_BACKOFF", maxBackoff),
			PollInterval: envOrDefaultDuration("RETRY_POLL_INTERVAL", pollInterval),
			BatchSize:    50,
		},
		Guard: DefaultGuard(),
	}

	if cfg.Workers.Concurrency < 1 {
		return nil, fmt.Errorf("WORKER_CONCURRENCY must be at least 1, got %d", cfg.Workers.Concurrency)
	}
	if cfg.Retry.MaxAttempts < 1 {
		return nil, fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.MaxBackoff < cfg.Retry.BaseBackoff {
		return nil, fmt.Errorf("RETRY_MAX_BACKOFF (%s) is below RETRY_BASE_BACKOFF (%s)", cfg.Retry.MaxBackoff, cfg.Retry.BaseBackoff)
	}
	return cfg, nil
}

// DefaultGuard returns the intake guard windows: one duplicate per 24h and
// at most five reports per reporter per hour.
func DefaultGuard() GuardConfig {
	return GuardConfig{
		DuplicateWindow: 24 * time.Hour,
		RateWindow:      time.Hour,
		RateLimit:       5,
	}
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func durationOr(s string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	return time.ParseDuration(s)
}

func intOr(n, fallback int) int {
	if n == 0 {
		return fallback
	}
	return n
}

// listOr splits a comma separated env value, falling back to the YAML list.
func listOr(env string, fallback []string) []string {
	if strings.TrimSpace(env) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(env, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
