package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"guidinghand/internal/platform/config"
	"guidinghand/migrations"
)

const pingTimeout = 5 * time.Second

var (
	dbOpenConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "guidinghand_db_open_conns",
		Help: "Established connections, in use and idle",
	})
	dbInUseConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "guidinghand_db_in_use_conns",
		Help: "Connections currently in use",
	})
	dbWaitSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guidinghand_db_wait_seconds_total",
		Help: "Time spent waiting for a free connection; intake advisory locks hold one per reporter",
	})
)

// Pool owns the *sql.DB behind every Postgres store.
type Pool struct {
	db       *sql.DB
	lastWait time.Duration
}

// New opens the pgx-backed pool, pings it, and applies the embedded
// migrations before any store touches the schema. Returns nil, nil when the
// URL is empty so callers can fall back to in-memory stores.
func New(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, errors.Join(fmt.Errorf("ping database: %w", err), db.Close())
	}
	if err := migrations.Apply(ctx, db); err != nil {
		return nil, errors.Join(fmt.Errorf("apply migrations: %w", err), db.Close())
	}
	return &Pool{db: db}, nil
}

func (p *Pool) DB() *sql.DB {
	return p.db
}

func (p *Pool) Health(ctx context.Context) error {
	if p == nil || p.db == nil {
		return fmt.Errorf("database not configured")
	}
	return p.db.PingContext(ctx)
}

// RecordPoolStats updates the pool gauges. Called periodically from main.
func (p *Pool) RecordPoolStats() {
	stats := p.db.Stats()
	dbOpenConns.Set(float64(stats.OpenConnections))
	dbInUseConns.Set(float64(stats.InUse))
	if stats.WaitDuration > p.lastWait {
		dbWaitSeconds.Add((stats.WaitDuration - p.lastWait).Seconds())
	}
	p.lastWait = stats.WaitDuration
}

func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
