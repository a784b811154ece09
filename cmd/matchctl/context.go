package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"guidinghand/internal/platform/config"
	"guidinghand/internal/platform/logger"
	"guidinghand/internal/platform/redis"
	"guidinghand/internal/tasks"
	"guidinghand/internal/tasks/queue"
)

// commandContext lazily resolves what subcommands share. Tests replace
// openQueue to avoid a Redis dependency.
type commandContext struct {
	configPath string
	cfg        *config.Config
	out        io.Writer
	logger     *slog.Logger
	openQueue  func(ctx context.Context, cfg *config.Config) (tasks.Queue, func(), error)
}

func newCommandContext(out io.Writer) *commandContext {
	return &commandContext{out: out, openQueue: openRedisQueue}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		if c.logger == nil {
			c.logger = slog.Default()
		}
		return c.cfg, nil
	}
	if c.configPath != "" {
		if err := os.Setenv("GUIDINGHAND_CONFIG", c.configPath); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	c.logger = logger.NewWithWriter(os.Stderr, cfg.Server.LogLevel)
	return cfg, nil
}

func (c *commandContext) withQueue(ctx context.Context, fn func(q tasks.Queue) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	q, closeFn, err := c.openQueue(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(q)
}

func openRedisQueue(ctx context.Context, cfg *config.Config) (tasks.Queue, func(), error) {
	if cfg.Redis.URL == "" {
		return nil, nil, fmt.Errorf("REDIS_URL is not set: matchctl enqueues onto the shared Redis task queue")
	}
	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	return queue.NewRedis(rdb.Client, cfg.Redis.Queue), func() { _ = rdb.Close() }, nil
}
