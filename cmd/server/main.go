package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"guidinghand/internal/events"
	matchhandler "guidinghand/internal/matches/handler"
	matchservice "guidinghand/internal/matches/service"
	matchstore "guidinghand/internal/matches/store"
	"guidinghand/internal/matching/engine"
	matchingmetrics "guidinghand/internal/matching/metrics"
	"guidinghand/internal/notifications/dispatcher"
	notifymetrics "guidinghand/internal/notifications/metrics"
	"guidinghand/internal/notifications/retry"
	"guidinghand/internal/notifications/sender"
	deliverystore "guidinghand/internal/notifications/store"
	"guidinghand/internal/platform/config"
	"guidinghand/internal/platform/database"
	"guidinghand/internal/platform/health"
	"guidinghand/internal/platform/kafka/producer"
	"guidinghand/internal/platform/logger"
	"guidinghand/internal/platform/redis"
	"guidinghand/internal/reports/guard"
	reporthandler "guidinghand/internal/reports/handler"
	reportmetrics "guidinghand/internal/reports/metrics"
	reportservice "guidinghand/internal/reports/service"
	reportstore "guidinghand/internal/reports/store"
	"guidinghand/internal/tasks"
	taskmetrics "guidinghand/internal/tasks/metrics"
	"guidinghand/internal/tasks/queue"
	"guidinghand/internal/tasks/worker"
	trackerhandler "guidinghand/internal/trackers/handler"
	trackerservice "guidinghand/internal/trackers/service"
	trackerstore "guidinghand/internal/trackers/store"
	httptransport "guidinghand/internal/transport/http"
	"guidinghand/pkg/platform/middleware/request"
)

const (
	shutdownTimeout   = 10 * time.Second
	poolStatsInterval = 15 * time.Second
)

// matchStore is every match store capability the process needs.
type matchStore interface {
	matchservice.Store
	engine.Matches
	dispatcher.Matches
}

type infra struct {
	db       *database.Pool
	redis    *redis.Client
	producer *producer.Producer
}

func (i *infra) close(log *slog.Logger) {
	if i.producer != nil {
		if err := i.producer.Close(); err != nil {
			log.Error("failed to close kafka producer", "error", err)
		}
	}
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			log.Error("failed to close redis client", "error", err)
		}
	}
	if i.db != nil {
		if err := i.db.Close(); err != nil {
			log.Error("failed to close database pool", "error", err)
		}
	}
}

func (i *infra) recordPoolStats() {
	if i.db != nil {
		i.db.RecordPoolStats()
	}
	if i.redis != nil {
		i.redis.RecordPoolStats()
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	log.Info("initializing guidinghand",
		"addr", cfg.Server.Addr,
		"environment", cfg.Server.Environment,
		"database", cfg.Database.URL != "",
		"redis", cfg.Redis.URL != "",
		"kafka", len(cfg.Kafka.Brokers) > 0,
		"notify", cfg.Notify.URL != "",
	)

	inf := &infra{}
	defer inf.close(log)
	healthHandler := health.New(cfg.Server.Environment)

	// Stores
	var (
		reports    reportservice.Store
		matches    matchStore
		trackers   trackerservice.Store
		deliveries retry.Store
		intakeTx   reportservice.IntakeTx
	)
	intakeMetrics := reportmetrics.New()
	if cfg.Database.URL != "" {
		pool, err := database.New(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		inf.db = pool
		healthHandler.RegisterCheck("database", pool.Health)
		reports = reportstore.NewPostgres(pool.DB())
		matches = matchstore.NewPostgres(pool.DB())
		trackers = trackerstore.NewPostgres(pool.DB())
		deliveries = deliverystore.NewPostgres(pool.DB())
		intakeTx = newIntakePostgresTx(pool.DB())
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		memReports := reportstore.NewInMemory()
		reports = memReports
		matches = matchstore.NewInMemory()
		trackers = trackerstore.NewInMemory()
		deliveries = deliverystore.NewInMemory()
		intakeTx = reportservice.NewShardedIntakeTx(memReports, intakeMetrics)
	}

	// Task queue
	var taskQueue tasks.Queue
	if cfg.Redis.URL != "" {
		rdb, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		inf.redis = rdb
		healthHandler.RegisterCheck("redis", rdb.Health)
		taskQueue = queue.NewRedis(rdb.Client, cfg.Redis.Queue)
	} else {
		log.Warn("REDIS_URL not set, using in-memory task queue")
		mem := queue.NewMemory(0)
		defer mem.Close()
		taskQueue = mem
	}

	// Match events
	var publisher events.Publisher = events.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		p, err := producer.New(producer.DefaultConfig(cfg.Kafka.Brokers), log)
		if err != nil {
			return fmt.Errorf("create kafka producer: %w", err)
		}
		inf.producer = p
		healthHandler.RegisterOptionalCheck("kafka", p.Health)
		publisher = events.NewKafka(p, cfg.Kafka.Topic, log)
	}

	// Email transport
	var mailer sender.Sender
	if cfg.Notify.URL != "" {
		mailer = sender.NewHTTP(cfg.Notify.URL, cfg.Notify.Timeout)
	} else {
		log.Warn("NOTIFY_URL not set, notifications are logged instead of sent")
		mailer = sender.NewLog(log)
	}

	// Matching and notification pipeline
	notifyMetrics := notifymetrics.New()
	policy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseBackoff: cfg.Retry.BaseBackoff,
		MaxBackoff:  cfg.Retry.MaxBackoff,
	}
	scheduler := retry.NewScheduler(deliveries, policy, publisher, notifyMetrics, log)
	disp := dispatcher.New(reports, trackers, matches, mailer,
		dispatcher.WithRetries(scheduler),
		dispatcher.WithPublisher(publisher),
		dispatcher.WithMetrics(notifyMetrics),
		dispatcher.WithLogger(log),
	)
	retryWorker := retry.NewWorker(deliveries, scheduler, disp,
		retry.WithBatchSize(cfg.Retry.BatchSize),
		retry.WithPollInterval(cfg.Retry.PollInterval),
		retry.WithMetrics(notifyMetrics),
		retry.WithLogger(log),
	)
	eng := engine.New(reports, matches, disp,
		engine.WithPublisher(publisher),
		engine.WithMetrics(matchingmetrics.New()),
		engine.WithLogger(log),
	)
	tasksMetrics := taskmetrics.New()
	pool := worker.New(taskQueue, eng.HandleTask,
		worker.WithConcurrency(cfg.Workers.Concurrency),
		worker.WithMetrics(tasksMetrics),
		worker.WithLogger(log),
	)

	// Intake and read surfaces
	intakeGuard := guard.New(guard.Config{
		DuplicateWindow: cfg.Guard.DuplicateWindow,
		RateWindow:      cfg.Guard.RateWindow,
		RateLimit:       cfg.Guard.RateLimit,
	})
	reportSvc := reportservice.New(reports, taskQueue, intakeGuard,
		reportservice.WithIntakeTx(intakeTx),
		reportservice.WithMetrics(intakeMetrics),
		reportservice.WithTaskMetrics(tasksMetrics),
		reportservice.WithLogger(log),
	)
	router := httptransport.NewRouter(
		httptransport.RouterConfig{
			AllowedOrigins: cfg.Server.CORSAllowedOrigins,
			Metrics:        request.NewMetrics(),
		},
		log,
		healthHandler,
		reporthandler.New(reportSvc, log),
		trackerhandler.New(trackerservice.New(trackers, reports, log), log),
		matchhandler.New(matchservice.New(matches, log), log),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return pool.Run(gctx) })
	g.Go(func() error { return retryWorker.Run(gctx) })
	if inf.db != nil || inf.redis != nil {
		g.Go(func() error {
			ticker := time.NewTicker(poolStatsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					inf.recordPoolStats()
				}
			}
		})
	}
	return g.Wait()
}
