package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/slotbook/booking-api/internal/config"
	"github.com/slotbook/booking-api/internal/repository/postgres"
	"github.com/slotbook/booking-api/pkg/logger"
	"github.com/slotbook/booking-api/pkg/messaging/redis"
	"github.com/slotbook/booking-api/pkg/metrics"
	"github.com/slotbook/booking-api/pkg/worker"
)

// workerOverrides are environment knobs specific to the worker deployment;
// they take precedence over the shared config file.
type workerOverrides struct {
	HealthPort      int           `envconfig:"WORKER_HEALTH_PORT" default:"8081"`
	CleanupInterval time.Duration `envconfig:"WORKER_CLEANUP_INTERVAL" default:"1h"`
	OutboxRetention time.Duration `envconfig:"WORKER_OUTBOX_RETENTION" default:"168h"`
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	var overrides workerOverrides
	if err := envconfig.Process("", &overrides); err != nil {
		log.Fatal().Err(err).Msg("failed to read worker environment")
	}

	lg := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Pretty,
	})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		lg.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &lg.ZL)
	if err != nil {
		lg.Fatal(err, "failed to connect to redis")
	}
	defer broker.Close()

	outboxRepo := postgres.NewOutboxRepository(postgres.NewBaseRepository(db))

	processor := worker.NewOutboxProcessor(
		outboxRepo,
		broker,
		worker.OutboxProcessorConfig{
			BatchSize:    cfg.Outbox.BatchSize,
			PollInterval: cfg.Outbox.PollInterval,
			RetryDelay:   cfg.Outbox.RetryDelay,
			MaxRetries:   cfg.Outbox.MaxRetries,
		},
		lg,
		metrics.NewMetrics("booking_api", "worker"),
	)

	startHealthServer(lg, overrides.HealthPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		lg.Info("shutting down worker")
		cancel()
	}()

	go runCleanup(ctx, processor, lg, overrides.CleanupInterval, overrides.OutboxRetention)

	processor.Start(ctx)
}

func runCleanup(ctx context.Context, processor *worker.OutboxProcessor, lg *logger.Logger, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := processor.CleanupProcessed(ctx, retention); err != nil {
				lg.Error(err, "outbox cleanup failed")
			}
		}
	}
}

func startHealthServer(lg *logger.Logger, port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		addr := fmt.Sprintf(":%d", port)
		if err := http.ListenAndServe(addr, mux); err != nil {
			lg.Error(err, "health server failed")
			os.Exit(1)
		}
	}()
}
