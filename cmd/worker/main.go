package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/mesflow-backend/internal/engine"
	"github.com/angelmondragon/mesflow-backend/internal/tasks"
	"github.com/angelmondragon/mesflow-backend/pkg/config"
	"github.com/angelmondragon/mesflow-backend/pkg/db"
	"github.com/angelmondragon/mesflow-backend/pkg/functions"
	"github.com/angelmondragon/mesflow-backend/pkg/gcp"
	"github.com/angelmondragon/mesflow-backend/pkg/instance"
	"github.com/angelmondragon/mesflow-backend/pkg/logger"
	"github.com/angelmondragon/mesflow-backend/pkg/metrics"
	"github.com/angelmondragon/mesflow-backend/pkg/migrate"
	"github.com/angelmondragon/mesflow-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/mesflow-backend/pkg/pubsub"
	"github.com/angelmondragon/mesflow-backend/pkg/redis"
)

const serviceKind = "worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind
	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"serviceKind":  serviceKind,
		"subscription": cfg.PubSub.TasksSubscription,
		"instance":     instance.GetID(),
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "worker shut down")
}

// run wires the task consumer onto the shared engine. Deferred closes run
// in reverse order once the consumer drains.
func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeWith(ctx, logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer closeWith(ctx, logg, "redis", redisClient.Close)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	defer closeWith(ctx, logg, "pubsub", pubsubClient.Close)

	functionsClient, err := functions.NewClient(ctx, cfg.Functions, functions.WithGCPOptions(gcp.ClientOptions(cfg.GCP)...))
	if err != nil {
		return fmt.Errorf("create functions client: %w", err)
	}

	exporter, closeExporter, err := engine.NewExporter(ctx, cfg, logg)
	if err != nil {
		return fmt.Errorf("bootstrap bigquery export: %w", err)
	}
	defer closeWith(ctx, logg, "bigquery", closeExporter)

	engineMetrics := metrics.NewEngineMetrics(prometheus.DefaultRegisterer)
	eng, err := engine.New(engine.Params{
		Config:    cfg,
		DB:        dbClient,
		Functions: functionsClient,
		Logger:    logg,
		Exporter:  exporter,
		Metrics:   engineMetrics,
	})
	if err != nil {
		return fmt.Errorf("assemble engine: %w", err)
	}

	seen, err := idempotency.NewTracker(redisClient, cfg.Eventing.TaskIdempotencyTTL)
	if err != nil {
		return fmt.Errorf("create idempotency manager: %w", err)
	}
	taskConsumer, err := tasks.NewConsumer(tasks.ConsumerParams{
		Subscription: pubsubClient.TasksSubscription(),
		Idempotency:  seen,
		Handlers: tasks.Handlers{
			Requirements: eng.Jobs,
			Scheduler:    functionsClient,
			MRP:          eng.MRP,
		},
		Logger:  logg,
		Metrics: engineMetrics,
	})
	if err != nil {
		return fmt.Errorf("create task consumer: %w", err)
	}

	service, err := NewService(ServiceParams{
		Logger: logg,
		Dependencies: map[string]pinger{
			"database": dbClient,
			"redis":    redisClient,
			"pubsub":   pubsubClient,
		},
		Consumer: taskConsumer,
	})
	if err != nil {
		return fmt.Errorf("create worker service: %w", err)
	}

	logg.Info(ctx, "starting worker")
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return metrics.Serve(groupCtx, cfg.App.MetricsAddr, prometheus.DefaultGatherer, logg)
	})
	group.Go(func() error { return service.Run(groupCtx) })
	return group.Wait()
}

func closeWith(ctx context.Context, logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(ctx, "error closing "+name, err)
	}
}
