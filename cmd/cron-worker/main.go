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

	"github.com/angelmondragon/mesflow-backend/internal/cron"
	"github.com/angelmondragon/mesflow-backend/internal/engine"
	"github.com/angelmondragon/mesflow-backend/internal/ledger"
	"github.com/angelmondragon/mesflow-backend/internal/mrp"
	"github.com/angelmondragon/mesflow-backend/pkg/config"
	"github.com/angelmondragon/mesflow-backend/pkg/db"
	"github.com/angelmondragon/mesflow-backend/pkg/instance"
	"github.com/angelmondragon/mesflow-backend/pkg/logger"
	"github.com/angelmondragon/mesflow-backend/pkg/metrics"
	"github.com/angelmondragon/mesflow-backend/pkg/migrate"
	"github.com/angelmondragon/mesflow-backend/pkg/outbox"
	"github.com/angelmondragon/mesflow-backend/pkg/redis"
)

const serviceKind = "cron-worker"

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
		"env":         cfg.App.Env,
		"serviceKind": serviceKind,
		"interval":    cfg.Cron.Interval.String(),
		"instance":    instance.GetID(),
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shut down")
}

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

	exporter, closeExporter, err := engine.NewExporter(ctx, cfg, logg)
	if err != nil {
		return fmt.Errorf("bootstrap bigquery export: %w", err)
	}
	defer closeWith(ctx, logg, "bigquery", closeExporter)

	registry, err := buildJobs(cfg, logg, dbClient, exporter)
	if err != nil {
		return err
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		return fmt.Errorf("create cron lock: %w", err)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return fmt.Errorf("create cron service: %w", err)
	}

	logg.Info(ctx, "starting cron worker")
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return metrics.Serve(groupCtx, cfg.App.MetricsAddr, prometheus.DefaultGatherer, logg)
	})
	group.Go(func() error { return service.Run(groupCtx) })
	return group.Wait()
}

// buildJobs registers the MRP sweep ahead of outbox retention.
func buildJobs(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, exporter mrp.Exporter) (*cron.Registry, error) {
	conn := dbClient.DB()
	planner, err := mrp.NewService(mrp.ServiceParams{
		DB:           dbClient,
		Repo:         mrp.NewRepository(conn),
		Balances:     ledger.NewRepository(conn),
		Logger:       logg,
		Metrics:      metrics.NewEngineMetrics(prometheus.DefaultRegisterer),
		Exporter:     exporter,
		HorizonWeeks: cfg.MRP.HorizonWeeks,
	})
	if err != nil {
		return nil, fmt.Errorf("create mrp service: %w", err)
	}
	sweep, err := cron.NewMRPSweepJob(cron.MRPSweepJobParams{Logger: logg, Sweeper: planner})
	if err != nil {
		return nil, fmt.Errorf("create mrp sweep job: %w", err)
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(conn),
		Retention:  cfg.Outbox.Retention,
	})
	if err != nil {
		return nil, fmt.Errorf("create outbox retention job: %w", err)
	}

	registry := cron.NewRegistry()
	for _, job := range []cron.Job{sweep, retention} {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return serviceKind + ":" + env
}

func closeWith(ctx context.Context, logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(ctx, "error closing "+name, err)
	}
}
