package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/mesflow-backend/api/routes"
	"github.com/angelmondragon/mesflow-backend/internal/engine"
	"github.com/angelmondragon/mesflow-backend/pkg/config"
	"github.com/angelmondragon/mesflow-backend/pkg/db"
	"github.com/angelmondragon/mesflow-backend/pkg/functions"
	"github.com/angelmondragon/mesflow-backend/pkg/gcp"
	"github.com/angelmondragon/mesflow-backend/pkg/instance"
	"github.com/angelmondragon/mesflow-backend/pkg/logger"
	"github.com/angelmondragon/mesflow-backend/pkg/metrics"
	"github.com/angelmondragon/mesflow-backend/pkg/migrate"
	"github.com/angelmondragon/mesflow-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	functionsClient, err := functions.NewClient(context.Background(), cfg.Functions, functions.WithGCPOptions(gcp.ClientOptions(cfg.GCP)...))
	if err != nil {
		logg.Error(context.Background(), "failed to create functions client", err)
		os.Exit(1)
	}

	exporter, closeExporter, err := engine.NewExporter(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap bigquery export", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeExporter(); err != nil {
			logg.Error(context.Background(), "error closing bigquery client", err)
		}
	}()

	eng, err := engine.New(engine.Params{
		Config:    cfg,
		DB:        dbClient,
		Functions: functionsClient,
		Logger:    logg,
		Exporter:  exporter,
		Metrics:   metrics.NewEngineMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to assemble services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, prometheus.DefaultGatherer, routes.Services{
			Kanbans:     eng.Replenishment,
			Jobs:        eng.Jobs,
			Fulfillment: eng.Fulfillment,
			MRP:         eng.MRP,
			Queue:       eng.Tasks,
		}),
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shutting down gracefully")
	}
}
