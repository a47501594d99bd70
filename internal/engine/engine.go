// Package engine assembles the manufacturing services shared by the api and
// worker binaries.
package engine

import (
	"fmt"

	"github.com/angelmondragon/mesflow-backend/internal/fulfillment"
	"github.com/angelmondragon/mesflow-backend/internal/jobs"
	"github.com/angelmondragon/mesflow-backend/internal/ledger"
	"github.com/angelmondragon/mesflow-backend/internal/methods"
	"github.com/angelmondragon/mesflow-backend/internal/mrp"
	"github.com/angelmondragon/mesflow-backend/internal/replenishment"
	"github.com/angelmondragon/mesflow-backend/internal/sequences"
	"github.com/angelmondragon/mesflow-backend/internal/shelves"
	"github.com/angelmondragon/mesflow-backend/internal/tasks"
	"github.com/angelmondragon/mesflow-backend/pkg/config"
	"github.com/angelmondragon/mesflow-backend/pkg/db"
	"github.com/angelmondragon/mesflow-backend/pkg/functions"
	"github.com/angelmondragon/mesflow-backend/pkg/logger"
	"github.com/angelmondragon/mesflow-backend/pkg/metrics"
	"github.com/angelmondragon/mesflow-backend/pkg/outbox"
)

// Functions is the pair of external functions the job state machine calls.
type Functions interface {
	functions.Scheduler
	functions.PurchaseOrderGenerator
}

type Params struct {
	Config    *config.Config
	DB        *db.Client
	Functions Functions
	Logger    *logger.Logger
	Metrics   *metrics.EngineMetrics
	// Exporter is optional. Nil keeps suggested actions in postgres only.
	Exporter mrp.Exporter
}

type Engine struct {
	Ledger        ledger.Service
	Methods       *methods.Service
	MRP           *mrp.Service
	Jobs          *jobs.Service
	Replenishment *replenishment.Service
	Fulfillment   *fulfillment.Service
	Tasks         *tasks.Dispatcher
}

func New(params Params) (*Engine, error) {
	switch {
	case params.Config == nil:
		return nil, fmt.Errorf("config required")
	case params.DB == nil:
		return nil, fmt.Errorf("database client required")
	case params.Functions == nil:
		return nil, fmt.Errorf("functions client required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	conn := params.DB.DB()
	cfg := params.Config

	ledgerRepo := ledger.NewRepository(conn)
	ledgerSvc, err := ledger.NewService(ledgerRepo)
	if err != nil {
		return nil, err
	}
	shelfSvc, err := shelves.NewService(shelves.NewRepository(conn), ledgerRepo, params.Logger)
	if err != nil {
		return nil, err
	}
	methodSvc, err := methods.NewService(params.DB, methods.NewRepository(conn))
	if err != nil {
		return nil, err
	}
	dispatcher, err := tasks.NewDispatcher(params.DB, outbox.NewService(outbox.NewRepository(conn), params.Logger))
	if err != nil {
		return nil, err
	}

	mrpSvc, err := mrp.NewService(mrp.ServiceParams{
		DB:           params.DB,
		Repo:         mrp.NewRepository(conn),
		Balances:     ledgerRepo,
		Logger:       params.Logger,
		Metrics:      params.Metrics,
		Exporter:     params.Exporter,
		HorizonWeeks: cfg.MRP.HorizonWeeks,
	})
	if err != nil {
		return nil, fmt.Errorf("mrp service: %w", err)
	}

	jobSvc, err := jobs.NewService(jobs.ServiceParams{
		Repo:           jobs.NewRepository(conn),
		Requirements:   methodSvc,
		MRP:            mrpSvc,
		Scheduler:      params.Functions,
		PurchaseOrders: params.Functions,
		Logger:         params.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("jobs service: %w", err)
	}

	replenishmentSvc, err := replenishment.NewService(replenishment.ServiceParams{
		Repo:      replenishment.NewRepository(conn),
		Sequences: sequences.NewService(conn),
		Methods:   methodSvc,
		Shelves:   shelfSvc,
		Tasks:     dispatcher,
		Logger:    params.Logger,
		Metrics:   params.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("replenishment service: %w", err)
	}

	fulfillmentSvc, err := fulfillment.NewService(fulfillment.ServiceParams{
		Repo:    fulfillment.NewRepository(conn),
		Ledger:  ledgerSvc,
		Shelves: shelfSvc,
		Tasks:   dispatcher,
		Logger:  params.Logger,
		Metrics: params.Metrics,
		Mode:    cfg.Fulfillment.PickQuantityMode,
	})
	if err != nil {
		return nil, fmt.Errorf("fulfillment service: %w", err)
	}

	return &Engine{
		Ledger:        ledgerSvc,
		Methods:       methodSvc,
		MRP:           mrpSvc,
		Jobs:          jobSvc,
		Replenishment: replenishmentSvc,
		Fulfillment:   fulfillmentSvc,
		Tasks:         dispatcher,
	}, nil
}
