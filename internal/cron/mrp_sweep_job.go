package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/mesflow-backend/pkg/logger"
)

type companySweeper interface {
	SweepCompanies(ctx context.Context) (int, error)
}

type MRPSweepJobParams struct {
	Logger  *logger.Logger
	Sweeper companySweeper
}

// NewMRPSweepJob recalculates suggested actions for every company.
func NewMRPSweepJob(params MRPSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("mrp sweeper required")
	}
	return &mrpSweepJob{logg: params.Logger, sweeper: params.Sweeper}, nil
}

type mrpSweepJob struct {
	logg    *logger.Logger
	sweeper companySweeper
}

func (j *mrpSweepJob) Name() string { return "mrp-sweep" }

// Run reports failure when any company failed; the others are still planned.
func (j *mrpSweepJob) Run(ctx context.Context) error {
	planned, err := j.sweeper.SweepCompanies(ctx)
	logCtx := j.logg.WithField(ctx, "companies_planned", planned)
	if err != nil {
		return fmt.Errorf("mrp sweep: %w", err)
	}
	j.logg.Info(logCtx, "mrp sweep complete")
	return nil
}
