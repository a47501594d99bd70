package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/angelmondragon/mesflow-backend/pkg/logger"
)

type fakeSweeper struct {
	planned int
	err     error
	calls   int
}

func (f *fakeSweeper) SweepCompanies(context.Context) (int, error) {
	f.calls++
	return f.planned, f.err
}

func TestMRPSweepJobRunsSweep(t *testing.T) {
	sweeper := &fakeSweeper{planned: 3}
	job, err := NewMRPSweepJob(MRPSweepJobParams{
		Logger:  logger.New(logger.Options{Output: io.Discard}),
		Sweeper: sweeper,
	})
	if err != nil {
		t.Fatalf("NewMRPSweepJob: %v", err)
	}
	if job.Name() != "mrp-sweep" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.calls != 1 {
		t.Fatalf("expected one sweep, got %d", sweeper.calls)
	}
}

func TestMRPSweepJobReportsPartialFailure(t *testing.T) {
	cause := errors.New("company 2 failed")
	job, err := NewMRPSweepJob(MRPSweepJobParams{
		Logger:  logger.New(logger.Options{Output: io.Discard}),
		Sweeper: &fakeSweeper{planned: 1, err: cause},
	})
	if err != nil {
		t.Fatalf("NewMRPSweepJob: %v", err)
	}
	if err := job.Run(context.Background()); !errors.Is(err, cause) {
		t.Fatalf("expected sweep error to be wrapped, got %v", err)
	}
}

func TestNewMRPSweepJobRequiresSweeper(t *testing.T) {
	if _, err := NewMRPSweepJob(MRPSweepJobParams{Logger: logger.New(logger.Options{Output: io.Discard})}); err == nil {
		t.Fatal("expected missing sweeper to fail")
	}
}
