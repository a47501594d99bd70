package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/angelmondragon/mesflow-backend/pkg/logger"
	"github.com/angelmondragon/mesflow-backend/pkg/metrics"
)

type fakeLock struct {
	acquired bool
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.acquired = false
	f.releases++
	return nil
}

type testJob struct {
	name  string
	err   error
	runs  int
	onRun func()
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	if t.onRun != nil {
		t.onRun()
	}
	return t.err
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	sweep := &testJob{name: "mrp-sweep", err: errors.New("company failed")}
	retention := &testJob{name: "outbox-retention"}
	lock := &fakeLock{}
	reg := prometheus.NewRegistry()
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{Output: io.Discard}),
		Registry: NewRegistry(sweep, retention),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	report, err := service.runCycle(context.Background())
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if report.ran != 2 || len(report.failed) != 1 || report.failed[0] != "mrp-sweep" {
		t.Fatalf("unexpected report %+v", report)
	}
	if sweep.runs != 1 || retention.runs != 1 {
		t.Fatalf("expected each job to run once, got sweep=%d retention=%d", sweep.runs, retention.runs)
	}
	if lock.releases != 1 {
		t.Fatalf("expected lock released once, got %d", lock.releases)
	}
	count, err := testutil.GatherAndCount(reg, "mesflow_cron_job_runs_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected a run series per job, got %d", count)
	}
}

func TestServiceRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "mrp-sweep"}
	reg := prometheus.NewRegistry()
	cronMetrics := metrics.NewCronJobMetrics(reg)
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{Output: io.Discard}),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{acquired: true},
		Metrics:  cronMetrics,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	report, err := service.runCycle(context.Background())
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if !report.skipped || job.runs != 0 {
		t.Fatalf("expected job to be skipped, ran %d times", job.runs)
	}
	count, err := testutil.GatherAndCount(reg, "mesflow_cron_cycles_skipped_total")
	if err != nil || count != 1 {
		t.Fatalf("expected skipped cycle recorded, got %d (%v)", count, err)
	}
}

func TestServiceRunCycleStopsWhenCanceled(t *testing.T) {
	first := &testJob{name: "mrp-sweep"}
	second := &testJob{name: "outbox-retention"}
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{Output: io.Discard}),
		Registry: NewRegistry(first, second),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := service.runCycle(ctx)
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if report.ran != 0 || first.runs != 0 {
		t.Fatalf("expected no jobs after cancellation, got %+v", report)
	}
	if lock.releases != 1 {
		t.Fatalf("expected lock released even when canceled")
	}
}

func TestServiceRunReturnsOnCancel(t *testing.T) {
	job := &testJob{name: "mrp-sweep"}
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{Output: io.Discard}),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{},
		Interval: time.Hour,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	job.onRun = cancel

	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("expected the startup cycle to run once, got %d", job.runs)
	}
}

func TestNewServiceRequiresLock(t *testing.T) {
	if _, err := NewService(ServiceParams{Logger: logger.New(logger.Options{Output: io.Discard})}); err == nil {
		t.Fatal("expected missing lock to fail")
	}
}
