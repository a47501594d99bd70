package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCronJobMetricsSplitsResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.ObserveJob("mrp-sweep", 250*time.Millisecond, nil)
	m.ObserveJob("mrp-sweep", time.Second, errors.New("company failed"))
	m.ObserveJob("outbox-retention", 10*time.Millisecond, nil)

	expected := `
# HELP mesflow_cron_job_runs_total Scheduled job executions, by job and result.
# TYPE mesflow_cron_job_runs_total counter
mesflow_cron_job_runs_total{job="mrp-sweep",result="error"} 1
mesflow_cron_job_runs_total{job="mrp-sweep",result="ok"} 1
mesflow_cron_job_runs_total{job="outbox-retention",result="ok"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "mesflow_cron_job_runs_total"); err != nil {
		t.Fatal(err)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchHistogramSum(mfs, "mesflow_cron_job_duration_seconds", "job", "mrp-sweep"); err != nil || got != 1.25 {
		t.Fatalf("expected 1.25s recorded for mrp-sweep, got %f (%v)", got, err)
	}
}

func TestCronJobMetricsCountsSkippedCycles(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.IncSkipped()
	m.IncSkipped()

	if got := testutil.ToFloat64(m.skipped); got != 2 {
		t.Fatalf("expected 2 skipped cycles, got %f", got)
	}
}

func TestCronJobMetricsEmptyJobName(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCronJobMetrics(reg).ObserveJob("", time.Millisecond, nil)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "mesflow_cron_job_runs_total", "job", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected unnamed job under unknown, got %f (%v)", got, err)
	}
}

func TestNilCronJobMetricsIsNoop(t *testing.T) {
	var m *CronJobMetrics
	m.ObserveJob("job", time.Second, nil)
	m.IncSkipped()
	NewCronJobMetrics(nil).ObserveJob("job", time.Second, nil)
}
