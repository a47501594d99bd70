package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics tracks replenishment, planning and fulfillment outcomes.
type EngineMetrics struct {
	documents     *prometheus.CounterVec
	compensations *prometheus.CounterVec
	mrpRuns       *prometheus.CounterVec
	mrpDuration   *prometheus.HistogramVec
	tasks         *prometheus.CounterVec
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
// A nil registerer yields a no-op collector.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	documents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "replenishment",
		Name:      "documents_total",
		Help:      "Documents materialized from replenishment signals.",
	}, []string{"document_type", "outcome"})
	compensations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "compensations_total",
		Help:      "Compensating rollbacks executed, by operation and result.",
	}, []string{"operation", "result"})
	mrpRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mrp",
		Name:      "runs_total",
		Help:      "MRP recalculations, by scope kind and result.",
	}, []string{"scope", "result"})
	mrpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "mrp",
		Name:      "run_duration_seconds",
		Help:      "Duration of MRP recalculations in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"scope"})
	tasks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tasks",
		Name:      "handled_total",
		Help:      "Background tasks handled by the worker.",
	}, []string{"task", "result"})
	reg.MustRegister(documents, compensations, mrpRuns, mrpDuration, tasks)
	return &EngineMetrics{
		documents:     documents,
		compensations: compensations,
		mrpRuns:       mrpRuns,
		mrpDuration:   mrpDuration,
		tasks:         tasks,
	}
}

// IncDocument counts a job or purchase order produced (or failed) by a kanban scan.
func (m *EngineMetrics) IncDocument(documentType, outcome string) {
	if m == nil || m.documents == nil {
		return
	}
	m.documents.WithLabelValues(normalizeLabel(documentType), normalizeLabel(outcome)).Inc()
}

// IncCompensation counts a rollback attempt. result is "ok" or "failed".
func (m *EngineMetrics) IncCompensation(operation, result string) {
	if m == nil || m.compensations == nil {
		return
	}
	m.compensations.WithLabelValues(normalizeLabel(operation), normalizeLabel(result)).Inc()
}

// ObserveMRPRun records one recalculation.
func (m *EngineMetrics) ObserveMRPRun(scope string, duration time.Duration, err error) {
	if m == nil || m.mrpRuns == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.mrpRuns.WithLabelValues(normalizeLabel(scope), result).Inc()
	m.mrpDuration.WithLabelValues(normalizeLabel(scope)).Observe(duration.Seconds())
}

// IncTask counts a handled background task.
func (m *EngineMetrics) IncTask(task, result string) {
	if m == nil || m.tasks == nil {
		return
	}
	m.tasks.WithLabelValues(normalizeLabel(task), normalizeLabel(result)).Inc()
}
