// Package metrics exposes record review counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyjia/record-review/internal/application/service"
)

// Metrics provides observability for the record services.
type Metrics struct {
	// Records created by type
	RecordsCreated *prometheus.CounterVec

	// Applied transitions by type and status edge
	TransitionsApplied *prometheus.CounterVec

	// Refused transitions by type and failure reason
	TransitionsRejected *prometheus.CounterVec

	// Optimistic concurrency retries by operation
	ConflictRetries *prometheus.CounterVec

	// Remaining budget per category as of the last budget report
	BudgetRemaining *prometheus.GaugeVec

	registry *prometheus.Registry
}

// New registers all record review metrics on a fresh registry
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry registers all metrics on reg
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RecordsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "record_review_records_created_total",
			Help: "Total records created by record type",
		}, []string{"record_type"}),

		TransitionsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "record_review_transitions_total",
			Help: "Total applied status transitions",
		}, []string{"record_type", "from", "to"}),

		TransitionsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "record_review_transitions_rejected_total",
			Help: "Total refused transitions by reason",
		}, []string{"record_type", "reason"}), // reason: invalid_transition, terminal, not_permitted, ...

		ConflictRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "record_review_conflict_retries_total",
			Help: "Version conflicts that triggered a reload and retry",
		}, []string{"operation"}),

		BudgetRemaining: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "record_review_budget_remaining",
			Help: "Remaining budget per category from the latest budget report",
		}, []string{"category", "tier"}),

		registry: reg,
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordCreated counts a new record
func (m *Metrics) RecordCreated(recordType string) {
	if m != nil {
		m.RecordsCreated.WithLabelValues(recordType).Inc()
	}
}

// TransitionApplied counts a committed transition
func (m *Metrics) TransitionApplied(recordType, from, to string) {
	if m != nil {
		m.TransitionsApplied.WithLabelValues(recordType, from, to).Inc()
	}
}

// TransitionRejected counts a refused transition
func (m *Metrics) TransitionRejected(recordType, reason string) {
	if m != nil {
		m.TransitionsRejected.WithLabelValues(recordType, reason).Inc()
	}
}

// ConflictRetried counts one retry after a version conflict
func (m *Metrics) ConflictRetried(operation string) {
	if m != nil {
		m.ConflictRetries.WithLabelValues(operation).Inc()
	}
}

// BudgetObserved sets the remaining budget gauge. A category's previous tier
// series is dropped so only the current tier reports.
func (m *Metrics) BudgetObserved(category string, remaining float64, tier string) {
	if m == nil {
		return
	}
	m.BudgetRemaining.DeletePartialMatch(prometheus.Labels{"category": category})
	m.BudgetRemaining.WithLabelValues(category, tier).Set(remaining)
}

var _ service.Metrics = (*Metrics)(nil)
