// Package metrics provides observability for the eligibility engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors. All methods are nil-safe
// so wiring stays optional in tests.
type Metrics struct {
	// Full pipeline latency per target evaluation.
	EvaluateLatency prometheus.Histogram

	// Evaluation outcomes by target code and transition.
	Outcomes *prometheus.CounterVec

	// Fact snapshot keys that could not be resolved.
	FactLookupMisses prometheus.Counter

	// Activation attempts by result ("activated", "failed", "lost_race").
	Activations *prometheus.CounterVec

	// Audit appends that failed and were surfaced to logs only.
	AuditAppendFailures prometheus.Counter

	// Batch customers processed by result ("ok", "failed").
	BatchCustomers *prometheus.CounterVec
}

// New creates and registers all engine metrics.
func New() *Metrics {
	return &Metrics{
		EvaluateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mosolo_eligibility_evaluate_duration_seconds",
			Help:    "Duration of one full target evaluation including side effects",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mosolo_eligibility_outcomes_total",
			Help: "Evaluation outcomes by target and transition",
		}, []string{"target", "transition"}), // transition: "became_eligible", "became_ineligible", "unchanged"
		FactLookupMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mosolo_eligibility_fact_misses_total",
			Help: "Condition keys whose fact lookup failed or was absent",
		}),
		Activations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mosolo_eligibility_activations_total",
			Help: "Activation attempts by result",
		}, []string{"result"}),
		AuditAppendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mosolo_eligibility_audit_failures_total",
			Help: "Evaluation log appends that failed (non-fatal)",
		}),
		BatchCustomers: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mosolo_eligibility_batch_customers_total",
			Help: "Customers processed by batch re-evaluation, by result",
		}, []string{"result"}),
	}
}

// ObserveEvaluateLatency records one pipeline run duration.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

// IncOutcome records an evaluation outcome.
func (m *Metrics) IncOutcome(target, transition string) {
	if m != nil {
		m.Outcomes.WithLabelValues(target, transition).Inc()
	}
}

// AddFactMisses counts unresolved fact keys.
func (m *Metrics) AddFactMisses(n int) {
	if m != nil && n > 0 {
		m.FactLookupMisses.Add(float64(n))
	}
}

// IncActivation records one activation attempt result.
func (m *Metrics) IncActivation(result string) {
	if m != nil {
		m.Activations.WithLabelValues(result).Inc()
	}
}

// IncAuditFailure counts a non-fatal audit append failure.
func (m *Metrics) IncAuditFailure() {
	if m != nil {
		m.AuditAppendFailures.Inc()
	}
}

// IncBatchCustomer records one batch customer result.
func (m *Metrics) IncBatchCustomer(result string) {
	if m != nil {
		m.BatchCustomers.WithLabelValues(result).Inc()
	}
}
