package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/beacon/pkg/config"
)

// RouteMetrics tracks routing.
//
// Metrics:
//   - beacon_route_evaluations_total: trigger evaluations by category, trigger, outcome
//   - beacon_route_duration_seconds: Route latency
//   - beacon_route_results_total: RouteResults produced
//   - beacon_route_errors_total: Route calls that returned an error
//   - beacon_suppressed_total: suppressed results by trigger and reason
type RouteMetrics struct {
	evaluations   *prometheus.CounterVec
	duration      prometheus.Histogram
	results       prometheus.Counter
	errors        prometheus.Counter
	suppressedVec *prometheus.CounterVec
}

// NewRouteMetrics creates and registers routing metrics.
func NewRouteMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RouteMetrics {
	rm := &RouteMetrics{
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "route_evaluations_total",
				Help:      "Trigger evaluations by category, trigger and outcome (passed, failed)",
			},
			[]string{"category", "trigger", "outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "route_duration_seconds",
				Help:      "Time to route one envelope against every category",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
		),
		results: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "route_results_total",
				Help:      "RouteResults produced",
			},
		),
		errors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "route_errors_total",
				Help:      "Route calls that returned at least one error",
			},
		),
		suppressedVec: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "suppressed_total",
				Help:      "Routed triggers marked suppressed, by trigger and reason",
			},
			[]string{"trigger", "reason"},
		),
	}

	registry.MustRegister(rm.evaluations, rm.duration, rm.results, rm.errors, rm.suppressedVec)
	return rm
}

// RecordEvaluation counts one trigger evaluation.
func (rm *RouteMetrics) RecordEvaluation(categoryID, triggerID string, passed bool) {
	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	rm.evaluations.WithLabelValues(categoryID, triggerID, outcome).Inc()
}

// RecordSuppressed counts one suppressed result.
func (rm *RouteMetrics) RecordSuppressed(triggerID, reason string) {
	rm.suppressedVec.WithLabelValues(triggerID, reason).Inc()
}

// RecordRoute records a completed Route call.
func (rm *RouteMetrics) RecordRoute(duration time.Duration, results int, err error) {
	rm.duration.Observe(duration.Seconds())
	rm.results.Add(float64(results))
	if err != nil {
		rm.errors.Inc()
	}
}
