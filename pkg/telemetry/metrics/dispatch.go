package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/beacon/pkg/config"
)

// DispatchMetrics tracks delivery and audit.
//
// Metrics:
//   - beacon_dispatch_total: dispatched results by notifier and status
//   - beacon_audit_write_failures_total: audit entries that could not be written
type DispatchMetrics struct {
	dispatchTotal *prometheus.CounterVec
	auditFailures prometheus.Counter
}

// NewDispatchMetrics creates and registers dispatch metrics.
func NewDispatchMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *DispatchMetrics {
	dm := &DispatchMetrics{
		dispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "dispatch_total",
				Help:      "Dispatched results by notifier and status (delivered, failed, suppressed, below_threshold)",
			},
			[]string{"notifier", "status"},
		),
		auditFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "audit_write_failures_total",
				Help:      "Audit entries that could not be written",
			},
		),
	}

	registry.MustRegister(dm.dispatchTotal, dm.auditFailures)
	return dm
}

// RecordDispatch counts one dispatched result.
func (dm *DispatchMetrics) RecordDispatch(notifier, status string) {
	dm.dispatchTotal.WithLabelValues(notifier, status).Inc()
}

// RecordAuditFailure counts one failed audit write.
func (dm *DispatchMetrics) RecordAuditFailure() {
	dm.auditFailures.Inc()
}
