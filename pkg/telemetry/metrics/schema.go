package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/beacon/pkg/config"
)

// SchemaMetrics tracks the category catalog.
//
// Metrics:
//   - beacon_schema_load_failures_total: rejected categories by category ID
//   - beacon_schema_categories: categories in the active catalog
//   - beacon_schema_reloads_total: catalog reloads
type SchemaMetrics struct {
	loadFailures *prometheus.CounterVec
	categories   prometheus.Gauge
	reloads      prometheus.Counter
}

// NewSchemaMetrics creates and registers catalog metrics.
func NewSchemaMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SchemaMetrics {
	sm := &SchemaMetrics{
		loadFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "schema_load_failures_total",
				Help:      "Categories rejected during load, by category ID",
			},
			[]string{"category"},
		),
		categories: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "schema_categories",
				Help:      "Categories in the active catalog",
			},
		),
		reloads: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "schema_reloads_total",
				Help:      "Catalog reloads",
			},
		),
	}

	registry.MustRegister(sm.loadFailures, sm.categories, sm.reloads)
	return sm
}

// RecordLoadFailure counts one rejected category.
func (sm *SchemaMetrics) RecordLoadFailure(categoryID string) {
	sm.loadFailures.WithLabelValues(categoryID).Inc()
}

// SetCategories records the size of the catalog after a reload.
func (sm *SchemaMetrics) SetCategories(count int) {
	sm.categories.Set(float64(count))
	sm.reloads.Inc()
}
