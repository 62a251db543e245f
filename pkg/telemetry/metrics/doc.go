// Package metrics exposes Beacon's Prometheus metrics.
//
// A single Collector registers every metric and implements the observer
// interfaces of the schema catalog, router, dispatcher and audit recorder:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	catalog.WithObserver(collector)
//	r.WithObserver(collector)
//	d.WithObserver(collector)
//	recorder.WithObserver(collector)
//	mux.Handle("/metrics", collector.Handler())
//
// Trigger and category IDs come from rule files, so label sets are capped by
// a CardinalityLimiter; overflow is counted under trigger="other".
package metrics
