package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/beacon/pkg/audit"
	"mercator-hq/beacon/pkg/config"
	"mercator-hq/beacon/pkg/dispatch"
	"mercator-hq/beacon/pkg/router"
	"mercator-hq/beacon/pkg/rules/schema"
)

// Collector owns every Beacon metric. It implements the observer interfaces of
// the catalog, router, dispatcher and audit recorder, so wiring it is a matter
// of passing it to each WithObserver.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	routeMetrics    *RouteMetrics
	dispatchMetrics *DispatchMetrics
	schemaMetrics   *SchemaMetrics

	cardinalityLimiter *CardinalityLimiter
}

var (
	_ schema.LoadObserver   = (*Collector)(nil)
	_ router.Observer       = (*Collector)(nil)
	_ dispatch.Observer     = (*Collector)(nil)
	_ audit.FailureObserver = (*Collector)(nil)
)

// NewCollector creates a collector registering into registry. A nil registry
// creates a fresh one.
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	catalog.WithObserver(collector)
//	r.WithObserver(collector)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg == nil {
		cfg = &config.MetricsConfig{Enabled: true}
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		routeMetrics:       NewRouteMetrics(cfg, registry),
		dispatchMetrics:    NewDispatchMetrics(cfg, registry),
		schemaMetrics:      NewSchemaMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(10000),
	}
}

// TriggerEvaluated implements router.Observer.
func (c *Collector) TriggerEvaluated(categoryID, triggerID string, passed bool) {
	if !c.config.Enabled {
		return
	}
	if !c.cardinalityLimiter.Allow("eval:" + categoryID + ":" + triggerID) {
		triggerID = "other"
	}
	c.routeMetrics.RecordEvaluation(categoryID, triggerID, passed)
}

// RouteSuppressed implements router.Observer.
func (c *Collector) RouteSuppressed(triggerID, reason string) {
	if !c.config.Enabled {
		return
	}
	if !c.cardinalityLimiter.Allow("suppressed:" + triggerID + ":" + reason) {
		triggerID = "other"
	}
	c.routeMetrics.RecordSuppressed(triggerID, reason)
}

// RouteCompleted implements router.Observer.
func (c *Collector) RouteCompleted(duration time.Duration, results int, err error) {
	if !c.config.Enabled {
		return
	}
	c.routeMetrics.RecordRoute(duration, results, err)
}

// DispatchCompleted implements dispatch.Observer.
func (c *Collector) DispatchCompleted(notifier string, outcome audit.Outcome) {
	if !c.config.Enabled {
		return
	}
	c.dispatchMetrics.RecordDispatch(notifier, string(outcome))
}

// AuditWriteFailed implements audit.FailureObserver.
func (c *Collector) AuditWriteFailed() {
	if !c.config.Enabled {
		return
	}
	c.dispatchMetrics.RecordAuditFailure()
}

// SchemaLoadFailed implements schema.LoadObserver.
func (c *Collector) SchemaLoadFailed(categoryID string) {
	if !c.config.Enabled {
		return
	}
	c.schemaMetrics.RecordLoadFailure(categoryID)
}

// SchemasLoaded implements schema.LoadObserver.
func (c *Collector) SchemasLoaded(count int) {
	if !c.config.Enabled {
		return
	}
	c.schemaMetrics.SetCategories(count)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet may be used. Label sets already seen are
// always allowed; new ones are allowed until the limit is reached.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	_, seen := cl.current[labelSet]
	cl.mu.RUnlock()
	if seen {
		return true
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, seen := cl.current[labelSet]; seen {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the number of distinct label sets seen.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
