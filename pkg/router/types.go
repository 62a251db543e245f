package router

import (
	"fmt"
	"time"

	"mercator-hq/beacon/pkg/envelope"
	"mercator-hq/beacon/pkg/rules/engine"
	"mercator-hq/beacon/pkg/rules/schema"
)

// RouteResult is one trigger that passed for an envelope and has a routing rule.
// Suppressed results are still returned so they can be audited.
type RouteResult struct {
	CategoryID  string `json:"category_id"`
	IndicatorID string `json:"indicator_id"`
	TriggerID   string `json:"trigger_id"`

	EventID     string `json:"event_id"`
	AuthorityID string `json:"authority_id"`
	Version     int    `json:"version"`

	Severity            schema.Severity          `json:"severity"`
	Actions             []string                 `json:"actions"`
	HumanReviewRequired bool                     `json:"human_review_required"`
	Suppression         schema.SuppressionConfig `json:"suppression_policy"`

	Evaluation *engine.EvaluationResult `json:"evaluation"`

	Suppressed        bool   `json:"suppressed"`
	SuppressionReason string `json:"suppression_reason,omitempty"`

	RoutedAt time.Time `json:"routed_at"`
}

// BatchResult holds the outcome of routing one envelope in a batch.
type BatchResult struct {
	Envelope *envelope.Envelope
	Results  []RouteResult
	Err      error
}

// RouteError reports a failure evaluating one trigger or indicator gate. Sibling
// triggers are still evaluated; Route returns every RouteError joined.
type RouteError struct {
	CategoryID  string
	IndicatorID string
	TriggerID   string // empty when the indicator gate failed
	Cause       error
}

// Error implements the error interface.
func (e *RouteError) Error() string {
	if e.TriggerID == "" {
		return fmt.Sprintf("category %s: indicator %s gate: %v", e.CategoryID, e.IndicatorID, e.Cause)
	}
	return fmt.Sprintf("category %s: trigger %s: %v", e.CategoryID, e.TriggerID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *RouteError) Unwrap() error {
	return e.Cause
}

// CategorySource supplies the categories to route against, in load order.
// *schema.Catalog implements it.
type CategorySource interface {
	Categories() []*schema.CategorySchema
}

// Observer receives routing outcomes. The metrics collector implements it.
type Observer interface {
	TriggerEvaluated(categoryID, triggerID string, passed bool)
	RouteSuppressed(triggerID, reason string)
	RouteCompleted(duration time.Duration, results int, err error)
}

type nopObserver struct{}

func (nopObserver) TriggerEvaluated(string, string, bool)    {}
func (nopObserver) RouteSuppressed(string, string)           {}
func (nopObserver) RouteCompleted(time.Duration, int, error) {}
