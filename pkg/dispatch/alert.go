package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mercator-hq/beacon/pkg/envelope"
	"mercator-hq/beacon/pkg/router"
)

// Notifier delivers alerts to a downstream transport. Implementations must be
// safe for concurrent use. A nil error means the alert was accepted; only then
// does the dispatcher record the fire.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert *Alert) error
}

// Alert is the payload handed to a Notifier.
type Alert struct {
	ID string `json:"id"` // dispatch id, UUID v4

	EventID     string `json:"event_id"`
	AuthorityID string `json:"authority_id"`
	Version     int    `json:"version"`
	Title       string `json:"title"`
	Committee   string `json:"committee,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`

	CategoryID  string `json:"category_id"`
	IndicatorID string `json:"indicator_id"`
	TriggerID   string `json:"trigger_id"`
	Severity    string `json:"severity"`

	Actions             []string `json:"actions"`
	HumanReviewRequired bool     `json:"human_review_required"`

	MatchedTerms          []string `json:"matched_terms"`
	MatchedDiscriminators []string `json:"matched_discriminators"`

	FiredAt time.Time `json:"fired_at"`
}

// NewAlert builds the alert for result routed from env.
func NewAlert(env *envelope.Envelope, result router.RouteResult) *Alert {
	alert := &Alert{
		ID:                    uuid.New().String(),
		EventID:               result.EventID,
		AuthorityID:           result.AuthorityID,
		Version:               result.Version,
		CategoryID:            result.CategoryID,
		IndicatorID:           result.IndicatorID,
		TriggerID:             result.TriggerID,
		Severity:              string(result.Severity),
		Actions:               append([]string{}, result.Actions...),
		HumanReviewRequired:   result.HumanReviewRequired,
		MatchedTerms:          []string{},
		MatchedDiscriminators: []string{},
		FiredAt:               result.RoutedAt,
	}
	if env != nil {
		alert.Title = env.Title()
		alert.SourceURL = env.SourceURL()
		alert.Committee, _ = env.Committee()
	}
	if eval := result.Evaluation; eval != nil {
		alert.MatchedTerms = append(alert.MatchedTerms, eval.MatchedTerms...)
		alert.MatchedDiscriminators = append(alert.MatchedDiscriminators, eval.MatchedDiscriminators...)
	}
	return alert
}
