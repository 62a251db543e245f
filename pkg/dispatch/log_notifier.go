package dispatch

import (
	"context"
	"log/slog"
)

// LogNotifier writes alerts to a logger. It never fails.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier that logs each alert at info level.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "dispatch.log")}
}

// Name implements Notifier.
func (n *LogNotifier) Name() string { return "log" }

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, alert *Alert) error {
	n.logger.InfoContext(ctx, "Alert",
		"dispatch_id", alert.ID,
		"event_id", alert.EventID,
		"authority_id", alert.AuthorityID,
		"title", alert.Title,
		"category_id", alert.CategoryID,
		"trigger_id", alert.TriggerID,
		"severity", alert.Severity,
		"actions", alert.Actions,
		"human_review_required", alert.HumanReviewRequired,
		"matched_terms", alert.MatchedTerms,
	)
	return nil
}
