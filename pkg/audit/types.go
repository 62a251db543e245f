package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"mercator-hq/beacon/pkg/router"
)

// Outcome is what happened to a RouteResult after routing.
type Outcome string

const (
	// OutcomeSuppressed means the trigger was inside its cooldown window.
	OutcomeSuppressed Outcome = "suppressed"

	// OutcomeBelowThreshold means the severity was below the dispatch minimum.
	OutcomeBelowThreshold Outcome = "below_threshold"

	// OutcomeDelivered means the notifier accepted the alert.
	OutcomeDelivered Outcome = "delivered"

	// OutcomeFailed means the notifier returned an error.
	OutcomeFailed Outcome = "failed"

	// OutcomeRouted is used when a result is audited without dispatch.
	OutcomeRouted Outcome = "routed"
)

// Entry is one audited (event, trigger) decision. Entries are append-only.
type Entry struct {
	ID string `json:"id"` // UUID v4

	EventID     string `json:"event_id"`
	AuthorityID string `json:"authority_id"`
	Version     int    `json:"version"`

	CategoryID  string `json:"category_id"`
	IndicatorID string `json:"indicator_id"`
	TriggerID   string `json:"trigger_id"`
	Severity    string `json:"severity"`

	FiredAt           time.Time `json:"fired_at"`
	Suppressed        bool      `json:"suppressed"`
	SuppressionReason string    `json:"suppression_reason,omitempty"`

	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`

	// Explanation is the serialized evidence of the evaluation.
	Explanation json.RawMessage `json:"explanation"`

	RecordedAt time.Time `json:"recorded_at"`
}

// Explanation is the evidence-bearing part of an evaluation, as stored in
// Entry.Explanation.
type Explanation struct {
	Passed                bool           `json:"passed"`
	MatchedTerms          []string       `json:"matched_terms"`
	MatchedDiscriminators []string       `json:"matched_discriminators"`
	PassedEvaluators      []string       `json:"passed_evaluators"`
	FailedEvaluators      []string       `json:"failed_evaluators"`
	Evidence              map[string]any `json:"evidence"`
}

// NewEntry builds an entry for result with a fresh ID.
func NewEntry(result router.RouteResult, outcome Outcome) (*Entry, error) {
	explanation := Explanation{
		MatchedTerms:          []string{},
		MatchedDiscriminators: []string{},
		PassedEvaluators:      []string{},
		FailedEvaluators:      []string{},
		Evidence:              map[string]any{},
	}
	if eval := result.Evaluation; eval != nil {
		explanation.Passed = eval.Passed
		explanation.MatchedTerms = eval.MatchedTerms
		explanation.MatchedDiscriminators = eval.MatchedDiscriminators
		explanation.PassedEvaluators = eval.PassedEvaluators
		explanation.FailedEvaluators = eval.FailedEvaluators
		for key, res := range eval.EvidenceMap {
			explanation.Evidence[key] = res.Evidence
		}
	}

	raw, err := json.Marshal(explanation)
	if err != nil {
		return nil, err
	}

	firedAt := result.RoutedAt
	if firedAt.IsZero() {
		firedAt = time.Now()
	}

	return &Entry{
		ID:                uuid.New().String(),
		EventID:           result.EventID,
		AuthorityID:       result.AuthorityID,
		Version:           result.Version,
		CategoryID:        result.CategoryID,
		IndicatorID:       result.IndicatorID,
		TriggerID:         result.TriggerID,
		Severity:          string(result.Severity),
		FiredAt:           firedAt.UTC(),
		Suppressed:        result.Suppressed,
		SuppressionReason: result.SuppressionReason,
		Outcome:           outcome,
		Explanation:       raw,
	}, nil
}

// DecodeExplanation unmarshals Entry.Explanation.
func (e *Entry) DecodeExplanation() (*Explanation, error) {
	var x Explanation
	if err := json.Unmarshal(e.Explanation, &x); err != nil {
		return nil, err
	}
	return &x, nil
}

// Query filters audit entries. Zero values match everything.
type Query struct {
	EventID     string     `json:"event_id,omitempty"`
	AuthorityID string     `json:"authority_id,omitempty"`
	CategoryID  string     `json:"category_id,omitempty"`
	TriggerID   string     `json:"trigger_id,omitempty"`
	Outcome     Outcome    `json:"outcome,omitempty"`
	Suppressed  *bool      `json:"suppressed,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"` // Inclusive
	EndTime     *time.Time `json:"end_time,omitempty"`   // Inclusive

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// DefaultQueryLimit applies when Query.Limit is zero.
const DefaultQueryLimit = 100

// Sink persists audit entries. Implementations must be safe for concurrent use
// and must never update or delete an appended entry.
type Sink interface {
	// Append stores entry. ID and RecordedAt are filled in when empty.
	Append(ctx context.Context, entry *Entry) error

	// Query returns matching entries ordered by FiredAt, oldest first.
	Query(ctx context.Context, query *Query) ([]*Entry, error)

	// Count returns the number of matching entries, ignoring Limit and Offset.
	Count(ctx context.Context, query *Query) (int64, error)

	// Close releases any resources held by the sink.
	Close() error
}

func prepare(entry *Entry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	if len(entry.Explanation) == 0 {
		entry.Explanation = json.RawMessage("{}")
	}
}
