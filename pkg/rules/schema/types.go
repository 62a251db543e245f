package schema

import (
	"fmt"
	"time"

	"mercator-hq/beacon/pkg/rules/ast"
	rulesErrors "mercator-hq/beacon/pkg/rules/errors"
	"mercator-hq/beacon/pkg/rules/evaluators"
)

// Severity is the urgency attached to a routing rule.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities from 1 (low) to 4 (critical). Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Valid reports whether s is one of the four defined severities.
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// AtLeast reports whether s is as severe as min.
func (s Severity) AtLeast(min Severity) bool {
	return s.Rank() >= min.Rank()
}

// ParseSeverity validates a severity string.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if !sev.Valid() {
		return "", fmt.Errorf("invalid severity %q (must be low, medium, high or critical)", s)
	}
	return sev, nil
}

// Suppression defaults.
const (
	DefaultCooldownMinutes = 60
	DefaultVersionAware    = true
)

// SuppressionConfig is the cooldown policy attached to a routing rule.
type SuppressionConfig struct {
	CooldownMinutes int  `json:"cooldown_minutes"`
	VersionAware    bool `json:"version_aware"`
}

// Cooldown returns the cooldown window as a duration.
func (s SuppressionConfig) Cooldown() time.Duration {
	return time.Duration(s.CooldownMinutes) * time.Minute
}

// Trigger is the smallest unit that can fire an alert.
type Trigger struct {
	TriggerID   string
	Description string
	Condition   ast.Node
}

// Indicator groups triggers behind an optional gating condition. A nil Condition
// means the gate is always open.
type Indicator struct {
	IndicatorID string
	Description string
	Condition   ast.Node
	Triggers    []*Trigger
}

// RoutingRule is the severity, action and suppression policy for one trigger.
type RoutingRule struct {
	TriggerID           string            `json:"trigger_id"`
	Severity            Severity          `json:"severity"`
	Actions             []string          `json:"actions"`
	HumanReviewRequired bool              `json:"human_review_required"`
	Suppression         SuppressionConfig `json:"suppression"`
}

// CategorySchema is a compiled, validated rule-set. It is read-only once returned
// by the loader.
type CategorySchema struct {
	CategoryID  string
	Description string
	Priority    int
	Indicators  []*Indicator
	Routing     []*RoutingRule

	// Informational only; the registry defines what is enforced.
	EvaluatorWhitelist []string
	FieldAccess        []string

	// Source is the file (or memory key) the category was read from.
	Source string
}

// FindIndicator returns the indicator with the given id.
func (c *CategorySchema) FindIndicator(indicatorID string) (*Indicator, bool) {
	for _, ind := range c.Indicators {
		if ind.IndicatorID == indicatorID {
			return ind, true
		}
	}
	return nil, false
}

// FindTrigger returns the trigger with the given id and the indicator holding it.
func (c *CategorySchema) FindTrigger(triggerID string) (*Indicator, *Trigger, bool) {
	for _, ind := range c.Indicators {
		for _, trg := range ind.Triggers {
			if trg.TriggerID == triggerID {
				return ind, trg, true
			}
		}
	}
	return nil, nil, false
}

// FindRoutingRule returns the routing rule configured for triggerID.
func (c *CategorySchema) FindRoutingRule(triggerID string) (*RoutingRule, bool) {
	for _, rule := range c.Routing {
		if rule.TriggerID == triggerID {
			return rule, true
		}
	}
	return nil, false
}

// TriggerCount returns the number of triggers across all indicators.
func (c *CategorySchema) TriggerCount() int {
	n := 0
	for _, ind := range c.Indicators {
		n += len(ind.Triggers)
	}
	return n
}

// InaccessibleFields returns every field path referenced by the schema's
// conditions that the field-access policy will reject at evaluation time.
func (c *CategorySchema) InaccessibleFields() []string {
	seen := make(map[string]bool)
	var out []string

	collect := func(n ast.Node) {
		if n == nil {
			return
		}
		for _, leaf := range ast.Evaluators(n) {
			field := leaf.Field()
			if field == "" || seen[field] || evaluators.IsAllowedField(field) {
				continue
			}
			seen[field] = true
			out = append(out, field)
		}
	}

	for _, ind := range c.Indicators {
		collect(ind.Condition)
		for _, trg := range ind.Triggers {
			collect(trg.Condition)
		}
	}
	return out
}

// FieldWarning is a field reference the access policy will reject, with a
// suggested replacement.
type FieldWarning struct {
	Field      string `json:"field"`
	Suggestion string `json:"suggestion"`
}

// FieldWarnings returns a warning for every inaccessible field, in reference order.
func (c *CategorySchema) FieldWarnings() []FieldWarning {
	fields := c.InaccessibleFields()
	if len(fields) == 0 {
		return nil
	}
	warnings := make([]FieldWarning, len(fields))
	for i, field := range fields {
		warnings[i] = FieldWarning{
			Field:      field,
			Suggestion: rulesErrors.SuggestField(field, evaluators.AllowedFields),
		}
	}
	return warnings
}
