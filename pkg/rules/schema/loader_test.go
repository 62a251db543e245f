package schema

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/beacon/pkg/rules/ast"
	rulesErrors "mercator-hq/beacon/pkg/rules/errors"
)

const oversightYAML = `
category_id: oversight
description: Watchdog activity
priority: 10
evaluator_whitelist: [contains_any, field_in]
indicators:
  - indicator_id: watchdog
    indicator_condition:
      evaluator: equals
      args: {field: authority_source, value: congress_gov}
    triggers:
      - trigger_id: gao_investigation
        condition:
          all_of:
            - evaluator: contains_any
              args: {field: body_text, terms: [GAO, OIG]}
            - any_of:
                - evaluator: field_in
                  args: {field: committee, values: [HVAC, SVAC]}
              label: committee
      - trigger_id: staged
        condition:
          evaluator: field_exists
          args: {field: subcommittee}
routing:
  - trigger_id: gao_investigation
    severity: high
    actions: [post_slack_alert]
    human_review_required: true
`

const budgetYAML = `
category_id: budget
priority: 5
indicators:
  - indicator_id: appropriations
    triggers:
      - trigger_id: big_bill
        condition:
          evaluator: gt
          args: {field: metadata.amount, value: 1000000}
routing:
  - trigger_id: big_bill
    severity: medium
    suppression: {cooldown_minutes: 15, version_aware: false}
`

func newMemoryLoader(docs ...Document) *Loader {
	return NewLoader(NewMemorySource(docs...), DefaultLoaderConfig(), nil)
}

func TestLoader_LoadAll(t *testing.T) {
	loader := newMemoryLoader(
		Document{Source: "oversight.yaml", Data: []byte(oversightYAML)},
		Document{Source: "budget.yaml", Data: []byte(budgetYAML)},
	)

	schemas, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(schemas) != 2 {
		t.Fatalf("len(schemas) = %d, want 2", len(schemas))
	}

	oversight := schemas[0]
	if oversight.CategoryID != "oversight" || oversight.Priority != 10 || oversight.Source != "oversight.yaml" {
		t.Errorf("unexpected category header: %+v", oversight)
	}
	if oversight.TriggerCount() != 2 {
		t.Errorf("TriggerCount() = %d, want 2", oversight.TriggerCount())
	}

	ind, ok := oversight.FindIndicator("watchdog")
	if !ok {
		t.Fatal("indicator watchdog not found")
	}
	if ind.Condition == nil || ind.Condition.Kind() != ast.KindEvaluator {
		t.Errorf("expected evaluator gate, got %v", ind.Condition)
	}

	_, trg, ok := oversight.FindTrigger("gao_investigation")
	if !ok {
		t.Fatal("trigger gao_investigation not found")
	}
	if ast.Depth(trg.Condition) != 2 {
		t.Errorf("condition depth = %d, want 2", ast.Depth(trg.Condition))
	}

	rule, ok := oversight.FindRoutingRule("gao_investigation")
	if !ok {
		t.Fatal("routing rule not found")
	}
	want := &RoutingRule{
		TriggerID:           "gao_investigation",
		Severity:            SeverityHigh,
		Actions:             []string{"post_slack_alert"},
		HumanReviewRequired: true,
		Suppression:         SuppressionConfig{CooldownMinutes: 60, VersionAware: true},
	}
	if diff := cmp.Diff(want, rule); diff != "" {
		t.Errorf("routing rule mismatch (-want +got):\n%s", diff)
	}

	if _, ok := oversight.FindRoutingRule("staged"); ok {
		t.Error("staged trigger should have no routing rule")
	}

	budgetRule, _ := schemas[1].FindRoutingRule("big_bill")
	if budgetRule.Suppression != (SuppressionConfig{CooldownMinutes: 15, VersionAware: false}) {
		t.Errorf("explicit suppression not honoured: %+v", budgetRule.Suppression)
	}
	if budgetRule.Actions == nil {
		t.Error("expected empty, non-nil actions")
	}
	budgetInd, _ := schemas[1].FindIndicator("appropriations")
	if budgetInd.Condition != nil {
		t.Error("absent indicator_condition should leave the gate open")
	}
}

func TestLoader_FailsClosedPerCategory(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		wantType rulesErrors.ErrorType
		wantText string
	}{
		{
			name: "unknown evaluator",
			doc: `
category_id: bad
indicators:
  - indicator_id: i
    triggers:
      - trigger_id: t
        condition: {evaluator: regex_match, args: {field: title}}
routing: [{trigger_id: t, severity: low}]
`,
			wantType: rulesErrors.ErrorTypeUnknownEvaluator,
			wantText: "regex_match",
		},
		{
			name: "depth exceeded in indicator gate",
			doc: `
category_id: bad
indicators:
  - indicator_id: i
    indicator_condition:
      all_of:
        - all_of:
            - all_of:
                - all_of:
                    - all_of:
                        - all_of:
                            - {evaluator: field_exists, args: {field: title}}
    triggers:
      - trigger_id: t
        condition: {evaluator: field_exists, args: {field: title}}
`,
			wantType: rulesErrors.ErrorTypeDepthExceeded,
			wantText: "exceeds maximum 5",
		},
		{
			name: "malformed expression",
			doc: `
category_id: bad
indicators:
  - indicator_id: i
    triggers:
      - trigger_id: t
        condition: {all_of: [{evaluator: field_exists, args: {field: title}}], any_of: []}
`,
			wantType: rulesErrors.ErrorTypeMalformedExpression,
		},
		{
			name: "bad evaluator arguments",
			doc: `
category_id: bad
indicators:
  - indicator_id: i
    triggers:
      - trigger_id: t
        condition: {evaluator: contains_any, args: {field: body_text, terms: GAO}}
`,
			wantType: rulesErrors.ErrorTypeMalformedExpression,
			wantText: "terms",
		},
		{
			name: "duplicate trigger",
			doc: `
category_id: bad
indicators:
  - indicator_id: a
    triggers: [{trigger_id: t, condition: {evaluator: field_exists, args: {field: title}}}]
  - indicator_id: b
    triggers: [{trigger_id: t, condition: {evaluator: field_exists, args: {field: title}}}]
`,
			wantType: rulesErrors.ErrorTypeStructural,
			wantText: "duplicate trigger_id",
		},
		{
			name: "routing to unknown trigger",
			doc: `
category_id: bad
indicators:
  - indicator_id: i
    triggers: [{trigger_id: t, condition: {evaluator: field_exists, args: {field: title}}}]
routing: [{trigger_id: ghost, severity: low}]
`,
			wantType: rulesErrors.ErrorTypeStructural,
			wantText: "unknown trigger",
		},
		{
			name: "invalid severity",
			doc: `
category_id: bad
indicators:
  - indicator_id: i
    triggers: [{trigger_id: t, condition: {evaluator: field_exists, args: {field: title}}}]
routing: [{trigger_id: t, severity: urgent}]
`,
			wantType: rulesErrors.ErrorTypeStructural,
			wantText: "urgent",
		},
		{
			name: "negative cooldown",
			doc: `
category_id: bad
indicators:
  - indicator_id: i
    triggers: [{trigger_id: t, condition: {evaluator: field_exists, args: {field: title}}}]
routing: [{trigger_id: t, severity: low, suppression: {cooldown_minutes: -1}}]
`,
			wantType: rulesErrors.ErrorTypeStructural,
			wantText: "cooldown_minutes",
		},
		{
			name: "missing condition",
			doc: `
category_id: bad
indicators:
  - indicator_id: i
    triggers: [{trigger_id: t}]
`,
			wantType: rulesErrors.ErrorTypeStructural,
			wantText: "condition is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := newMemoryLoader(
				Document{Source: "bad.yaml", Data: []byte(tt.doc)},
				Document{Source: "budget.yaml", Data: []byte(budgetYAML)},
			)

			schemas, err := loader.LoadAll()
			if len(schemas) != 1 || schemas[0].CategoryID != "budget" {
				t.Fatalf("expected only the healthy category to load, got %d", len(schemas))
			}

			var errList *rulesErrors.ErrorList
			if !errors.As(err, &errList) {
				t.Fatalf("expected *errors.ErrorList, got %T: %v", err, err)
			}
			if !errList.HasErrorType(tt.wantType) {
				t.Errorf("expected error type %q in %v", tt.wantType, errList)
			}
			for _, e := range errList.Errors {
				if e.Category != "bad" {
					t.Errorf("error not attributed to category: %v", e)
				}
			}
			if tt.wantText != "" && !strings.Contains(errList.Error(), tt.wantText) {
				t.Errorf("error %q does not mention %q", errList.Error(), tt.wantText)
			}
		})
	}
}

func TestLoader_Load(t *testing.T) {
	loader := newMemoryLoader(
		Document{Source: "oversight.yaml", Data: []byte(oversightYAML)},
		Document{Source: "bad.yaml", Data: []byte("category_id: bad\nindicators: [{indicator_id: i, triggers: [{trigger_id: t, condition: {evaluator: nope}}]}]\n")},
	)

	schema, err := loader.Load("oversight")
	if err != nil {
		t.Fatalf("Load(oversight) error = %v", err)
	}
	if schema.CategoryID != "oversight" {
		t.Errorf("CategoryID = %q", schema.CategoryID)
	}

	_, err = loader.Load("bad")
	var errList *rulesErrors.ErrorList
	if !errors.As(err, &errList) || !errList.HasErrorType(rulesErrors.ErrorTypeUnknownEvaluator) {
		t.Errorf("Load(bad) error = %v, want unknown evaluator", err)
	}

	_, err = loader.Load("missing")
	if !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("Load(missing) error = %v, want ErrCategoryNotFound", err)
	}
}

func TestLoader_DuplicateCategoryAcrossFiles(t *testing.T) {
	loader := newMemoryLoader(
		Document{Source: "a.yaml", Data: []byte(budgetYAML)},
		Document{Source: "b.yaml", Data: []byte(budgetYAML)},
	)

	schemas, err := loader.LoadAll()
	if len(schemas) != 1 || schemas[0].Source != "a.yaml" {
		t.Fatalf("expected first definition to win, got %d schemas", len(schemas))
	}
	if err == nil || !strings.Contains(err.Error(), "already defined in a.yaml") {
		t.Errorf("expected duplicate category error, got %v", err)
	}
}

func TestLoader_SyntaxError(t *testing.T) {
	loader := newMemoryLoader(Document{Source: "broken.yaml", Data: []byte("category_id: [unclosed")})

	schemas, err := loader.LoadAll()
	if len(schemas) != 0 {
		t.Errorf("expected no schemas, got %d", len(schemas))
	}
	var errList *rulesErrors.ErrorList
	if !errors.As(err, &errList) || !errList.HasErrorType(rulesErrors.ErrorTypeSyntax) {
		t.Errorf("expected syntax error, got %v", err)
	}
}

func TestLoader_MultiDocumentAndFilter(t *testing.T) {
	data := oversightYAML + "\n---\n" + budgetYAML
	cfg := DefaultLoaderConfig()
	cfg.Categories = []string{"budget"}

	loader := NewLoader(NewMemorySource(Document{Source: "all.yaml", Data: []byte(data)}), cfg, nil)
	schemas, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(schemas) != 1 || schemas[0].CategoryID != "budget" {
		t.Errorf("expected only budget, got %v", schemas)
	}
}

func TestLoader_MaxDepthConfig(t *testing.T) {
	doc := `
category_id: nested
indicators:
  - indicator_id: i
    triggers:
      - trigger_id: t
        condition:
          all_of:
            - all_of:
                - {evaluator: field_exists, args: {field: title}}
`
	cfg := DefaultLoaderConfig()
	cfg.MaxDepth = 1

	_, err := NewLoader(NewMemorySource(Document{Source: "n.yaml", Data: []byte(doc)}), cfg, nil).LoadAll()
	if err == nil || !strings.Contains(err.Error(), "depth_exceeded") {
		t.Errorf("expected depth error with max depth 1, got %v", err)
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("20-oversight.yaml", oversightYAML)
	write("10-budget.yml", budgetYAML)
	write("README.md", "not a rule file")
	write(".hidden.yaml", "category_id: hidden")

	schemas, err := NewLoader(NewFileSource(dir), DefaultLoaderConfig(), nil).LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}

	var ids []string
	for _, s := range schemas {
		ids = append(ids, s.CategoryID)
	}
	if diff := cmp.Diff([]string{"budget", "oversight"}, ids); diff != "" {
		t.Errorf("load order mismatch (-want +got):\n%s", diff)
	}
}

func TestFileSource_Errors(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing")).Documents()
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Errorf("expected LoadError, got %v", err)
	}

	_, err = NewFileSource(t.TempDir()).Documents()
	if !errors.As(err, &loadErr) || !strings.Contains(err.Error(), "no rule files") {
		t.Errorf("expected empty directory error, got %v", err)
	}
}

func TestInaccessibleFields(t *testing.T) {
	doc := `
category_id: leaky
indicators:
  - indicator_id: i
    triggers:
      - trigger_id: t
        condition:
          any_of:
            - {evaluator: field_exists, args: {field: internal_score}}
            - {evaluator: field_exists, args: {field: metadata.chamber}}
`
	schemas, err := newMemoryLoader(Document{Source: "l.yaml", Data: []byte(doc)}).LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if diff := cmp.Diff([]string{"internal_score"}, schemas[0].InaccessibleFields()); diff != "" {
		t.Errorf("inaccessible fields mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldWarnings(t *testing.T) {
	schemas, err := newMemoryLoader(Document{Source: "l.yaml", Data: []byte(`
category_id: typos
indicators:
  - indicator_id: i
    indicator_condition: {evaluator: equals, args: {field: authority_sorce, value: congress_gov}}
    triggers:
      - trigger_id: t
        condition: {evaluator: field_exists, args: {field: title}}
`)}).LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}

	want := []FieldWarning{{Field: "authority_sorce", Suggestion: `did you mean "authority_source"?`}}
	if diff := cmp.Diff(want, schemas[0].FieldWarnings()); diff != "" {
		t.Errorf("field warnings mismatch (-want +got):\n%s", diff)
	}

	clean := &CategorySchema{CategoryID: "clean"}
	if got := clean.FieldWarnings(); got != nil {
		t.Errorf("FieldWarnings() on clean schema = %+v, want nil", got)
	}
}

func TestSeverity(t *testing.T) {
	if !SeverityCritical.AtLeast(SeverityHigh) || SeverityLow.AtLeast(SeverityMedium) {
		t.Error("severity ordering is wrong")
	}
	if _, err := ParseSeverity("urgent"); err == nil {
		t.Error("expected error for unknown severity")
	}
	if sev, err := ParseSeverity("medium"); err != nil || sev != SeverityMedium {
		t.Errorf("ParseSeverity(medium) = %q, %v", sev, err)
	}
}
