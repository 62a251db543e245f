package parser

import (
	"errors"
	"testing"

	"mercator-hq/beacon/pkg/rules/ast"
	rulesErrors "mercator-hq/beacon/pkg/rules/errors"
)

func leafExpr() map[string]any {
	return map[string]any{
		"evaluator": "field_exists",
		"args":      map[string]any{"field": "committee"},
	}
}

// nestAllOf wraps a leaf in n levels of all_of.
func nestAllOf(n int) map[string]any {
	expr := leafExpr()
	for i := 0; i < n; i++ {
		expr = map[string]any{"all_of": []any{expr}}
	}
	return expr
}

func errorType(t *testing.T, err error) rulesErrors.ErrorType {
	t.Helper()
	var rerr *rulesErrors.Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *errors.Error, got %T: %v", err, err)
	}
	return rerr.Type
}

func TestValidateExpression(t *testing.T) {
	tests := []struct {
		name     string
		expr     any
		maxDepth int
		wantType rulesErrors.ErrorType // empty means valid
	}{
		{name: "leaf", expr: leafExpr(), maxDepth: 5},
		{name: "unknown evaluator", expr: map[string]any{"evaluator": "not_a_real_one", "args": map[string]any{}}, maxDepth: 5, wantType: rulesErrors.ErrorTypeUnknownEvaluator},
		{name: "five levels", expr: nestAllOf(5), maxDepth: 5},
		{name: "six levels", expr: nestAllOf(6), maxDepth: 5, wantType: rulesErrors.ErrorTypeDepthExceeded},
		{name: "zero depth leaf", expr: leafExpr(), maxDepth: 0},
		{name: "zero depth composite", expr: nestAllOf(1), maxDepth: 0, wantType: rulesErrors.ErrorTypeDepthExceeded},
		{name: "not a mapping", expr: []any{"x"}, maxDepth: 5, wantType: rulesErrors.ErrorTypeMalformedExpression},
		{name: "two combinators", expr: map[string]any{"all_of": []any{leafExpr()}, "any_of": []any{leafExpr()}}, maxDepth: 5, wantType: rulesErrors.ErrorTypeMalformedExpression},
		{name: "no combinator", expr: map[string]any{"label": "x"}, maxDepth: 5, wantType: rulesErrors.ErrorTypeMalformedExpression},
		{name: "children not list", expr: map[string]any{"any_of": leafExpr()}, maxDepth: 5, wantType: rulesErrors.ErrorTypeMalformedExpression},
		{name: "empty children", expr: map[string]any{"none_of": []any{}}, maxDepth: 5, wantType: rulesErrors.ErrorTypeMalformedExpression},
		{name: "unknown nested evaluator", expr: map[string]any{"any_of": []any{leafExpr(), map[string]any{"evaluator": "regex"}}}, maxDepth: 5, wantType: rulesErrors.ErrorTypeUnknownEvaluator},
		{name: "stray key on leaf", expr: map[string]any{"evaluator": "equals", "field": "title"}, maxDepth: 5, wantType: rulesErrors.ErrorTypeMalformedExpression},
		{name: "non-string label", expr: map[string]any{"any_of": []any{leafExpr()}, "label": 3}, maxDepth: 5, wantType: rulesErrors.ErrorTypeMalformedExpression},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateExpression(tt.expr, tt.maxDepth, 0)
			if tt.wantType == "" {
				if err != nil {
					t.Fatalf("ValidateExpression() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateExpression() expected error, got nil")
			}
			if got := errorType(t, err); got != tt.wantType {
				t.Errorf("error type = %q, want %q (%v)", got, tt.wantType, err)
			}
		})
	}
}

func TestValidateExpression_CurrentDepth(t *testing.T) {
	// A leaf validated as though it already sat below four combinators.
	if err := ValidateExpression(leafExpr(), 5, 5); err != nil {
		t.Errorf("depth 5 should pass at max 5: %v", err)
	}
	if err := ValidateExpression(leafExpr(), 5, 6); err == nil {
		t.Error("depth 6 should fail at max 5")
	}
}

func TestParseExpression_MatchesValidate(t *testing.T) {
	for depth := 0; depth <= 7; depth++ {
		expr := nestAllOf(depth)
		_, parseErr := ParseExpression(expr, DefaultMaxDepth)
		validateErr := ValidateExpression(expr, DefaultMaxDepth, 0)
		if (parseErr == nil) != (validateErr == nil) {
			t.Errorf("depth %d: parse error %v, validate error %v", depth, parseErr, validateErr)
		}
	}
}

func TestParseExpression_Tree(t *testing.T) {
	expr := map[string]any{
		"all_of": []any{
			map[string]any{
				"evaluator": "contains_any",
				"args":      map[string]any{"field": "body_text", "terms": []any{"GAO", "OIG"}},
				"label":     "watchdog",
			},
			map[string]any{
				"any_of": []any{
					map[string]any{"evaluator": "field_in", "args": map[string]any{"field": "committee", "values": []any{"HVAC"}}},
				},
				"label": "disc",
			},
			map[string]any{
				"none_of": []any{
					map[string]any{"evaluator": "equals", "args": map[string]any{"field": "authority_type", "value": "notice"}},
				},
			},
		},
	}

	node, err := ParseExpression(expr, DefaultMaxDepth)
	if err != nil {
		t.Fatalf("ParseExpression() error = %v", err)
	}

	root, ok := node.(*ast.AllOfNode)
	if !ok {
		t.Fatalf("root is %T, want *ast.AllOfNode", node)
	}
	if len(root.Children) != 3 {
		t.Fatalf("len(Children) = %d, want 3", len(root.Children))
	}

	first, ok := root.Children[0].(*ast.EvaluatorNode)
	if !ok {
		t.Fatalf("child 0 is %T", root.Children[0])
	}
	if first.Evaluator != "contains_any" || first.Label != "watchdog" || first.Field() != "body_text" {
		t.Errorf("unexpected leaf: %+v", first)
	}

	anyOf, ok := root.Children[1].(*ast.AnyOfNode)
	if !ok {
		t.Fatalf("child 1 is %T", root.Children[1])
	}
	if anyOf.Label != "disc" {
		t.Errorf("any_of label = %q, want %q", anyOf.Label, "disc")
	}

	if _, ok := root.Children[2].(*ast.NoneOfNode); !ok {
		t.Errorf("child 2 is %T, want *ast.NoneOfNode", root.Children[2])
	}

	if got := ast.Depth(node); got != 2 {
		t.Errorf("Depth() = %d, want 2", got)
	}
}

func TestParseExpression_ArgsAreCopied(t *testing.T) {
	args := map[string]any{"field": "title"}
	node, err := ParseExpression(map[string]any{"evaluator": "field_exists", "args": args}, DefaultMaxDepth)
	if err != nil {
		t.Fatalf("ParseExpression() error = %v", err)
	}

	args["field"] = "body_text"
	if got := node.(*ast.EvaluatorNode).Field(); got != "title" {
		t.Errorf("node args changed through caller map: field = %q", got)
	}
}

func TestParseYAML(t *testing.T) {
	doc := []byte(`
all_of:
  - evaluator: contains_any
    args:
      field: body_text
      terms: [GAO, OIG]
  - any_of:
      - evaluator: field_in
        args: {field: committee, values: [HVAC, SVAC]}
    label: disc
`)

	node, err := NewParser().ParseYAML(doc)
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}
	if len(ast.Evaluators(node)) != 2 {
		t.Errorf("expected 2 leaves, got %d", len(ast.Evaluators(node)))
	}

	_, err = NewParser().ParseYAML([]byte("all_of: [unclosed"))
	if got := errorType(t, err); got != rulesErrors.ErrorTypeSyntax {
		t.Errorf("error type = %q, want %q", got, rulesErrors.ErrorTypeSyntax)
	}
}

func TestUnknownEvaluator_Suggestion(t *testing.T) {
	err := ValidateExpression(map[string]any{"evaluator": "contains_all"}, 5, 0)
	var rerr *rulesErrors.Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *errors.Error, got %v", err)
	}
	if rerr.Suggestion != `did you mean "contains_any"?` {
		t.Errorf("Suggestion = %q", rerr.Suggestion)
	}
}
