package ast

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleTree() Node {
	return &AllOfNode{
		Children: []Node{
			&EvaluatorNode{Evaluator: "contains_any", Args: map[string]any{"field": "body_text"}},
			&AnyOfNode{
				Label: "disc",
				Children: []Node{
					&EvaluatorNode{Evaluator: "field_in", Args: map[string]any{"field": "committee"}, Label: "committee check"},
				},
			},
		},
	}
}

func TestDepth(t *testing.T) {
	if got := Depth(&EvaluatorNode{Evaluator: "field_exists"}); got != 0 {
		t.Errorf("leaf depth = %d, want 0", got)
	}
	if got := Depth(sampleTree()); got != 2 {
		t.Errorf("tree depth = %d, want 2", got)
	}
}

func TestWalk_Paths(t *testing.T) {
	var paths []string
	err := Walk(sampleTree(), func(n Node, path string, depth int) error {
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	want := []string{"0", "0.0", "0.1", "0.1.0"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluatorNode_Describe(t *testing.T) {
	leaves := Evaluators(sampleTree())
	if len(leaves) != 2 {
		t.Fatalf("expected 2 leaves, got %d", len(leaves))
	}
	if got := leaves[0].Describe(); got != "contains_any(body_text)" {
		t.Errorf("Describe() = %q", got)
	}
	if got := leaves[1].Describe(); got != "committee check" {
		t.Errorf("Describe() = %q", got)
	}
}
