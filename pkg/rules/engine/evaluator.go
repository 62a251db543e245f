package engine

import (
	"fmt"

	"mercator-hq/beacon/pkg/envelope"
	"mercator-hq/beacon/pkg/rules/ast"
	"mercator-hq/beacon/pkg/rules/evaluators"
	"mercator-hq/beacon/pkg/rules/parser"
)

// EvaluationResult is the outcome of evaluating one expression tree against one
// envelope, with the evidence needed to explain it.
type EvaluationResult struct {
	Passed                bool                         `json:"passed"`
	MatchedTerms          []string                     `json:"matched_terms"`
	MatchedDiscriminators []string                     `json:"matched_discriminators"`
	PassedEvaluators      []string                     `json:"passed_evaluators"`
	FailedEvaluators      []string                     `json:"failed_evaluators"`
	EvidenceMap           map[string]evaluators.Result `json:"evidence_map"`
}

func newResult() *EvaluationResult {
	return &EvaluationResult{
		MatchedTerms:          []string{},
		MatchedDiscriminators: []string{},
		PassedEvaluators:      []string{},
		FailedEvaluators:      []string{},
		EvidenceMap:           make(map[string]evaluators.Result),
	}
}

// EvidenceKey returns the evidence-map key for the evaluator at path within the
// condition of triggerID.
func EvidenceKey(triggerID, path, evaluator string) string {
	return fmt.Sprintf("%s:%s:%s", triggerID, path, evaluator)
}

// Evaluator walks expression trees. It holds no per-call state and is safe for
// concurrent use.
type Evaluator struct {
	registry *evaluators.Registry
	parser   *parser.Parser
}

// NewEvaluator creates an evaluator backed by registry. A nil registry selects the
// built-in evaluators.
func NewEvaluator(registry *evaluators.Registry) *Evaluator {
	if registry == nil {
		registry = evaluators.NewRegistry()
	}
	return &Evaluator{
		registry: registry,
		parser:   parser.NewParser(),
	}
}

// WithMaxDepth sets the depth limit applied by EvaluateExpression.
func (e *Evaluator) WithMaxDepth(depth int) *Evaluator {
	e.parser.WithMaxDepth(depth)
	return e
}

// Evaluate walks root against env. Evidence keys are prefixed with triggerID.
//
// An evaluator error (a non-whitelisted field or evaluator) stops the walk: the
// offending leaf is recorded as failed, Passed is false, and the error is returned
// together with the partial result.
func (e *Evaluator) Evaluate(root ast.Node, env *envelope.Envelope, triggerID string) (*EvaluationResult, error) {
	w := &walker{
		registry:  e.registry,
		env:       env,
		triggerID: triggerID,
		result:    newResult(),
	}

	passed, err := w.eval(root, "0")
	if err != nil {
		w.result.Passed = false
		return w.result, err
	}
	w.result.Passed = passed
	return w.result, nil
}

// EvaluateExpression parses a decoded expression and evaluates it.
func (e *Evaluator) EvaluateExpression(expr any, env *envelope.Envelope, triggerID string) (*EvaluationResult, error) {
	root, err := e.parser.Parse(expr)
	if err != nil {
		return nil, err
	}
	return e.Evaluate(root, env, triggerID)
}

type walker struct {
	registry  *evaluators.Registry
	env       *envelope.Envelope
	triggerID string
	result    *EvaluationResult
}

func (w *walker) eval(n ast.Node, path string) (bool, error) {
	switch node := n.(type) {
	case *ast.EvaluatorNode:
		return w.leaf(node, path)

	case *ast.AllOfNode:
		for i, child := range node.Children {
			passed, err := w.eval(child, ast.ChildPath(path, i))
			if err != nil {
				return false, err
			}
			if !passed {
				return false, nil
			}
		}
		return true, nil

	case *ast.AnyOfNode:
		// Every child runs so that all passing evidence is captured.
		matched := false
		for i, child := range node.Children {
			passed, err := w.eval(child, ast.ChildPath(path, i))
			if err != nil {
				return false, err
			}
			if !passed {
				continue
			}
			matched = true
			if leaf, ok := child.(*ast.EvaluatorNode); ok && node.Label != "" {
				w.result.MatchedDiscriminators = append(w.result.MatchedDiscriminators, leaf.Signature())
			}
		}
		return matched, nil

	case *ast.NoneOfNode:
		for i, child := range node.Children {
			passed, err := w.eval(child, ast.ChildPath(path, i))
			if err != nil {
				return false, err
			}
			if passed {
				return false, nil
			}
		}
		return true, nil

	default:
		return false, fmt.Errorf("unsupported node type %T", n)
	}
}

func (w *walker) leaf(node *ast.EvaluatorNode, path string) (bool, error) {
	res, err := w.registry.Invoke(node.Evaluator, w.env, evaluators.Args(node.Args))
	if err != nil {
		w.result.FailedEvaluators = append(w.result.FailedEvaluators, node.Describe())
		return false, fmt.Errorf("%s at %s: %w", node.Signature(), path, err)
	}

	w.result.EvidenceMap[EvidenceKey(w.triggerID, path, node.Evaluator)] = res
	w.result.MatchedTerms = append(w.result.MatchedTerms, res.MatchedTerms()...)

	if res.Passed {
		w.result.PassedEvaluators = append(w.result.PassedEvaluators, node.Describe())
	} else {
		w.result.FailedEvaluators = append(w.result.FailedEvaluators, node.Describe())
	}
	return res.Passed, nil
}
