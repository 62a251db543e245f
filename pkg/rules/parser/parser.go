package parser

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"mercator-hq/beacon/pkg/rules/ast"
	rulesErrors "mercator-hq/beacon/pkg/rules/errors"
	"mercator-hq/beacon/pkg/rules/evaluators"
)

// DefaultMaxDepth is the maximum nesting depth applied when none is configured.
const DefaultMaxDepth = 5

const (
	keyEvaluator = "evaluator"
	keyArgs      = "args"
	keyLabel     = "label"
)

var compositeKeys = []string{string(ast.KindAllOf), string(ast.KindAnyOf), string(ast.KindNoneOf)}

// Parser turns decoded expression documents into ASTs.
// It enforces the evaluator whitelist and the maximum nesting depth.
type Parser struct {
	maxDepth int                  // Maximum nesting depth (default: 5)
	registry *evaluators.Registry // Evaluator whitelist
}

// NewParser creates a parser with the default depth limit and built-in evaluators.
func NewParser() *Parser {
	return &Parser{
		maxDepth: DefaultMaxDepth,
		registry: evaluators.NewRegistry(),
	}
}

// WithMaxDepth sets the maximum nesting depth. Values below zero are ignored.
func (p *Parser) WithMaxDepth(depth int) *Parser {
	if depth >= 0 {
		p.maxDepth = depth
	}
	return p
}

// MaxDepth returns the configured nesting limit.
func (p *Parser) MaxDepth() int {
	return p.maxDepth
}

// ParseExpression parses expr with the default whitelist and the given depth limit.
func ParseExpression(expr any, maxDepth int) (ast.Node, error) {
	return NewParser().WithMaxDepth(maxDepth).Parse(expr)
}

// ValidateExpression checks expr against the whitelist and depth limit without
// building a tree. currentDepth is the depth of expr itself; callers validating a
// root pass 0.
func ValidateExpression(expr any, maxDepth, currentDepth int) error {
	return NewParser().WithMaxDepth(maxDepth).Validate(expr, currentDepth)
}

// Parse builds an AST from a decoded expression. The depth counter is threaded
// through construction so no tree deeper than the limit is ever materialized.
func (p *Parser) Parse(expr any) (ast.Node, error) {
	return p.build(expr, 0)
}

// Validate walks expr without allocating nodes.
func (p *Parser) Validate(expr any, currentDepth int) error {
	if currentDepth > p.maxDepth {
		return depthError(currentDepth, p.maxDepth)
	}

	m, err := asMap(expr)
	if err != nil {
		return err
	}

	if _, ok := m[keyEvaluator]; ok {
		_, err := p.leaf(m)
		return err
	}

	_, children, err := compositeOf(m)
	if err != nil {
		return err
	}
	if _, err := labelOf(m); err != nil {
		return err
	}
	for _, child := range children {
		if err := p.Validate(child, currentDepth+1); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) build(expr any, depth int) (ast.Node, error) {
	if depth > p.maxDepth {
		return nil, depthError(depth, p.maxDepth)
	}

	m, err := asMap(expr)
	if err != nil {
		return nil, err
	}

	if _, ok := m[keyEvaluator]; ok {
		leaf, err := p.leaf(m)
		if err != nil {
			return nil, err
		}
		return leaf, nil
	}

	kind, raw, err := compositeOf(m)
	if err != nil {
		return nil, err
	}
	label, err := labelOf(m)
	if err != nil {
		return nil, err
	}

	children := make([]ast.Node, 0, len(raw))
	for _, child := range raw {
		node, err := p.build(child, depth+1)
		if err != nil {
			return nil, err
		}
		children = append(children, node)
	}

	switch kind {
	case ast.KindAllOf:
		return &ast.AllOfNode{Children: children, Label: label}, nil
	case ast.KindAnyOf:
		return &ast.AnyOfNode{Children: children, Label: label}, nil
	default:
		return &ast.NoneOfNode{Children: children, Label: label}, nil
	}
}

// leaf validates and builds an evaluator node.
func (p *Parser) leaf(m map[string]any) (*ast.EvaluatorNode, error) {
	for key := range m {
		if key != keyEvaluator && key != keyArgs && key != keyLabel {
			return nil, malformed(fmt.Sprintf("evaluator node has unexpected key %q", key))
		}
	}

	name, ok := m[keyEvaluator].(string)
	if !ok || name == "" {
		return nil, malformed(fmt.Sprintf("evaluator name must be a non-empty string, got %T", m[keyEvaluator]))
	}
	if !p.registry.Has(name) {
		return nil, &rulesErrors.Error{
			Type:       rulesErrors.ErrorTypeUnknownEvaluator,
			Message:    fmt.Sprintf("evaluator %q is not in the whitelist", name),
			Suggestion: rulesErrors.SuggestEvaluator(name, p.registry.Names()),
		}
	}

	args := map[string]any{}
	if raw, present := m[keyArgs]; present && raw != nil {
		decoded, err := asMap(raw)
		if err != nil {
			return nil, malformed(fmt.Sprintf("args of %s must be a mapping, got %T", name, raw))
		}
		args = maps.Clone(decoded)
	}

	label, err := labelOf(m)
	if err != nil {
		return nil, err
	}

	return &ast.EvaluatorNode{Evaluator: name, Args: args, Label: label}, nil
}

// compositeOf returns the single combinator key of m and its child list.
func compositeOf(m map[string]any) (ast.Kind, []any, error) {
	var found []string
	for key := range m {
		switch {
		case slices.Contains(compositeKeys, key):
			found = append(found, key)
		case key == keyLabel:
		default:
			return "", nil, malformed(fmt.Sprintf("unexpected key %q", key))
		}
	}

	if len(found) != 1 {
		slices.Sort(found)
		return "", nil, malformed(fmt.Sprintf(
			"expression must have an evaluator key or exactly one of %s, got [%s]",
			strings.Join(compositeKeys, "/"), strings.Join(found, ", ")))
	}

	kind := ast.Kind(found[0])
	children, ok := m[found[0]].([]any)
	if !ok {
		return "", nil, malformed(fmt.Sprintf("%s must be a list of expressions, got %T", kind, m[found[0]]))
	}
	if len(children) == 0 {
		return "", nil, malformed(fmt.Sprintf("%s must have at least one child", kind))
	}

	return kind, children, nil
}

func labelOf(m map[string]any) (string, error) {
	raw, ok := m[keyLabel]
	if !ok || raw == nil {
		return "", nil
	}
	label, ok := raw.(string)
	if !ok {
		return "", malformed(fmt.Sprintf("label must be a string, got %T", raw))
	}
	return label, nil
}

// asMap accepts the mapping shapes produced by encoding/json and yaml.v3.
func asMap(v any) (map[string]any, error) {
	switch m := v.(type) {
	case map[string]any:
		return m, nil
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			key, ok := k.(string)
			if !ok {
				return nil, malformed(fmt.Sprintf("mapping key must be a string, got %T", k))
			}
			out[key] = val
		}
		return out, nil
	default:
		return nil, malformed(fmt.Sprintf("expression must be a mapping, got %T", v))
	}
}

func malformed(msg string) *rulesErrors.Error {
	return &rulesErrors.Error{
		Type:    rulesErrors.ErrorTypeMalformedExpression,
		Message: msg,
	}
}

func depthError(depth, maxDepth int) *rulesErrors.Error {
	return &rulesErrors.Error{
		Type:       rulesErrors.ErrorTypeDepthExceeded,
		Message:    fmt.Sprintf("expression depth %d exceeds maximum %d", depth, maxDepth),
		Suggestion: "flatten nested all_of/any_of blocks or split the trigger",
	}
}
