package ast

import "fmt"

// Kind identifies the node variant.
type Kind string

const (
	KindEvaluator Kind = "evaluator"
	KindAllOf     Kind = "all_of"
	KindAnyOf     Kind = "any_of"
	KindNoneOf    Kind = "none_of"
)

// IsComposite reports whether k is one of the logical combinators.
func (k Kind) IsComposite() bool {
	return k == KindAllOf || k == KindAnyOf || k == KindNoneOf
}

// Node is an expression tree node. The set of implementations is closed.
type Node interface {
	Kind() Kind
	sealed()
}

// EvaluatorNode invokes a single evaluator primitive.
type EvaluatorNode struct {
	Evaluator string         // Whitelisted evaluator name
	Args      map[string]any // Evaluator arguments as decoded from configuration
	Label     string         // Optional human-readable label
}

// AllOfNode is a logical AND over its children.
type AllOfNode struct {
	Children []Node
	Label    string
}

// AnyOfNode is a logical OR over its children.
type AnyOfNode struct {
	Children []Node
	Label    string
}

// NoneOfNode is a logical NOR over its children.
type NoneOfNode struct {
	Children []Node
	Label    string
}

func (*EvaluatorNode) Kind() Kind { return KindEvaluator }
func (*AllOfNode) Kind() Kind     { return KindAllOf }
func (*AnyOfNode) Kind() Kind     { return KindAnyOf }
func (*NoneOfNode) Kind() Kind    { return KindNoneOf }

func (*EvaluatorNode) sealed() {}
func (*AllOfNode) sealed()     {}
func (*AnyOfNode) sealed()     {}
func (*NoneOfNode) sealed()    {}

// Field returns the evaluator's "field" argument, or "" when absent.
func (n *EvaluatorNode) Field() string {
	field, _ := n.Args["field"].(string)
	return field
}

// Signature renders the node as "evaluator(field)".
func (n *EvaluatorNode) Signature() string {
	return fmt.Sprintf("%s(%s)", n.Evaluator, n.Field())
}

// Describe returns the label when one is set, otherwise the signature.
func (n *EvaluatorNode) Describe() string {
	if n.Label != "" {
		return n.Label
	}
	return n.Signature()
}

// Children returns the child nodes of a composite, or nil for a leaf.
func Children(n Node) []Node {
	switch v := n.(type) {
	case *AllOfNode:
		return v.Children
	case *AnyOfNode:
		return v.Children
	case *NoneOfNode:
		return v.Children
	default:
		return nil
	}
}

// Depth returns the nesting depth of the tree, counting the root as depth 0.
func Depth(n Node) int {
	deepest := 0
	for _, child := range Children(n) {
		if d := Depth(child) + 1; d > deepest {
			deepest = d
		}
	}
	return deepest
}
