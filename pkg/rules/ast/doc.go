// Package ast defines the expression tree that rule conditions compile into.
//
// The tree is a closed set of four node kinds:
//
//	EvaluatorNode  leaf; names a whitelisted evaluator and its arguments
//	AllOfNode      passes when every child passes
//	AnyOfNode      passes when at least one child passes
//	NoneOfNode     passes when no child passes
//
// Nodes are built by the parser package, which enforces the evaluator whitelist and
// the maximum nesting depth during construction. Trees are treated as immutable once
// built and may be shared across goroutines.
package ast
