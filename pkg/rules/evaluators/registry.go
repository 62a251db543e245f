package evaluators

import (
	"fmt"
	"slices"

	"mercator-hq/beacon/pkg/envelope"
)

// Evaluator names. These are the only names a rule may reference.
const (
	ContainsAny     = "contains_any"
	FieldIn         = "field_in"
	FieldIntersects = "field_intersects"
	Equals          = "equals"
	GreaterThan     = "gt"
	FieldExists     = "field_exists"
	NestedFieldIn   = "nested_field_in"
)

// Args are the evaluator arguments as decoded from configuration.
type Args map[string]any

// Result is the output of a single evaluator invocation.
type Result struct {
	Passed   bool           `json:"passed"`
	Evidence map[string]any `json:"evidence"`
}

// MatchedTerms returns the evidence "matched_terms" entry, if any.
func (r Result) MatchedTerms() []string {
	terms, _ := r.Evidence["matched_terms"].([]string)
	return terms
}

// Func is a pure condition primitive. It returns an error only for field-access
// or argument violations, never for missing or mistyped data.
type Func func(env *envelope.Envelope, args Args) (Result, error)

// spec describes one registered evaluator.
type spec struct {
	fn    Func
	check func(args Args) error
}

// Registry is the fixed evaluator table.
type Registry struct {
	evaluators map[string]spec
}

// NewRegistry returns the registry of built-in evaluators.
func NewRegistry() *Registry {
	return &Registry{
		evaluators: map[string]spec{
			ContainsAny:     {fn: containsAny, check: requireFieldAnd("terms", checkStringList)},
			FieldIn:         {fn: fieldIn(FieldIn), check: requireFieldAnd("values", checkList)},
			FieldIntersects: {fn: fieldIntersects, check: requireFieldAnd("values", checkList)},
			Equals:          {fn: equals, check: requireFieldAnd("value", checkPresent)},
			GreaterThan:     {fn: greaterThan, check: requireFieldAnd("value", checkNumeric)},
			FieldExists:     {fn: fieldExists, check: requireField},
			NestedFieldIn:   {fn: fieldIn(NestedFieldIn), check: requireFieldAnd("values", checkList)},
		},
	}
}

// Whitelist returns the sorted evaluator names of the default registry.
func Whitelist() []string {
	return NewRegistry().Names()
}

// Has reports whether name is a registered evaluator.
func (r *Registry) Has(name string) bool {
	_, ok := r.evaluators[name]
	return ok
}

// Names returns the registered evaluator names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.evaluators))
	for name := range r.evaluators {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// CheckArgs validates the argument shape for name without touching an envelope.
func (r *Registry) CheckArgs(name string, args Args) error {
	s, ok := r.evaluators[name]
	if !ok {
		return &UnknownEvaluatorError{Name: name}
	}
	if err := s.check(args); err != nil {
		if argErr, ok := err.(*ArgumentError); ok {
			argErr.Evaluator = name
		}
		return err
	}
	return nil
}

// Invoke runs the evaluator registered under name.
func (r *Registry) Invoke(name string, env *envelope.Envelope, args Args) (Result, error) {
	s, ok := r.evaluators[name]
	if !ok {
		return Result{}, &UnknownEvaluatorError{Name: name}
	}
	if err := r.CheckArgs(name, args); err != nil {
		return Result{}, err
	}
	return s.fn(env, args)
}

func requireField(args Args) error {
	field, ok := args["field"].(string)
	if !ok || field == "" {
		return &ArgumentError{Arg: "field", Reason: "must be a non-empty string"}
	}
	return nil
}

func requireFieldAnd(arg string, check func(arg string, v any) error) func(Args) error {
	return func(args Args) error {
		if err := requireField(args); err != nil {
			return err
		}
		return check(arg, args[arg])
	}
}

func checkPresent(arg string, v any) error {
	if v == nil {
		return &ArgumentError{Arg: arg, Reason: "is required"}
	}
	return nil
}

func checkList(arg string, v any) error {
	if !isList(v) {
		return &ArgumentError{Arg: arg, Reason: fmt.Sprintf("must be a list, got %T", v)}
	}
	return nil
}

func checkStringList(arg string, v any) error {
	if err := checkList(arg, v); err != nil {
		return err
	}
	for _, elem := range listElements(v) {
		if _, ok := elem.(string); !ok {
			return &ArgumentError{Arg: arg, Reason: fmt.Sprintf("must contain only strings, got %T", elem)}
		}
	}
	return nil
}

func checkNumeric(arg string, v any) error {
	if _, ok := toFloat64(v); !ok {
		return &ArgumentError{Arg: arg, Reason: fmt.Sprintf("must be numeric, got %T", v)}
	}
	return nil
}
