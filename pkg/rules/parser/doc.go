// Package parser builds expression trees from decoded rule configuration.
//
// An expression is either a leaf
//
//	evaluator: contains_any
//	args: {field: body_text, terms: [GAO, OIG]}
//	label: watchdog
//
// or a combinator holding exactly one of all_of, any_of or none_of:
//
//	any_of:
//	  - evaluator: field_in
//	    args: {field: committee, values: [HVAC, SVAC]}
//	label: committee
//
// ValidateExpression checks a raw tree against the evaluator whitelist and the depth
// limit without allocating nodes; ParseExpression performs the same checks while
// building the tree. Both return *errors.Error values from pkg/rules/errors.
//
// Depth is counted from the root at 0. A chain of five nested all_of blocks puts
// its leaf at depth 5 and is accepted with the default limit; a sixth level is not.
package parser
