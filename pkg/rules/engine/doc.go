// Package engine evaluates expression trees against envelopes.
//
// all_of and none_of short-circuit left to right. any_of runs every child so the
// evidence of each passing branch is kept; when an any_of carries a label, each
// passing leaf child is recorded in MatchedDiscriminators as "evaluator(field)".
//
// Evidence is keyed "<trigger>:<path>:<evaluator>", where path is the dot-joined
// chain of child indices from the root ("0", "0.1", "0.1.0").
package engine
