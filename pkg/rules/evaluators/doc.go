// Package evaluators holds the closed set of condition primitives a rule may
// reference, and the field-access policy they share.
//
// # Whitelist
//
// The set of evaluators is fixed at compile time:
//
//	contains_any     normalized substring match of any term
//	field_in         scalar membership
//	field_intersects list intersection
//	equals           exact equality
//	gt               numeric greater-than
//	field_exists     present and not nil
//	nested_field_in  field_in for metadata.* paths
//
// There is no runtime registration. Rule configuration can only select among these
// names, which keeps the whitelist guarantee independent of who authors the rules.
//
// # Field access
//
// Evaluators read envelope attributes only through ResolveField. It accepts a fixed
// list of top-level attribute names plus "metadata.<key>" and returns a
// *FieldAccessError for anything else. A whitelisted field that is unset resolves
// to nil, and every evaluator treats nil as "does not match".
package evaluators
