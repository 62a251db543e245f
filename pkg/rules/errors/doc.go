// Package errors provides the configuration error taxonomy for rule loading.
//
// Every failure found while compiling a category rule-set is reported as an *Error
// naming the category, the offending indicator or trigger, and the violation
// (unknown evaluator, depth exceeded, malformed expression shape, structural
// problem). Errors accumulate in an ErrorList so an operator sees every problem in a
// category at once:
//
//	errs := errors.NewErrorList()
//	errs.Add(&errors.Error{
//	    Type:     errors.ErrorTypeUnknownEvaluator,
//	    Category: "oversight",
//	    Rule:     "trigger gao_mention",
//	    Message:  `unknown evaluator "contains_all"`,
//	})
//	return errs.ToError()
//
// Callers test for a specific violation with ErrorList.HasErrorType or errors.As.
package errors
