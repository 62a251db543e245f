package evaluators

import (
	"strings"

	"mercator-hq/beacon/pkg/envelope"
)

func containsAny(env *envelope.Envelope, args Args) (Result, error) {
	field := args["field"].(string)
	value, err := ResolveField(env, field)
	if err != nil {
		return Result{}, err
	}

	matched := []string{}
	evidence := map[string]any{"field": field, "matched_terms": matched}

	text, ok := textOf(value)
	if !ok {
		return Result{Passed: false, Evidence: evidence}, nil
	}
	haystack := envelope.NormalizeText(text)

	for _, elem := range listElements(args["terms"]) {
		term := elem.(string)
		needle := envelope.NormalizeText(term)
		if needle != "" && strings.Contains(haystack, needle) {
			matched = append(matched, term)
		}
	}
	evidence["matched_terms"] = matched

	return Result{Passed: len(matched) > 0, Evidence: evidence}, nil
}

func fieldIn(name string) Func {
	return func(env *envelope.Envelope, args Args) (Result, error) {
		field := args["field"].(string)
		value, err := ResolveField(env, field)
		if err != nil {
			return Result{}, err
		}

		evidence := map[string]any{"field": field, "value": value}
		if value == nil || isList(value) {
			return Result{Passed: false, Evidence: evidence}, nil
		}

		for _, candidate := range listElements(args["values"]) {
			if scalarEqual(value, candidate) {
				evidence["matched"] = candidate
				return Result{Passed: true, Evidence: evidence}, nil
			}
		}
		return Result{Passed: false, Evidence: evidence}, nil
	}
}

func fieldIntersects(env *envelope.Envelope, args Args) (Result, error) {
	field := args["field"].(string)
	value, err := ResolveField(env, field)
	if err != nil {
		return Result{}, err
	}

	intersection := []any{}
	evidence := map[string]any{"field": field, "intersection": intersection}
	if !isList(value) {
		return Result{Passed: false, Evidence: evidence}, nil
	}

	wanted := listElements(args["values"])
	for _, have := range listElements(value) {
		for _, want := range wanted {
			if scalarEqual(have, want) {
				intersection = append(intersection, have)
				break
			}
		}
	}
	evidence["intersection"] = intersection

	return Result{Passed: len(intersection) > 0, Evidence: evidence}, nil
}

func equals(env *envelope.Envelope, args Args) (Result, error) {
	field := args["field"].(string)
	value, err := ResolveField(env, field)
	if err != nil {
		return Result{}, err
	}

	passed := scalarEqual(value, args["value"])
	return Result{
		Passed:   passed,
		Evidence: map[string]any{"field": field, "value": value, "expected": args["value"]},
	}, nil
}

func greaterThan(env *envelope.Envelope, args Args) (Result, error) {
	field := args["field"].(string)
	value, err := ResolveField(env, field)
	if err != nil {
		return Result{}, err
	}

	evidence := map[string]any{"field": field, "value": value, "threshold": args["value"]}
	actual, ok := toFloat64(value)
	if !ok {
		return Result{Passed: false, Evidence: evidence}, nil
	}
	threshold, _ := toFloat64(args["value"])

	return Result{Passed: actual > threshold, Evidence: evidence}, nil
}

func fieldExists(env *envelope.Envelope, args Args) (Result, error) {
	field := args["field"].(string)
	value, err := ResolveField(env, field)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Passed:   value != nil,
		Evidence: map[string]any{"field": field, "exists": value != nil},
	}, nil
}

// textOf renders a field value for substring matching. Lists of strings are joined
// so contains_any works on topics.
func textOf(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []string:
		return strings.Join(v, " "), true
	default:
		return "", false
	}
}
