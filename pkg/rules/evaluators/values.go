package evaluators

import "reflect"

// toFloat64 converts any Go numeric kind. Strings and bools are not numeric.
func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

// scalarEqual compares two values without coercion between kinds. Numbers compare
// by value across Go representations; everything else uses deep equality.
func scalarEqual(a, b any) bool {
	if a == nil || b == nil {
		return false
	}

	an, aNum := toFloat64(a)
	bn, bNum := toFloat64(b)
	if aNum || bNum {
		return aNum && bNum && an == bn
	}

	return reflect.DeepEqual(a, b)
}

// isList reports whether v is a slice or array (but not a byte string).
func isList(v any) bool {
	if v == nil {
		return false
	}
	kind := reflect.TypeOf(v).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

// listElements flattens a slice or array into []any.
func listElements(v any) []any {
	rv := reflect.ValueOf(v)
	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, rv.Index(i).Interface())
	}
	return out
}
