package goap

import (
	"fmt"
	"math"
	"strconv"
)

// Value is a world state property value. After normalisation it is always one
// of bool, string or float64; a nil Value means "absent".
type Value = any

// NormalizeValue maps v onto the closed set of property types. Every Go
// integer and float kind becomes float64, so 2 and 2.0 compare equal.
func NormalizeValue(v any) (Value, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case bool, string:
		return v, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	default:
		return nil, fmt.Errorf("goap: unsupported property value type %T", v)
	}
}

// mustNormalize is NormalizeValue for call sites where a bad type is a
// programming error.
func mustNormalize(key string, v any) Value {
	n, err := NormalizeValue(v)
	if err != nil {
		panic(fmt.Sprintf("%v (key=%q)", err, key))
	}
	return n
}

// FormatValue renders a normalised value for canonical keys and display.
// Strings are quoted so that the string "true" never collides with the bool.
func FormatValue(v Value) string {
	switch v := v.(type) {
	case nil:
		return "<nil>"
	case bool:
		return strconv.FormatBool(v)
	case string:
		return strconv.Quote(v)
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return fmt.Sprint(v)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
