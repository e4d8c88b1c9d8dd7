package fieldtype

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Infer classifies an untyped value. It has no side effects and depends only
// on the value.
//
//   - integral numbers map to Int32;
//   - floating point numbers map to Float32;
//   - strings map to Utf8String;
//   - sequences whose elements are all numeric (or empty) map to Vector;
//   - sequences whose elements are all strings map to MultiString;
//   - everything else maps to Error.
func Infer(v any) FieldType {
	switch x := v.(type) {
	case nil, bool:
		return Error
	case string:
		return Utf8String
	case []string:
		return MultiString
	case []float32, []float64, []int, []int32, []int64:
		return Vector
	case []byte:
		return Error
	case []any:
		return inferElements(len(x), func(i int) any { return x[i] })
	}

	if IsIntegral(v) {
		return Int32
	}
	if isFloating(v) {
		return Float32
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return inferElements(rv.Len(), func(i int) any { return rv.Index(i).Interface() })
	}
	return Error
}

// InferField applies the primary-key promotion rule on top of Infer: an
// integral value stored under the primary-key name is widened to Int64.
func InferField(name string, v any, primaryKey string) FieldType {
	t := Infer(v)
	if t == Int32 && name == primaryKey {
		return Int64
	}
	return t
}

func inferElements(n int, at func(int) any) FieldType {
	numeric, textual := 0, 0
	for i := 0; i < n; i++ {
		e := at(i)
		switch {
		case isString(e):
			textual++
		case IsIntegral(e) || isFloating(e):
			numeric++
		default:
			return Error
		}
		if numeric > 0 && textual > 0 {
			return Error
		}
	}
	if textual > 0 {
		return MultiString
	}
	return Vector
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

// IsIntegral reports whether v is a Go integer or an integer json.Number.
func IsIntegral(v any) bool {
	switch x := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case json.Number:
		s := string(x)
		return s != "" && !strings.ContainsAny(s, ".eE")
	}
	return false
}

func isFloating(v any) bool {
	switch x := v.(type) {
	case float32, float64:
		return true
	case json.Number:
		s := string(x)
		if !strings.ContainsAny(s, ".eE") {
			return false
		}
		_, err := x.Float64()
		return err == nil
	}
	return false
}

// ToInt64 converts an integral value to int64. It fails on overflow and on
// non-integral input. Floats are accepted only when they hold a whole number.
func ToInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return uintToInt64(uint64(x))
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return uintToInt64(x)
	case json.Number:
		if n, err := strconv.ParseInt(string(x), 10, 64); err == nil {
			return n, nil
		}
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", string(x))
		}
		return wholeFloat(f)
	case float32:
		return wholeFloat(float64(x))
	case float64:
		return wholeFloat(x)
	}
	return 0, fmt.Errorf("value of type %T is not integral", v)
}

// ToFloat64 converts any numeric value to float64.
func ToFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", string(x))
		}
		return f, nil
	}
	if IsIntegral(v) {
		n, err := ToInt64(v)
		if err != nil {
			if u, ok := v.(uint64); ok {
				return float64(u), nil
			}
			return 0, err
		}
		return float64(n), nil
	}
	return 0, fmt.Errorf("value of type %T is not numeric", v)
}

// Elements returns the elements of a slice or array value.
func Elements(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, true
	case []byte, string, nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func uintToInt64(u uint64) (int64, error) {
	if u > math.MaxInt64 {
		return 0, fmt.Errorf("value %d overflows int64", u)
	}
	return int64(u), nil
}

func wholeFloat(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("value %v is not a whole number", f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("value %v overflows int64", f)
	}
	return int64(f), nil
}
