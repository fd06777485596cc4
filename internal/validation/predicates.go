// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package validation

import (
	"fmt"
	"math"
	"reflect"

	"github.com/goccy/go-json"
)

// ZoomAuto is the only string accepted as a zoom value.
const ZoomAuto = "auto"

// IsString reports whether v is a string.
func IsString(v any) bool {
	_, ok := v.(string)
	return ok
}

// IsBoolean reports whether v is a bool.
func IsBoolean(v any) bool {
	_, ok := v.(bool)
	return ok
}

// IsNumber reports whether v is a finite number of any Go numeric kind,
// or a json.Number that parses as one.
func IsNumber(v any) bool {
	if n, ok := v.(interface{ Float64() (float64, error) }); ok {
		f, err := n.Float64()
		return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return false
	}
}

// ToFloat converts a value accepted by IsNumber to float64.
func ToFloat(v any) (float64, bool) {
	if !IsNumber(v) {
		return 0, false
	}
	if n, ok := v.(interface{ Float64() (float64, error) }); ok {
		f, _ := n.Float64()
		return f, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	default:
		return float64(rv.Int()), true
	}
}

// IsArray reports whether v is a slice or array. Byte slices are not arrays.
func IsArray(v any) bool {
	if v == nil {
		return false
	}
	t := reflect.TypeOf(v)
	switch t.Kind() {
	case reflect.Slice:
		return t.Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	default:
		return false
	}
}

// IsObject reports whether v is a string-keyed map, a struct, or a non-nil
// pointer to one.
func IsObject(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		return rv.Type().Key().Kind() == reflect.String
	case reflect.Struct:
		return true
	default:
		return false
	}
}

// ValidFormat reports whether value is a string listed in allowed.
func ValidFormat(value any, allowed ...string) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}

// ValidZoom accepts true, false, "auto" and any finite number.
func ValidZoom(v any) bool {
	switch z := v.(type) {
	case bool:
		return true
	case string:
		return z == ZoomAuto
	default:
		return IsNumber(v)
	}
}

// ObjectOrArray is the result of ValidObjectOrArray.
type ObjectOrArray struct {
	// Result is false when the input is not an object or a non-empty array of objects.
	Result bool

	// Payload always holds the elements as a batch; a bare object gives length 1.
	Payload []map[string]any

	// Batch records whether the input was an array, even one of length 1.
	Batch bool

	// Msg explains a failed Result.
	Msg string
}

func failObjectOrArray(format string, args ...any) ObjectOrArray {
	return ObjectOrArray{Msg: fmt.Sprintf(format, args...)}
}

// ValidObjectOrArray accepts an object or an array of objects and returns
// deep copies of the elements, normalized through JSON so nested values are
// plain maps, slices, strings, float64 and bool. Raw JSON ([]byte) is decoded
// first.
func ValidObjectOrArray(data any) ObjectOrArray {
	if data == nil {
		return failObjectOrArray("payload must be an object or an array of objects, got nothing")
	}

	var raw []byte
	rv := reflect.ValueOf(data)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		raw = rv.Bytes()
	} else {
		if !IsObject(data) && !IsArray(data) {
			return failObjectOrArray("payload must be an object or an array of objects, got %T", data)
		}
		b, err := json.Marshal(data)
		if err != nil {
			return failObjectOrArray("payload could not be encoded: %v", err)
		}
		raw = b
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return failObjectOrArray("payload is not valid JSON: %v", err)
	}

	switch d := decoded.(type) {
	case map[string]any:
		return ObjectOrArray{Result: true, Payload: []map[string]any{d}}
	case []any:
		if len(d) == 0 {
			return failObjectOrArray("payload array must not be empty")
		}
		out := make([]map[string]any, len(d))
		for i, elem := range d {
			obj, ok := elem.(map[string]any)
			if !ok {
				return failObjectOrArray("payload array element %d is not an object", i)
			}
			out[i] = obj
		}
		return ObjectOrArray{Result: true, Payload: out, Batch: true}
	case nil:
		return failObjectOrArray("payload must be an object or an array of objects, got null")
	default:
		return failObjectOrArray("payload must be an object or an array of objects, got %T", d)
	}
}
