package collection

import (
	"encoding/json"
	"fmt"
	"math"
)

// FieldType is the closed set of value kinds a collection field can hold.
type FieldType string

const (
	String    FieldType = "String"
	Number    FieldType = "Number"
	Boolean   FieldType = "Boolean"
	Array     FieldType = "Array"
	Object    FieldType = "Object"
	TimeStamp FieldType = "TimeStamp"
)

// FieldTypes lists every FieldType in declaration order.
var FieldTypes = []FieldType{String, Number, Boolean, Array, Object, TimeStamp}

// ParseFieldType returns the FieldType named s.
func ParseFieldType(s string) (FieldType, error) {
	for _, ft := range FieldTypes {
		if string(ft) == s {
			return ft, nil
		}
	}
	return "", fmt.Errorf("unknown field type %q", s)
}

// Classify infers a FieldType from a decoded JSON value. It is only used when
// a new field is discovered; existing fields are never re-typed. Null
// classifies as Object.
func Classify(value any) FieldType {
	switch {
	case value == nil:
		return Object
	case isString(value):
		return String
	case isNumber(value):
		return Number
	case isBool(value):
		return Boolean
	case isArray(value):
		return Array
	default:
		return Object
	}
}

// Admits reports whether value may be stored in a field of this type, i.e.
// whether the storage encoders can bind it. Null is admitted by every type.
func (ft FieldType) Admits(value any) bool {
	if value == nil {
		return true
	}
	switch ft {
	case String:
		return isString(value)
	case Number:
		f, ok := toFloat64(value)
		return ok && !math.IsInf(f, 0) && !math.IsNaN(f)
	case Boolean:
		return isBool(value)
	case Array:
		return isArray(value)
	case Object:
		return isObject(value)
	case TimeStamp:
		_, ok := ParseTimeStamp(value)
		return ok
	}
	return false
}

// Valid reports whether ft is one of the declared variants.
func (ft FieldType) Valid() bool {
	_, err := ParseFieldType(string(ft))
	return err == nil
}

func (ft FieldType) String() string { return string(ft) }

// UnmarshalJSON rejects names outside the closed set.
func (ft *FieldType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseFieldType(s)
	if err != nil {
		return err
	}
	*ft = parsed
	return nil
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

func isArray(v any) bool {
	_, ok := v.([]any)
	return ok
}

func isObject(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}
