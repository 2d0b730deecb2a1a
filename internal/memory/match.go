package memory

import (
	"bytes"
	"strings"
	"time"

	"github.com/kartikbazzad/bunbase/bunstore/collection"
)

// matches reports whether the stored row satisfies every predicate. Null on
// either side of a comparison never matches, the way SQL NULL behaves.
func matches(c *collection.Collection, row map[string]any, where collection.Where) bool {
	for _, name := range where.Fields() {
		field, ok := c.Field(name)
		if !ok {
			continue
		}
		actual := row[name]
		pred := where[name]
		for _, op := range collection.Operators {
			operand, ok := pred[op]
			if !ok {
				continue
			}
			if !compare(field.FieldType, actual, op, operand) {
				return false
			}
		}
	}
	return true
}

func compare(ft collection.FieldType, actual any, op collection.Operator, operand any) bool {
	switch op {
	case collection.OpIn, collection.OpNin:
		list, _ := operand.([]any)
		if len(list) == 0 {
			return op == collection.OpNin
		}
		if actual == nil {
			return false
		}
		found := false
		for _, item := range list {
			expected := normalize(ft, item)
			if expected != nil && compareValues(actual, expected) == 0 {
				found = true
				break
			}
		}
		return found == (op == collection.OpIn)
	}

	expected := normalize(ft, operand)
	if actual == nil || expected == nil {
		return false
	}
	cmp := compareValues(actual, expected)
	switch op {
	case collection.OpEq:
		return cmp == 0
	case collection.OpNe:
		return cmp != 0
	case collection.OpGt:
		return cmp > 0
	case collection.OpGte:
		return cmp >= 0
	case collection.OpLt:
		return cmp < 0
	case collection.OpLte:
		return cmp <= 0
	}
	return false
}

// compareValues returns -1, 0 or 1 for two normalized values of one type.
func compareValues(a, b any) int {
	switch x := a.(type) {
	case float64:
		y := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case string:
		return strings.Compare(x, b.(string))
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case time.Time:
		return x.Compare(b.(time.Time))
	}
	// JSON values: equal when their canonical encodings are.
	ea, _ := collection.Encode(a)
	eb, _ := collection.Encode(b)
	return bytes.Compare(ea, eb)
}
