package collection

import "sort"

// Operator is a comparison applied to one field in a Where.
type Operator string

const (
	OpEq  Operator = "$eq"
	OpNe  Operator = "$ne"
	OpGt  Operator = "$gt"
	OpGte Operator = "$gte"
	OpLt  Operator = "$lt"
	OpLte Operator = "$lte"
	OpIn  Operator = "$in"
	OpNin Operator = "$nin"
)

// Operators lists every operator in the order predicates are rendered.
var Operators = []Operator{OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn, OpNin}

// IsList reports whether the operator takes a list operand.
func (op Operator) IsList() bool { return op == OpIn || op == OpNin }

// Predicate holds the operators applied to one field. Operands of $in and
// $nin are always []any.
type Predicate map[Operator]any

// Where maps field names to predicates. Every operator on every field must
// hold for a record to match.
type Where map[string]Predicate

// Fields returns the field names in sorted order.
func (w Where) Fields() []string {
	fields := make([]string, 0, len(w))
	for f := range w {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// ParseWhere normalizes a decoded JSON query. A non-object entry is
// shorthand for $eq; in an object entry unknown keys and null operands are
// ignored, and a scalar $in/$nin operand becomes a one-element list.
func ParseWhere(query any) (Where, error) {
	if query == nil {
		return Where{}, nil
	}
	obj, ok := query.(map[string]any)
	if !ok {
		return nil, ErrCollectionInputData
	}

	where := make(Where, len(obj))
	for field, raw := range obj {
		ops, isObject := raw.(map[string]any)
		if !isObject {
			where[field] = Predicate{OpEq: raw}
			continue
		}

		pred := Predicate{}
		for _, op := range Operators {
			operand, present := ops[string(op)]
			if !present || operand == nil {
				continue
			}
			if op.IsList() {
				list, isList := operand.([]any)
				if !isList {
					list = []any{operand}
				}
				operand = list
			}
			pred[op] = operand
		}
		where[field] = pred
	}
	return where, nil
}
