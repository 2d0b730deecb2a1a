package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kartikbazzad/bunbase/bunstore/collection"
)

// args accumulates bound parameters and hands out their placeholders.
type args []any

func (a *args) add(v any) string {
	*a = append(*a, v)
	return "$" + strconv.Itoa(len(*a))
}

var comparators = map[collection.Operator]string{
	collection.OpEq:  "=",
	collection.OpNe:  "!=",
	collection.OpGt:  ">",
	collection.OpGte: ">=",
	collection.OpLt:  "<",
	collection.OpLte: "<=",
}

// whereSQL renders where as " WHERE ..." (or "" when nothing applies).
// Fields unknown to c are skipped.
func whereSQL(c *collection.Collection, where collection.Where, a *args) string {
	var fragments []string
	for _, name := range where.Fields() {
		field, ok := c.Field(name)
		if !ok {
			continue
		}
		col := quoteIdent(name)
		pred := where[name]
		for _, op := range collection.Operators {
			operand, ok := pred[op]
			if !ok {
				continue
			}
			if !op.IsList() {
				fragments = append(fragments, fmt.Sprintf("%s %s %s", col, comparators[op], a.add(encodeParam(field.FieldType, operand))))
				continue
			}

			list, _ := operand.([]any)
			if len(list) == 0 {
				if op == collection.OpIn {
					fragments = append(fragments, "FALSE")
				}
				continue
			}
			placeholders := make([]string, len(list))
			for i, item := range list {
				placeholders[i] = a.add(encodeParam(field.FieldType, item)) + "::" + columnType(field.FieldType)
			}
			expr := fmt.Sprintf("%s = ANY(ARRAY[%s])", col, strings.Join(placeholders, ", "))
			if op == collection.OpNin {
				expr = "NOT (" + expr + ")"
			}
			fragments = append(fragments, expr)
		}
	}
	if len(fragments) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(fragments, " AND ")
}

// selectSQL builds the list query for c.
func selectSQL(c *collection.Collection, where collection.Where) (string, []any) {
	var a args
	sql := "SELECT * FROM " + quoteIdent(c.Name) + whereSQL(c, where, &a) +
		" ORDER BY " + quoteIdent(collection.CreatedAtField) + ", " + quoteIdent(collection.IDField)
	return sql, a
}

// insertSQL builds the insert for data. The id is taken from data when it is
// a non-empty string and generated otherwise; timestamps are set by the
// database.
func insertSQL(c *collection.Collection, data map[string]any) (string, []any, string) {
	id, _ := data[collection.IDField].(string)
	if id == "" {
		id = collection.MakeID(collection.DefaultIDLength)
	}

	var a args
	columns := []string{quoteIdent(collection.IDField), quoteIdent(collection.CreatedAtField), quoteIdent(collection.UpdatedAtField)}
	values := []string{a.add(id), "NOW()", "NOW()"}
	for _, f := range c.Fields {
		if collection.IsReserved(f.Name) {
			continue
		}
		value, present := data[f.Name]
		if !present {
			continue
		}
		columns = append(columns, quoteIdent(f.Name))
		values = append(values, a.add(encodeParam(f.FieldType, value)))
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		quoteIdent(c.Name), strings.Join(columns, ", "), strings.Join(values, ", "), quoteIdent(collection.IDField))
	return sql, a, id
}

// updateSQL builds a partial update touching only the keys present in data.
// ok is false when data names no updatable field.
func updateSQL(c *collection.Collection, id string, data map[string]any) (sql string, params []any, ok bool) {
	var a args
	var sets []string
	for _, f := range c.Fields {
		if collection.IsReserved(f.Name) {
			continue
		}
		value, present := data[f.Name]
		if !present {
			continue
		}
		sets = append(sets, quoteIdent(f.Name)+" = "+a.add(encodeParam(f.FieldType, value)))
	}
	if len(sets) == 0 {
		return "", nil, false
	}
	sets = append(sets, quoteIdent(collection.UpdatedAtField)+" = NOW()")

	sql = fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		quoteIdent(c.Name), strings.Join(sets, ", "), quoteIdent(collection.IDField), a.add(id))
	return sql, a, true
}
