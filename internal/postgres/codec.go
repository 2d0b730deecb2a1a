package postgres

import (
	"encoding/json"
	"time"

	"github.com/kartikbazzad/bunbase/bunstore/collection"
)

// encodeParam converts a JSON value into the parameter bound for a column of
// type ft. Values of the wrong kind bind NULL.
func encodeParam(ft collection.FieldType, value any) any {
	if value == nil {
		return nil
	}
	switch ft {
	case collection.String:
		if s, ok := value.(string); ok {
			return s
		}
	case collection.Number:
		if f, ok := collection.ToFloat64(value); ok {
			return f
		}
	case collection.Boolean:
		if b, ok := value.(bool); ok {
			return b
		}
	case collection.Array:
		if arr, ok := value.([]any); ok {
			return jsonText(arr)
		}
	case collection.Object:
		if obj, ok := value.(map[string]any); ok {
			return jsonText(obj)
		}
	case collection.TimeStamp:
		if t, ok := collection.ParseTimeStamp(value); ok {
			return t
		}
	}
	return nil
}

// jsonText returns v as raw JSON text; pgx passes strings to jsonb columns
// unchanged.
func jsonText(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(b)
}

// decodeRow projects a pgx row map onto the collection schema.
func decodeRow(c *collection.Collection, row map[string]any) map[string]any {
	out := make(map[string]any, len(c.Fields))
	for _, f := range c.Fields {
		value, ok := row[f.Name]
		if !ok {
			continue
		}
		out[f.Name] = decodeValue(f.FieldType, value)
	}
	return out
}

func decodeValue(ft collection.FieldType, value any) any {
	if value == nil {
		return nil
	}
	switch ft {
	case collection.Number:
		if f, ok := collection.ToFloat64(value); ok {
			return f
		}
	case collection.TimeStamp:
		if t, ok := value.(time.Time); ok {
			return collection.TaggedTimeStamp(t)
		}
	case collection.Array, collection.Object:
		// jsonb arrives decoded; raw text only shows up for json columns.
		switch raw := value.(type) {
		case string:
			var v any
			if json.Unmarshal([]byte(raw), &v) == nil {
				return v
			}
		case []byte:
			var v any
			if json.Unmarshal(raw, &v) == nil {
				return v
			}
		}
	}
	return value
}
