package main

import (
	"fmt"
	"strings"

	"github.com/kartikbazzad/bunbase/bunstore/collection"
)

// parseFieldSpec parses name:Type[:required][=default].
func parseFieldSpec(spec string) (collection.Field, error) {
	decl, defaultRaw, hasDefault := strings.Cut(spec, "=")
	parts := strings.Split(decl, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
		return collection.Field{}, fmt.Errorf("invalid field %q: want name:Type[:required][=default]", spec)
	}

	ft, err := collection.ParseFieldType(parts[1])
	if err != nil {
		return collection.Field{}, fmt.Errorf("invalid field %q: %w", spec, err)
	}
	field := collection.Field{Name: parts[0], FieldType: ft}

	if len(parts) == 3 {
		if parts[2] != "required" {
			return collection.Field{}, fmt.Errorf("invalid field %q: unknown modifier %q", spec, parts[2])
		}
		required := true
		field.Required = &required
	}
	if hasDefault {
		field.Default, err = parseDefault(ft, defaultRaw)
		if err != nil {
			return collection.Field{}, fmt.Errorf("invalid field %q: %w", spec, err)
		}
	}
	return field, nil
}

// parseDefault decodes raw as JSON. String fields also accept a bare word.
func parseDefault(ft collection.FieldType, raw string) (any, error) {
	value, err := collection.Decode([]byte(raw))
	if err != nil {
		if ft == collection.String {
			return raw, nil
		}
		return nil, fmt.Errorf("default %q is not valid JSON", raw)
	}
	if !ft.Admits(value) {
		return nil, fmt.Errorf("default %s is not a %s", raw, ft)
	}
	return value, nil
}
