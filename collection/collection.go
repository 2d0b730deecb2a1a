// Package collection implements the schema engine behind bunstore.
//
// A Collection is a named, ordered set of typed fields inferred from the JSON
// objects written into it. Collections evolve additively: a write that carries
// previously unseen keys widens the schema before the write itself is stored.
// The Collections registry caches schemas per name and delegates persistence to
// a Storage implementation (see internal/postgres).
package collection

import (
	"slices"
	"sort"
	"time"
)

// Reserved, system-managed fields present on every collection.
const (
	IDField        = "id"
	CreatedAtField = "created_at"
	UpdatedAtField = "updated_at"
)

// IsReserved reports whether name is one of the system-managed fields.
func IsReserved(name string) bool {
	return name == IDField || name == CreatedAtField || name == UpdatedAtField
}

// ReservedFields returns the implicit fields in the order they are appended
// to a freshly created collection.
func ReservedFields() []Field {
	return []Field{
		{Name: IDField, FieldType: String},
		{Name: CreatedAtField, FieldType: TimeStamp},
		{Name: UpdatedAtField, FieldType: TimeStamp},
	}
}

// Field is one named, typed attribute of a collection's records.
type Field struct {
	Name      string    `json:"name"`
	FieldType FieldType `json:"field_type"`
	Default   any       `json:"default"`
	Required  *bool     `json:"required"`
}

// IsRequired reports whether the field was declared required.
func (f Field) IsRequired() bool {
	return f.Required != nil && *f.Required
}

// Collection is the schema of a record set. Values are treated as immutable
// once published to the registry; use the With* helpers to derive new ones.
type Collection struct {
	Name      string    `json:"name"`
	Fields    []Field   `json:"fields"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Field returns the field called name.
func (c *Collection) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldNames returns the field names in schema order.
func (c *Collection) FieldNames() []string {
	names := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		names[i] = f.Name
	}
	return names
}

// Clone returns a deep copy of the field list and metadata.
func (c *Collection) Clone() *Collection {
	cp := *c
	cp.Fields = slices.Clone(c.Fields)
	return &cp
}

// WithField returns a copy of c with f appended.
func (c *Collection) WithField(f Field) *Collection {
	cp := c.Clone()
	cp.Fields = append(cp.Fields, f)
	return cp
}

// WithoutField returns a copy of c without the field called name.
func (c *Collection) WithoutField(name string) *Collection {
	cp := c.Clone()
	cp.Fields = slices.DeleteFunc(cp.Fields, func(f Field) bool { return f.Name == name })
	return cp
}

// NewFields returns one field per key of data that is unknown to the schema,
// not reserved and not null. Keys are visited in sorted order and the type
// of each new field is inferred with Classify.
func (c *Collection) NewFields(data map[string]any) []Field {
	var fields []Field
	for _, key := range sortedKeys(data) {
		value := data[key]
		if IsReserved(key) || value == nil {
			continue
		}
		if _, exists := c.Field(key); exists {
			continue
		}
		fields = append(fields, Field{Name: key, FieldType: Classify(value)})
	}
	return fields
}

// Validate checks every key of data that the schema knows about against the
// field's type. Unknown keys are accepted; schema evolution handles them
// before validation runs. All offending keys are reported together.
func (c *Collection) Validate(data any) error {
	obj, ok := data.(map[string]any)
	if !ok {
		return inputDataError(c.Name)
	}

	var invalid []string
	for _, key := range sortedKeys(obj) {
		field, exists := c.Field(key)
		if !exists {
			continue
		}
		if !field.FieldType.Admits(obj[key]) {
			invalid = append(invalid, key)
		}
	}
	if len(invalid) > 0 {
		return validateFieldsError(c.Name, invalid)
	}
	return nil
}

// DefaultValues returns an object holding every schema field. Fields that are
// null or absent in data take the field default (nil when none is declared).
func (c *Collection) DefaultValues(data map[string]any) map[string]any {
	out := make(map[string]any, len(c.Fields))
	for _, f := range c.Fields {
		value := data[f.Name]
		if value == nil {
			value = f.Default
		}
		out[f.Name] = value
	}
	return out
}

// RequiredValues reports required fields whose value in data is null. With
// onlyExistingKeys set, a required field the caller never mentioned is not
// reported; only keys explicitly set to null are.
func (c *Collection) RequiredValues(data map[string]any, onlyExistingKeys bool) error {
	var missing []string
	for _, f := range c.Fields {
		if !f.IsRequired() {
			continue
		}
		value, present := data[f.Name]
		if onlyExistingKeys && !present {
			continue
		}
		if value == nil {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return validateFieldsError(c.Name, missing)
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
