// Package memory implements collection.Storage in process memory. It follows
// the PostgreSQL adapter's semantics closely enough to stand in for it in
// tests and local development; nothing survives a restart.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/kartikbazzad/bunbase/bunstore/collection"
)

// Store is an in-memory collection.Storage.
type Store struct {
	mu      sync.RWMutex
	schemas map[string]*collection.Collection
	tables  map[string]map[string]map[string]any
	now     func() time.Time
}

var _ collection.Storage = (*Store)(nil)

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		schemas: make(map[string]*collection.Collection),
		tables:  make(map[string]map[string]map[string]any),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) GetCollections(ctx context.Context) ([]*collection.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, collection.NewStorageError(collection.KindQuery, "", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]*collection.Collection, 0, len(s.schemas))
	for _, c := range s.schemas {
		list = append(list, c.Clone())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (s *Store) GetCollection(ctx context.Context, name string) (*collection.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, collection.NewStorageError(collection.KindQuery, name, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.schemas[name]
	if !ok {
		return nil, collection.NewStorageError(collection.KindSchemaNotFound, name, nil)
	}
	return c.Clone(), nil
}

func (s *Store) CreateCollection(ctx context.Context, name string, fields []collection.Field) (*collection.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, collection.NewStorageError(collection.KindCollectionCreate, name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.schemas[name]; exists {
		return nil, collection.NewStorageError(collection.KindCollectionCreate, name, errors.New("collection already exists"))
	}

	var all []collection.Field
	for _, f := range fields {
		if !collection.IsReserved(f.Name) {
			all = append(all, f)
		}
	}
	all = append(all, collection.ReservedFields()...)

	now := s.now()
	c := &collection.Collection{Name: name, Fields: all, CreatedAt: now, UpdatedAt: now}
	s.schemas[name] = c
	s.tables[name] = make(map[string]map[string]any)
	return c.Clone(), nil
}

func (s *Store) RemoveCollection(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return collection.NewStorageError(collection.KindCollectionRemove, name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.schemas[name]; !exists {
		return collection.NewStorageError(collection.KindSchemaNotFound, name, nil)
	}
	delete(s.schemas, name)
	delete(s.tables, name)
	return nil
}

func (s *Store) InsertField(ctx context.Context, c *collection.Collection, field collection.Field) (*collection.Collection, error) {
	fieldErr := func(kind collection.StorageErrorKind, err error) error {
		return &collection.StorageError{Kind: kind, Collection: c.Name, Field: field.Name, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, fieldErr(collection.KindCollectionAlterTable, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.schemas[c.Name]
	if !ok {
		return nil, fieldErr(collection.KindCollectionAlterTable, collection.NewStorageError(collection.KindSchemaNotFound, c.Name, nil))
	}
	if _, exists := stored.Field(field.Name); exists || collection.IsReserved(field.Name) {
		return nil, fieldErr(collection.KindCollectionFieldExists, nil)
	}
	next := stored.WithField(field)
	next.UpdatedAt = s.now()
	s.schemas[c.Name] = next
	return next.Clone(), nil
}

func (s *Store) RemoveField(ctx context.Context, c *collection.Collection, name string) (*collection.Collection, error) {
	fieldErr := func(kind collection.StorageErrorKind, err error) error {
		return &collection.StorageError{Kind: kind, Collection: c.Name, Field: name, Err: err}
	}
	if collection.IsReserved(name) {
		return nil, fieldErr(collection.KindCollectionFieldRemove, errors.New("reserved field"))
	}
	if err := ctx.Err(); err != nil {
		return nil, fieldErr(collection.KindCollectionFieldRemove, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.schemas[c.Name]
	if !ok {
		return nil, fieldErr(collection.KindCollectionFieldRemove, collection.NewStorageError(collection.KindSchemaNotFound, c.Name, nil))
	}
	if _, exists := stored.Field(name); !exists {
		return nil, fieldErr(collection.KindCollectionFieldNotFound, nil)
	}
	for _, row := range s.tables[c.Name] {
		delete(row, name)
	}
	next := stored.WithoutField(name)
	next.UpdatedAt = s.now()
	s.schemas[c.Name] = next
	return next.Clone(), nil
}

func (s *Store) InsertData(ctx context.Context, c *collection.Collection, data map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, collection.NewStorageError(collection.KindQuery, c.Name, err)
	}
	id, _ := data[collection.IDField].(string)
	if id == "" {
		id = collection.MakeID(collection.DefaultIDLength)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	table, ok := s.tables[c.Name]
	if !ok {
		return nil, collection.NewStorageError(collection.KindQuery, c.Name, errors.New("relation does not exist"))
	}
	if _, exists := table[id]; exists {
		return nil, collection.NewStorageError(collection.KindQuery, c.Name, errors.New("duplicate key value violates unique constraint"))
	}

	now := s.now()
	row := map[string]any{
		collection.IDField:        id,
		collection.CreatedAtField: now,
		collection.UpdatedAtField: now,
	}
	for _, f := range c.Fields {
		if collection.IsReserved(f.Name) {
			continue
		}
		if value, present := data[f.Name]; present {
			row[f.Name] = normalize(f.FieldType, value)
		}
	}
	table[id] = row
	return decodeRow(c, row), nil
}

func (s *Store) UpdateData(ctx context.Context, c *collection.Collection, id string, data map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, collection.NewStorageError(collection.KindQuery, c.Name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.tables[c.Name][id]
	if !ok {
		return nil, valueNotFound(c.Name, id)
	}

	changed := false
	for _, f := range c.Fields {
		if collection.IsReserved(f.Name) {
			continue
		}
		if value, present := data[f.Name]; present {
			row[f.Name] = normalize(f.FieldType, value)
			changed = true
		}
	}
	if changed {
		row[collection.UpdatedAtField] = s.now()
	}
	return decodeRow(c, row), nil
}

func (s *Store) DeleteData(ctx context.Context, c *collection.Collection, id string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, collection.NewStorageError(collection.KindQuery, c.Name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.tables[c.Name][id]
	if !ok {
		return nil, valueNotFound(c.Name, id)
	}
	delete(s.tables[c.Name], id)
	return decodeRow(c, row), nil
}

func (s *Store) GetData(ctx context.Context, c *collection.Collection, id string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, collection.NewStorageError(collection.KindQuery, c.Name, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.tables[c.Name][id]
	if !ok {
		return nil, valueNotFound(c.Name, id)
	}
	return decodeRow(c, row), nil
}

// ListData returns matching records ordered by created_at, then id.
func (s *Store) ListData(ctx context.Context, c *collection.Collection, where collection.Where) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, collection.NewStorageError(collection.KindQuery, c.Name, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []map[string]any
	for _, row := range s.tables[c.Name] {
		if matches(c, row, where) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		ti := rows[i][collection.CreatedAtField].(time.Time)
		tj := rows[j][collection.CreatedAtField].(time.Time)
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return rows[i][collection.IDField].(string) < rows[j][collection.IDField].(string)
	})

	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		out[i] = decodeRow(c, row)
	}
	return out, nil
}

// normalize converts a JSON value into the stored form of a column of type
// ft. Values of the wrong kind are stored as null.
func normalize(ft collection.FieldType, value any) any {
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
		if _, ok := value.([]any); ok {
			return deepCopy(value)
		}
	case collection.Object:
		if _, ok := value.(map[string]any); ok {
			return deepCopy(value)
		}
	case collection.TimeStamp:
		if t, ok := collection.ParseTimeStamp(value); ok {
			return t.UTC()
		}
	}
	return nil
}

// deepCopy round-trips v through JSON, leaving numbers as float64.
func deepCopy(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}

func decodeRow(c *collection.Collection, row map[string]any) map[string]any {
	out := make(map[string]any, len(c.Fields))
	for _, f := range c.Fields {
		value, ok := row[f.Name]
		if !ok {
			out[f.Name] = nil
			continue
		}
		switch v := value.(type) {
		case time.Time:
			out[f.Name] = collection.TaggedTimeStamp(v)
		case []any, map[string]any:
			out[f.Name] = deepCopy(v)
		default:
			out[f.Name] = v
		}
	}
	return out
}

func valueNotFound(name, id string) error {
	return &collection.StorageError{Kind: collection.KindValueNotFound, Collection: name, ID: id}
}
