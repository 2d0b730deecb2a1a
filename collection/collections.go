package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/kartikbazzad/bunbase/bunstore/pkg/logger"
)

// SchemaChange describes one field added to or removed from a collection.
type SchemaChange struct {
	Collection string
	Field      Field
	Removed    bool
}

// Option configures a Collections registry.
type Option func(*Collections)

// WithSchemaHook registers fn to be called after every committed schema
// change.
func WithSchemaHook(fn func(SchemaChange)) Option {
	return func(cs *Collections) {
		cs.hooks = append(cs.hooks, fn)
	}
}

// WithLogger overrides the global logger.
func WithLogger(l *slog.Logger) Option {
	return func(cs *Collections) {
		cs.log = l
	}
}

// Collections is the schema registry: a concurrent name to Collection cache in
// front of a Storage. Schema evolution for a given name runs under that
// name's lock; writes that bring no new fields only take the cache read lock.
type Collections struct {
	storage Storage
	log     *slog.Logger
	hooks   []func(SchemaChange)

	mu    sync.RWMutex
	cache map[string]*Collection
	locks *keyedMutex
}

// NewCollections creates a registry seeded from the storage catalog.
func NewCollections(ctx context.Context, storage Storage, opts ...Option) (*Collections, error) {
	cs := &Collections{
		storage: storage,
		log:     logger.Get(),
		cache:   make(map[string]*Collection),
		locks:   newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(cs)
	}
	if err := cs.Reload(ctx); err != nil {
		return nil, err
	}
	return cs, nil
}

// Reload replaces the cache with the catalog contents.
func (cs *Collections) Reload(ctx context.Context) error {
	list, err := cs.storage.GetCollections(ctx)
	if err != nil {
		return storageError("", err)
	}
	cache := make(map[string]*Collection, len(list))
	for _, c := range list {
		cache[c.Name] = c
	}
	cs.mu.Lock()
	cs.cache = cache
	cs.mu.Unlock()
	cs.log.Debug("Loaded collection schemas", "count", len(cache))
	return nil
}

// Collection returns the cached schema called name.
func (cs *Collections) Collection(name string) (*Collection, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	c, ok := cs.cache[name]
	return c, ok
}

// Names returns every cached collection name, sorted.
func (cs *Collections) Names() []string {
	cs.mu.RLock()
	names := make([]string, 0, len(cs.cache))
	for name := range cs.cache {
		names = append(names, name)
	}
	cs.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Insert stores data as a new record of collection name, creating the
// collection and any fields data introduces.
func (cs *Collections) Insert(ctx context.Context, name string, data any) (map[string]any, error) {
	obj, ok := data.(map[string]any)
	if !ok {
		return nil, inputDataError(name)
	}

	c, err := cs.evolve(ctx, name, obj, true)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(obj); err != nil {
		return nil, err
	}
	values := c.DefaultValues(obj)
	if err := c.RequiredValues(values, false); err != nil {
		return nil, err
	}

	row, err := cs.storage.InsertData(ctx, c, values)
	if err != nil {
		return nil, storageError(name, err)
	}
	return row, nil
}

// Update applies data as a partial update to record id. The collection must
// already exist; new keys still widen its schema.
func (cs *Collections) Update(ctx context.Context, name, id string, data any) (map[string]any, error) {
	obj, ok := data.(map[string]any)
	if !ok {
		return nil, inputDataError(name)
	}

	c, err := cs.evolve(ctx, name, obj, false)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(obj); err != nil {
		return nil, err
	}
	if err := c.RequiredValues(obj, true); err != nil {
		return nil, err
	}

	row, err := cs.storage.UpdateData(ctx, c, id, obj)
	if err != nil {
		return nil, storageError(name, err)
	}
	return row, nil
}

// Delete removes record id and returns it.
func (cs *Collections) Delete(ctx context.Context, name, id string) (map[string]any, error) {
	c, ok := cs.Collection(name)
	if !ok {
		return nil, notFoundError(name)
	}
	row, err := cs.storage.DeleteData(ctx, c, id)
	if err != nil {
		return nil, storageError(name, err)
	}
	return row, nil
}

// Get returns record id.
func (cs *Collections) Get(ctx context.Context, name, id string) (map[string]any, error) {
	c, ok := cs.Collection(name)
	if !ok {
		return nil, notFoundError(name)
	}
	row, err := cs.storage.GetData(ctx, c, id)
	if err != nil {
		return nil, storageError(name, err)
	}
	return row, nil
}

// List returns every record matching query, a decoded JSON predicate map.
func (cs *Collections) List(ctx context.Context, name string, query any) ([]map[string]any, error) {
	c, ok := cs.Collection(name)
	if !ok {
		return nil, notFoundError(name)
	}
	where, err := ParseWhere(query)
	if err != nil {
		return nil, inputDataError(name)
	}
	rows, err := cs.storage.ListData(ctx, c, where)
	if err != nil {
		return nil, storageError(name, err)
	}
	return rows, nil
}

// CreateCollection explicitly creates a collection with the given fields.
// Reserved names are ignored; duplicate names and unknown types are rejected.
func (cs *Collections) CreateCollection(ctx context.Context, name string, fields []Field) (*Collection, error) {
	if name == "" {
		return nil, inputDataError(name)
	}
	if invalid := invalidFields(fields); len(invalid) > 0 {
		return nil, validateFieldsError(name, invalid)
	}

	unlock, err := cs.locks.Lock(ctx, name)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, exists := cs.Collection(name); exists {
		return nil, storageError(name, NewStorageError(KindCollectionCreate, name, errors.New("collection already exists")))
	}
	c, err := cs.storage.CreateCollection(ctx, name, fields)
	if err != nil {
		return nil, storageError(name, err)
	}
	cs.store(c)
	cs.log.Info("Created collection", "collection", name, "fields", c.FieldNames())
	return c, nil
}

// RemoveCollection drops collection name with all of its records.
func (cs *Collections) RemoveCollection(ctx context.Context, name string) error {
	unlock, err := cs.locks.Lock(ctx, name)
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := cs.Collection(name); !ok {
		return notFoundError(name)
	}
	if err := cs.storage.RemoveCollection(ctx, name); err != nil {
		return storageError(name, err)
	}
	cs.mu.Lock()
	delete(cs.cache, name)
	cs.mu.Unlock()
	cs.log.Info("Removed collection", "collection", name)
	return nil
}

// AddField adds one declared field to collection name.
func (cs *Collections) AddField(ctx context.Context, name string, field Field) (*Collection, error) {
	if invalid := invalidFields([]Field{field}); len(invalid) > 0 || IsReserved(field.Name) {
		return nil, validateFieldsError(name, []string{field.Name})
	}

	unlock, err := cs.locks.Lock(ctx, name)
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, ok := cs.Collection(name)
	if !ok {
		return nil, notFoundError(name)
	}
	next, err := cs.storage.InsertField(ctx, c, field)
	if err != nil {
		return nil, storageError(name, err)
	}
	cs.store(next)
	cs.notify(SchemaChange{Collection: name, Field: field})
	return next, nil
}

// RemoveField drops field fieldName and its column from collection name.
func (cs *Collections) RemoveField(ctx context.Context, name, fieldName string) (*Collection, error) {
	unlock, err := cs.locks.Lock(ctx, name)
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, ok := cs.Collection(name)
	if !ok {
		return nil, notFoundError(name)
	}
	field, _ := c.Field(fieldName)
	next, err := cs.storage.RemoveField(ctx, c, fieldName)
	if err != nil {
		return nil, storageError(name, err)
	}
	cs.store(next)
	cs.notify(SchemaChange{Collection: name, Field: field, Removed: true})
	return next, nil
}

// evolve returns the schema for name widened with every new field in data.
// With create set a missing collection is created first.
func (cs *Collections) evolve(ctx context.Context, name string, data map[string]any, create bool) (*Collection, error) {
	c, ok := cs.Collection(name)
	if ok && len(c.NewFields(data)) == 0 {
		return c, nil
	}
	if !ok && !create {
		return nil, notFoundError(name)
	}

	unlock, err := cs.locks.Lock(ctx, name)
	if err != nil {
		return nil, storageError(name, err)
	}
	defer unlock()

	// Another writer may have evolved the schema while we waited.
	c, ok = cs.Collection(name)
	if !ok {
		if !create {
			return nil, notFoundError(name)
		}
		c, err = cs.createOrLoad(ctx, name)
		if err != nil {
			return nil, storageError(name, err)
		}
	}

	for _, field := range c.NewFields(data) {
		if _, exists := c.Field(field.Name); exists {
			continue
		}
		next, err := cs.storage.InsertField(ctx, c, field)
		if errors.Is(err, ErrFieldExists) {
			// Added by another process; take the catalog's view.
			existsErr := err
			next, err = cs.storage.GetCollection(ctx, name)
			if err == nil {
				if _, ok := next.Field(field.Name); !ok {
					// Column present without a catalog entry.
					cs.store(next)
					return nil, storageError(name, existsErr)
				}
			}
		}
		if err != nil {
			return nil, storageError(name, err)
		}
		c = next
		cs.store(c)
		cs.log.Info("Added collection field", "collection", name, "field", field.Name, "type", field.FieldType)
		cs.notify(SchemaChange{Collection: name, Field: field})
	}
	return c, nil
}

// createOrLoad creates an empty collection, falling back to the catalog when
// another process created it first.
func (cs *Collections) createOrLoad(ctx context.Context, name string) (*Collection, error) {
	c, err := cs.storage.CreateCollection(ctx, name, nil)
	if err != nil {
		existing, getErr := cs.storage.GetCollection(ctx, name)
		if getErr != nil {
			return nil, err
		}
		c = existing
	} else {
		cs.log.Info("Created collection", "collection", name)
	}
	cs.store(c)
	return c, nil
}

func (cs *Collections) store(c *Collection) {
	cs.mu.Lock()
	cs.cache[c.Name] = c
	cs.mu.Unlock()
}

func (cs *Collections) notify(change SchemaChange) {
	for _, fn := range cs.hooks {
		fn(change)
	}
}

// invalidFields returns the names of fields that are unnamed, duplicated or
// carry an unknown type.
func invalidFields(fields []Field) []string {
	var invalid []string
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		switch {
		case f.Name == "":
			invalid = append(invalid, fmt.Sprintf("#%d", i))
		case seen[f.Name] || !f.FieldType.Valid():
			invalid = append(invalid, f.Name)
		}
		seen[f.Name] = true
	}
	return invalid
}
