package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kartikbazzad/bunbase/bunstore/collection"
	"github.com/kartikbazzad/bunbase/bunstore/pkg/logger"
)

// duplicate_column
const pgDuplicateColumn = "42701"

// Store implements collection.Storage on PostgreSQL. Every collection is a
// table of the same name; schemas live in storage_collection_schema.
type Store struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

var _ collection.Storage = (*Store)(nil)

// NewStore creates a Store on pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, log: logger.Get()}
}

// GetCollections loads every catalog entry.
func (s *Store) GetCollections(ctx context.Context) ([]*collection.Collection, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT name, fields, created_at, updated_at FROM "+schemaTable+" ORDER BY name")
	if err != nil {
		return nil, collection.NewStorageError(collection.KindQuery, "", err)
	}
	list, err := pgx.CollectRows(rows, scanCollection)
	if err != nil {
		return nil, collection.NewStorageError(collection.KindQuery, "", err)
	}
	return list, nil
}

// GetCollection loads one catalog entry.
func (s *Store) GetCollection(ctx context.Context, name string) (*collection.Collection, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT name, fields, created_at, updated_at FROM "+schemaTable+" WHERE name = $1", name)
	if err != nil {
		return nil, collection.NewStorageError(collection.KindQuery, name, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCollection)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, collection.NewStorageError(collection.KindSchemaNotFound, name, nil)
	}
	if err != nil {
		return nil, collection.NewStorageError(collection.KindQuery, name, err)
	}
	return c, nil
}

func scanCollection(row pgx.CollectableRow) (*collection.Collection, error) {
	var (
		c      collection.Collection
		fields []byte
	)
	if err := row.Scan(&c.Name, &fields, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(fields, &c.Fields); err != nil {
		return nil, fmt.Errorf("decode fields of %s: %w", c.Name, err)
	}
	return &c, nil
}

// CreateCollection creates the table, one column per non-reserved field and
// the catalog entry in a single transaction.
func (s *Store) CreateCollection(ctx context.Context, name string, fields []collection.Field) (*collection.Collection, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, collection.NewStorageError(collection.KindCollectionCreate, name, err)
	}
	defer tx.Rollback(ctx)

	if err := s.exec(ctx, tx, createTableSQL(name)); err != nil {
		return nil, collection.NewStorageError(collection.KindCollectionCreateTable, name, err)
	}

	var all []collection.Field
	for _, f := range fields {
		if collection.IsReserved(f.Name) {
			continue
		}
		if err := s.exec(ctx, tx, addColumnSQL(name, f)); err != nil {
			return nil, &collection.StorageError{Kind: collection.KindCollectionAlterTable, Collection: name, Field: f.Name, Err: err}
		}
		all = append(all, f)
	}
	all = append(all, collection.ReservedFields()...)

	c := &collection.Collection{Name: name, Fields: all}
	encoded, err := json.Marshal(c.Fields)
	if err != nil {
		return nil, collection.NewStorageError(collection.KindCollectionCreate, name, err)
	}
	err = tx.QueryRow(ctx,
		"INSERT INTO "+schemaTable+" (name, fields, created_at, updated_at) VALUES ($1, $2, NOW(), NOW()) RETURNING created_at, updated_at",
		name, string(encoded),
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, collection.NewStorageError(collection.KindCollectionCreate, name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, collection.NewStorageError(collection.KindCollectionCreate, name, err)
	}
	s.log.Info("Created collection table", "collection", name, "fields", len(all))
	return c, nil
}

// RemoveCollection drops the table and its catalog entry.
func (s *Store) RemoveCollection(ctx context.Context, name string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return collection.NewStorageError(collection.KindCollectionRemove, name, err)
	}
	defer tx.Rollback(ctx)

	if err := s.exec(ctx, tx, dropTableSQL(name)); err != nil {
		return collection.NewStorageError(collection.KindCollectionRemove, name, err)
	}
	tag, err := tx.Exec(ctx, "DELETE FROM "+schemaTable+" WHERE name = $1", name)
	if err != nil {
		return collection.NewStorageError(collection.KindCollectionRemove, name, err)
	}
	if tag.RowsAffected() == 0 {
		return collection.NewStorageError(collection.KindSchemaNotFound, name, nil)
	}
	if err := tx.Commit(ctx); err != nil {
		return collection.NewStorageError(collection.KindCollectionRemove, name, err)
	}
	s.log.Info("Dropped collection table", "collection", name)
	return nil
}

// InsertField adds one column and records it in the catalog.
func (s *Store) InsertField(ctx context.Context, c *collection.Collection, field collection.Field) (*collection.Collection, error) {
	fieldErr := func(kind collection.StorageErrorKind, err error) error {
		return &collection.StorageError{Kind: kind, Collection: c.Name, Field: field.Name, Err: err}
	}
	if _, exists := c.Field(field.Name); exists || collection.IsReserved(field.Name) {
		return nil, fieldErr(collection.KindCollectionFieldExists, nil)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fieldErr(collection.KindCollectionAlterTable, err)
	}
	defer tx.Rollback(ctx)

	if err := s.exec(ctx, tx, addColumnSQL(c.Name, field)); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgDuplicateColumn {
			return nil, fieldErr(collection.KindCollectionFieldExists, err)
		}
		return nil, fieldErr(collection.KindCollectionAlterTable, err)
	}

	next := c.WithField(field)
	if err := s.saveFields(ctx, tx, next); err != nil {
		return nil, fieldErr(collection.KindCollectionAlterTable, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fieldErr(collection.KindCollectionAlterTable, err)
	}
	return next, nil
}

// RemoveField drops one user column and removes it from the catalog.
func (s *Store) RemoveField(ctx context.Context, c *collection.Collection, name string) (*collection.Collection, error) {
	fieldErr := func(kind collection.StorageErrorKind, err error) error {
		return &collection.StorageError{Kind: kind, Collection: c.Name, Field: name, Err: err}
	}
	if collection.IsReserved(name) {
		return nil, fieldErr(collection.KindCollectionFieldRemove, errors.New("reserved field"))
	}
	if _, exists := c.Field(name); !exists {
		return nil, fieldErr(collection.KindCollectionFieldNotFound, nil)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fieldErr(collection.KindCollectionFieldRemove, err)
	}
	defer tx.Rollback(ctx)

	if err := s.exec(ctx, tx, dropColumnSQL(c.Name, name)); err != nil {
		return nil, fieldErr(collection.KindCollectionFieldRemove, err)
	}
	next := c.WithoutField(name)
	if err := s.saveFields(ctx, tx, next); err != nil {
		return nil, fieldErr(collection.KindCollectionFieldRemove, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fieldErr(collection.KindCollectionFieldRemove, err)
	}
	s.log.Info("Dropped collection field", "collection", c.Name, "field", name)
	return next, nil
}

// saveFields rewrites the catalog field list of c and stamps c.UpdatedAt.
func (s *Store) saveFields(ctx context.Context, tx pgx.Tx, c *collection.Collection) error {
	encoded, err := json.Marshal(c.Fields)
	if err != nil {
		return err
	}
	var updatedAt time.Time
	err = tx.QueryRow(ctx,
		"UPDATE "+schemaTable+" SET fields = $2, updated_at = NOW() WHERE name = $1 RETURNING updated_at",
		c.Name, string(encoded),
	).Scan(&updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return collection.NewStorageError(collection.KindSchemaNotFound, c.Name, nil)
	}
	if err != nil {
		return err
	}
	c.UpdatedAt = updatedAt
	return nil
}

// InsertData inserts one record and returns it as stored.
func (s *Store) InsertData(ctx context.Context, c *collection.Collection, data map[string]any) (map[string]any, error) {
	sql, params, _ := insertSQL(c, data)
	var id string
	if err := s.pool.QueryRow(ctx, sql, params...).Scan(&id); err != nil {
		return nil, collection.NewStorageError(collection.KindQuery, c.Name, err)
	}
	s.log.Info("Inserted record", "collection", c.Name, "id", id)
	return s.GetData(ctx, c, id)
}

// UpdateData applies a partial update and returns the record as stored.
func (s *Store) UpdateData(ctx context.Context, c *collection.Collection, id string, data map[string]any) (map[string]any, error) {
	sql, params, ok := updateSQL(c, id, data)
	if ok {
		tag, err := s.pool.Exec(ctx, sql, params...)
		if err != nil {
			return nil, collection.NewStorageError(collection.KindQuery, c.Name, err)
		}
		if tag.RowsAffected() == 0 {
			return nil, valueNotFound(c.Name, id)
		}
		s.log.Info("Updated record", "collection", c.Name, "id", id)
	}
	return s.GetData(ctx, c, id)
}

// DeleteData deletes a record and returns it as it was.
func (s *Store) DeleteData(ctx context.Context, c *collection.Collection, id string) (map[string]any, error) {
	row, err := s.queryOne(ctx, c, id,
		"DELETE FROM "+quoteIdent(c.Name)+" WHERE "+quoteIdent(collection.IDField)+" = $1 RETURNING *")
	if err != nil {
		return nil, err
	}
	s.log.Info("Deleted record", "collection", c.Name, "id", id)
	return row, nil
}

// GetData fetches a record by id.
func (s *Store) GetData(ctx context.Context, c *collection.Collection, id string) (map[string]any, error) {
	return s.queryOne(ctx, c, id,
		"SELECT * FROM "+quoteIdent(c.Name)+" WHERE "+quoteIdent(collection.IDField)+" = $1")
}

// ListData returns every record matching where, oldest first.
func (s *Store) ListData(ctx context.Context, c *collection.Collection, where collection.Where) ([]map[string]any, error) {
	sql, params := selectSQL(c, where)
	s.log.Debug("Listing records", "collection", c.Name, "sql", sql)
	rows, err := s.pool.Query(ctx, sql, params...)
	if err != nil {
		return nil, collection.NewStorageError(collection.KindQuery, c.Name, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, collection.NewStorageError(collection.KindQuery, c.Name, err)
	}
	out := make([]map[string]any, len(maps))
	for i, m := range maps {
		out[i] = decodeRow(c, m)
	}
	return out, nil
}

func (s *Store) queryOne(ctx context.Context, c *collection.Collection, id, sql string) (map[string]any, error) {
	rows, err := s.pool.Query(ctx, sql, id)
	if err != nil {
		return nil, collection.NewStorageError(collection.KindQuery, c.Name, err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, valueNotFound(c.Name, id)
	}
	if err != nil {
		return nil, collection.NewStorageError(collection.KindQuery, c.Name, err)
	}
	return decodeRow(c, m), nil
}

func (s *Store) exec(ctx context.Context, tx pgx.Tx, sql string) error {
	s.log.Debug("Executing DDL", "sql", sql)
	_, err := tx.Exec(ctx, sql)
	return err
}

func valueNotFound(name, id string) error {
	return &collection.StorageError{Kind: collection.KindValueNotFound, Collection: name, ID: id}
}
