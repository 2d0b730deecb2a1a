package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kartikbazzad/bunbase/bunstore/collection"
)

const schemaTable = "storage_collection_schema"

// columnType maps a field type to its column type.
func columnType(ft collection.FieldType) string {
	switch ft {
	case collection.String:
		return "text"
	case collection.Number:
		return "double precision"
	case collection.Boolean:
		return "boolean"
	case collection.Array, collection.Object:
		return "jsonb"
	case collection.TimeStamp:
		return "timestamptz"
	}
	return "jsonb"
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func createTableSQL(table string) string {
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(), updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW())",
		quoteIdent(table),
	)
}

func addColumnSQL(table string, field collection.Field) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
		quoteIdent(table), quoteIdent(field.Name), columnType(field.FieldType))
}

func dropColumnSQL(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN IF EXISTS %s", quoteIdent(table), quoteIdent(column))
}

func dropTableSQL(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(table))
}
