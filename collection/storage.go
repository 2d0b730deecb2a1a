package collection

import "context"

// Storage persists collection schemas and their records. Implementations
// must be safe for concurrent use and report failures as *StorageError.
type Storage interface {
	// GetCollections loads every schema from the catalog.
	GetCollections(ctx context.Context) ([]*Collection, error)
	GetCollection(ctx context.Context, name string) (*Collection, error)
	// CreateCollection creates the backing table with the reserved columns plus
	// one column per field, records the catalog entry and returns the stored
	// schema.
	CreateCollection(ctx context.Context, name string, fields []Field) (*Collection, error)
	RemoveCollection(ctx context.Context, name string) error
	// InsertField adds one column and returns the updated schema.
	InsertField(ctx context.Context, c *Collection, field Field) (*Collection, error)
	RemoveField(ctx context.Context, c *Collection, name string) (*Collection, error)

	InsertData(ctx context.Context, c *Collection, data map[string]any) (map[string]any, error)
	UpdateData(ctx context.Context, c *Collection, id string, data map[string]any) (map[string]any, error)
	DeleteData(ctx context.Context, c *Collection, id string) (map[string]any, error)
	GetData(ctx context.Context, c *Collection, id string) (map[string]any, error)
	ListData(ctx context.Context, c *Collection, where Where) ([]map[string]any, error)
}
