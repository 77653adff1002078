package pipeline

import (
	"context"
	"fmt"

	"swatch/internal/infra/persistence/memory"
	"swatch/internal/infra/persistence/postgres"
	"swatch/internal/infra/persistence/sqlite"
	"swatch/internal/merge"
)

// StorageDriver identifies a concrete database backend.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// Database receives the merged tables. Save replaces any previous
// contents so re-runs are idempotent.
type Database interface {
	Save(ctx context.Context, res merge.Result) error
	Close() error
}

// OpenDatabase selects a backend from cfg.StorageDriver. An empty
// driver defaults to sqlite.
func OpenDatabase(ctx context.Context, cfg Config) (Database, error) {
	driver := cfg.StorageDriver
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case StoragePostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
