// Package storage defines the persistence surface of the metastore service.
package storage

import (
	"context"
	"errors"

	"github.com/jbjoujoute/hive/internal/core/catalog"
)

var (
	// ErrNotFound reports a missing database, table, or partition.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists reports a uniqueness conflict on create.
	ErrAlreadyExists = errors.New("already exists")
)

// CatalogStore persists the catalog. Implementations map their backend's
// failure modes onto ErrNotFound / ErrAlreadyExists where they can; any other
// error is surfaced to the service layer as an opaque datastore failure.
type CatalogStore interface {
	GetDatabase(ctx context.Context, name string) (*catalog.Database, error)
	ListDatabases(ctx context.Context) ([]string, error)
	CreateDatabase(ctx context.Context, db *catalog.Database) error
	DropDatabase(ctx context.Context, name string) error

	GetTable(ctx context.Context, dbName, tableName string) (*catalog.Table, error)
	ListTables(ctx context.Context, dbName, pattern string) ([]string, error)
	CreateTable(ctx context.Context, tbl *catalog.Table) error
	AlterTable(ctx context.Context, dbName, tableName string, tbl *catalog.Table) error
	DropTable(ctx context.Context, dbName, tableName string) error

	AddPartition(ctx context.Context, part *catalog.Partition) error
	GetPartition(ctx context.Context, dbName, tableName string, values []string) (*catalog.Partition, error)
	DropPartition(ctx context.Context, dbName, tableName string, values []string) error

	// PruneExpiredPartitions deletes partitions older than their table's
	// retention. Tables without a retention keep everything. Returns the
	// number of partitions dropped.
	PruneExpiredPartitions(ctx context.Context) (int64, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}
