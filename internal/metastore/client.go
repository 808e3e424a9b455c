// Package metastore defines the client-facing surface of the metastore: the
// Client interface implemented by the remote gRPC client, the embedded local
// client, and the retrying wrapper, plus the error types shared by all of them.
package metastore

import (
	"context"

	"github.com/jbjoujoute/hive/internal/core/catalog"
)

// Client is the metastore service surface. All implementations must be safe
// for concurrent use, or document that concurrent use is the caller's
// responsibility.
type Client interface {
	GetDatabase(ctx context.Context, name string) (*catalog.Database, error)
	GetAllDatabases(ctx context.Context) ([]string, error)
	CreateDatabase(ctx context.Context, db *catalog.Database) error
	DropDatabase(ctx context.Context, name string) error

	GetTable(ctx context.Context, dbName, tableName string) (*catalog.Table, error)
	GetTables(ctx context.Context, dbName, pattern string) ([]string, error)
	CreateTable(ctx context.Context, tbl *catalog.Table) error
	AlterTable(ctx context.Context, dbName, tableName string, tbl *catalog.Table) error
	DropTable(ctx context.Context, dbName, tableName string) error

	AddPartition(ctx context.Context, part *catalog.Partition) error
	GetPartition(ctx context.Context, dbName, tableName string, values []string) (*catalog.Partition, error)
	DropPartition(ctx context.Context, dbName, tableName string, values []string) error

	// Reconnect tears down and re-establishes the underlying connection.
	// A no-op for local (in-process) clients.
	Reconnect() error

	// IsLocal reports whether the client talks to a same-process metastore
	// rather than a remote one.
	IsLocal() bool

	Close() error
}
