package server

import (
	"context"

	"github.com/jbjoujoute/hive/internal/core/catalog"
	"github.com/jbjoujoute/hive/internal/metastore"
)

// LocalClient adapts a Service into a metastore.Client for same-process use:
// the embedded metastore. There is no connection to manage, so Reconnect is a
// no-op and IsLocal reports true, which in turn disables retries and
// connection aging in the wrapping layers.
type LocalClient struct {
	svc *Service
}

var _ metastore.Client = (*LocalClient)(nil)

// NewLocalClient wraps svc. The client owns the service's resources; Close
// releases them.
func NewLocalClient(svc *Service) *LocalClient {
	return &LocalClient{svc: svc}
}

func (l *LocalClient) GetDatabase(ctx context.Context, name string) (*catalog.Database, error) {
	return l.svc.GetDatabase(ctx, name)
}

func (l *LocalClient) GetAllDatabases(ctx context.Context) ([]string, error) {
	return l.svc.GetAllDatabases(ctx)
}

func (l *LocalClient) CreateDatabase(ctx context.Context, db *catalog.Database) error {
	return l.svc.CreateDatabase(ctx, db)
}

func (l *LocalClient) DropDatabase(ctx context.Context, name string) error {
	return l.svc.DropDatabase(ctx, name)
}

func (l *LocalClient) GetTable(ctx context.Context, dbName, tableName string) (*catalog.Table, error) {
	return l.svc.GetTable(ctx, dbName, tableName)
}

func (l *LocalClient) GetTables(ctx context.Context, dbName, pattern string) ([]string, error) {
	return l.svc.GetTables(ctx, dbName, pattern)
}

func (l *LocalClient) CreateTable(ctx context.Context, tbl *catalog.Table) error {
	return l.svc.CreateTable(ctx, tbl)
}

func (l *LocalClient) AlterTable(ctx context.Context, dbName, tableName string, tbl *catalog.Table) error {
	return l.svc.AlterTable(ctx, dbName, tableName, tbl)
}

func (l *LocalClient) DropTable(ctx context.Context, dbName, tableName string) error {
	return l.svc.DropTable(ctx, dbName, tableName)
}

func (l *LocalClient) AddPartition(ctx context.Context, part *catalog.Partition) error {
	return l.svc.AddPartition(ctx, part)
}

func (l *LocalClient) GetPartition(ctx context.Context, dbName, tableName string, values []string) (*catalog.Partition, error) {
	return l.svc.GetPartition(ctx, dbName, tableName, values)
}

func (l *LocalClient) DropPartition(ctx context.Context, dbName, tableName string, values []string) error {
	return l.svc.DropPartition(ctx, dbName, tableName, values)
}

func (l *LocalClient) Reconnect() error { return nil }

func (l *LocalClient) IsLocal() bool { return true }

func (l *LocalClient) Close() error { return l.svc.Close() }
