// Package server implements the metastore service: the catalog operations
// over the persistent store, the gRPC surface, the in-process local client,
// and the ops HTTP endpoint.
package server

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jbjoujoute/hive/internal/core/catalog"
	"github.com/jbjoujoute/hive/internal/infra/redis"
	"github.com/jbjoujoute/hive/internal/infra/storage"
	"github.com/jbjoujoute/hive/internal/metastore"
	"github.com/jbjoujoute/hive/internal/metrics"
)

// Service implements the metastore operations over a CatalogStore, with an
// optional read-through table cache.
type Service struct {
	store storage.CatalogStore
	cache *redis.TableCache
	log   *slog.Logger
}

// New creates the service. cache may be nil.
func New(store storage.CatalogStore, cache *redis.TableCache, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, cache: cache, log: log}
}

// dsErr maps a storage failure onto the service's error channels: typed
// statuses where the store preserved structure, the generic message channel
// otherwise. The driver cause survives only as text in the latter; the
// client-side retry classifier pattern-matches on it.
func dsErr(op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, storage.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	default:
		return metastore.ServiceErrorf("datastore error in %s: %v", op, err)
	}
}

func (s *Service) GetDatabase(ctx context.Context, name string) (*catalog.Database, error) {
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "database name is required")
	}
	db, err := s.store.GetDatabase(ctx, name)
	if err != nil {
		return nil, dsErr("GetDatabase", err)
	}
	return db, nil
}

func (s *Service) GetAllDatabases(ctx context.Context) ([]string, error) {
	names, err := s.store.ListDatabases(ctx)
	if err != nil {
		return nil, dsErr("GetAllDatabases", err)
	}
	return names, nil
}

func (s *Service) CreateDatabase(ctx context.Context, db *catalog.Database) error {
	if db == nil || db.Name == "" {
		return status.Error(codes.InvalidArgument, "database name is required")
	}
	if err := s.store.CreateDatabase(ctx, db); err != nil {
		return dsErr("CreateDatabase", err)
	}
	s.log.Info("Created database", "name", db.Name)
	return nil
}

func (s *Service) DropDatabase(ctx context.Context, name string) error {
	if name == "" {
		return status.Error(codes.InvalidArgument, "database name is required")
	}
	if err := s.store.DropDatabase(ctx, name); err != nil {
		return dsErr("DropDatabase", err)
	}
	s.log.Info("Dropped database", "name", name)
	return nil
}

func (s *Service) GetTable(ctx context.Context, dbName, tableName string) (*catalog.Table, error) {
	if dbName == "" || tableName == "" {
		return nil, status.Error(codes.InvalidArgument, "database and table name are required")
	}

	if s.cache != nil {
		if tbl, ok := s.cache.Get(ctx, dbName, tableName); ok {
			metrics.CacheHits.WithLabelValues("hit").Inc()
			return tbl, nil
		}
		metrics.CacheHits.WithLabelValues("miss").Inc()
	}

	tbl, err := s.store.GetTable(ctx, dbName, tableName)
	if err != nil {
		return nil, dsErr("GetTable", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, tbl); err != nil {
			s.log.Warn("Failed to cache table", "table", dbName+"."+tableName, "error", err)
		}
	}
	return tbl, nil
}

func (s *Service) GetTables(ctx context.Context, dbName, pattern string) ([]string, error) {
	if dbName == "" {
		return nil, status.Error(codes.InvalidArgument, "database name is required")
	}
	names, err := s.store.ListTables(ctx, dbName, pattern)
	if err != nil {
		return nil, dsErr("GetTables", err)
	}
	return names, nil
}

func (s *Service) CreateTable(ctx context.Context, tbl *catalog.Table) error {
	if tbl == nil || tbl.DBName == "" || tbl.Name == "" {
		return status.Error(codes.InvalidArgument, "database and table name are required")
	}
	if err := s.store.CreateTable(ctx, tbl); err != nil {
		return dsErr("CreateTable", err)
	}
	s.log.Info("Created table", "table", tbl.DBName+"."+tbl.Name)
	return nil
}

func (s *Service) AlterTable(ctx context.Context, dbName, tableName string, tbl *catalog.Table) error {
	if dbName == "" || tableName == "" || tbl == nil {
		return status.Error(codes.InvalidArgument, "database, table name and new definition are required")
	}
	if err := s.store.AlterTable(ctx, dbName, tableName, tbl); err != nil {
		return dsErr("AlterTable", err)
	}
	s.invalidate(ctx, dbName, tableName)
	s.log.Info("Altered table", "table", dbName+"."+tableName)
	return nil
}

func (s *Service) DropTable(ctx context.Context, dbName, tableName string) error {
	if dbName == "" || tableName == "" {
		return status.Error(codes.InvalidArgument, "database and table name are required")
	}
	if err := s.store.DropTable(ctx, dbName, tableName); err != nil {
		return dsErr("DropTable", err)
	}
	s.invalidate(ctx, dbName, tableName)
	s.log.Info("Dropped table", "table", dbName+"."+tableName)
	return nil
}

func (s *Service) AddPartition(ctx context.Context, part *catalog.Partition) error {
	if part == nil || part.DBName == "" || part.TableName == "" || len(part.Values) == 0 {
		return status.Error(codes.InvalidArgument, "partition identity is required")
	}
	if err := s.store.AddPartition(ctx, part); err != nil {
		return dsErr("AddPartition", err)
	}
	return nil
}

func (s *Service) GetPartition(ctx context.Context, dbName, tableName string, values []string) (*catalog.Partition, error) {
	if dbName == "" || tableName == "" || len(values) == 0 {
		return nil, status.Error(codes.InvalidArgument, "partition identity is required")
	}
	part, err := s.store.GetPartition(ctx, dbName, tableName, values)
	if err != nil {
		return nil, dsErr("GetPartition", err)
	}
	return part, nil
}

func (s *Service) DropPartition(ctx context.Context, dbName, tableName string, values []string) error {
	if dbName == "" || tableName == "" || len(values) == 0 {
		return status.Error(codes.InvalidArgument, "partition identity is required")
	}
	if err := s.store.DropPartition(ctx, dbName, tableName, values); err != nil {
		return dsErr("DropPartition", err)
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, dbName, tableName string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, dbName, tableName); err != nil {
		s.log.Warn("Failed to invalidate cached table", "table", dbName+"."+tableName, "error", err)
	}
}

// Close releases the store and the cache.
func (s *Service) Close() error {
	var errs []error
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	errs = append(errs, s.store.Close())
	return errors.Join(errs...)
}
