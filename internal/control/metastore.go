// Package control wires the metastore service together and manages its
// lifecycle: storage, migrations, cache, the gRPC listener and the ops
// HTTP endpoint.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/jbjoujoute/hive/internal/core/config"
	"github.com/jbjoujoute/hive/internal/core/worker"
	redisclient "github.com/jbjoujoute/hive/internal/infra/redis"
	"github.com/jbjoujoute/hive/internal/infra/storage/postgres"
	"github.com/jbjoujoute/hive/internal/server"
)

// Config holds the application configuration.
type Config struct {
	Port     int
	OpsPort  int
	Cache    redisclient.Config
	Database postgres.Config
	Logging  config.LoggingConfig

	// PruneInterval drives partition retention pruning. 0 disables it.
	PruneInterval time.Duration

	// MigrationsDir is resolved against the working directory. Empty means
	// "migrations".
	MigrationsDir string
}

// Metastore is the main application struct that manages the service lifecycle.
type Metastore struct {
	cfg         Config
	svc         *server.Service
	grpcServer  *server.GRPCServer
	opsServer   *server.OpsServer
	pruner      *worker.Pruner
	cancelPrune context.CancelFunc
	log         *slog.Logger
	errCh       chan error
}

// NewMetastore creates a Metastore instance with all dependencies initialized.
func NewMetastore(cfg Config) (*Metastore, error) {
	log := slog.Default()

	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database url is required")
	}

	db, err := postgres.NewDB(context.Background(), cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to init db: %w", err)
	}

	// Run migrations. Goose needs the direct *sql.DB that sqlx wraps.
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, err
	}
	migrationsDir := cfg.MigrationsDir
	if migrationsDir == "" {
		migrationsDir = "migrations"
	}
	if err := goose.Up(db.DB.DB, migrationsDir); err != nil {
		return nil, fmt.Errorf("failed to migrate db: %w", err)
	}

	store := postgres.NewCatalog(db)
	log.Info("Using PostgreSQL catalog store")

	var cache *redisclient.TableCache
	if cfg.Cache.URL != "" {
		cache, err = redisclient.NewTableCache(cfg.Cache)
		if err != nil {
			// The cache is an optimization; the service runs without it.
			log.Warn("Failed to connect table cache, continuing without", "error", err)
			cache = nil
		} else {
			log.Info("Table cache enabled")
		}
	}

	svc := server.New(store, cache, log)

	return &Metastore{
		cfg:        cfg,
		svc:        svc,
		grpcServer: server.NewGRPCServer(svc, cfg.Port, log),
		opsServer:  server.NewOpsServer(store, cfg.OpsPort),
		pruner:     worker.NewPruner(store, cfg.PruneInterval, log),
		log:        log,
		errCh:      make(chan error, 2),
	}, nil
}

// Start launches the gRPC and ops listeners. It returns immediately; listener
// failures surface through Err.
func (m *Metastore) Start(ctx context.Context) error {
	go func() {
		if err := m.grpcServer.Start(); err != nil {
			m.errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go func() {
		if err := m.opsServer.Start(); err != nil && err != http.ErrServerClosed {
			m.errCh <- fmt.Errorf("ops server: %w", err)
		}
	}()

	pruneCtx, cancel := context.WithCancel(context.Background())
	m.cancelPrune = cancel
	go m.pruner.Start(pruneCtx)

	m.log.Info("Metastore started", "port", m.cfg.Port, "ops_port", m.cfg.OpsPort)
	return nil
}

// Err reports listener failures after Start.
func (m *Metastore) Err() <-chan error {
	return m.errCh
}

// Stop drains in-flight requests and releases storage and cache.
func (m *Metastore) Stop(ctx context.Context) error {
	if m.cancelPrune != nil {
		m.cancelPrune()
	}
	m.grpcServer.Stop()
	if err := m.opsServer.Stop(ctx); err != nil {
		m.log.Warn("Ops server shutdown", "error", err)
	}
	if err := m.svc.Close(); err != nil {
		return fmt.Errorf("failed to close service: %w", err)
	}
	m.log.Info("Metastore stopped")
	return nil
}
