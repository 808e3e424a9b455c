package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/jbjoujoute/hive/internal/infra/storage"
)

// Pruner deletes expired partitions based on each table's retention.
type Pruner struct {
	store    storage.CatalogStore
	interval time.Duration
	log      *slog.Logger
}

// NewPruner creates a new Pruner worker. interval <= 0 disables it.
func NewPruner(store storage.CatalogStore, interval time.Duration, log *slog.Logger) *Pruner {
	if log == nil {
		log = slog.Default()
	}
	return &Pruner{store: store, interval: interval, log: log}
}

// Start runs the pruner loop until the context is cancelled.
func (p *Pruner) Start(ctx context.Context) {
	if p.interval <= 0 {
		return // Retention pruning disabled
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Initial prune
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	n, err := p.store.PruneExpiredPartitions(ctx)
	if err != nil {
		p.log.Error("Failed to prune expired partitions", "error", err)
		return
	}
	if n > 0 {
		p.log.Info("Pruned expired partitions", "count", n)
	}
}
