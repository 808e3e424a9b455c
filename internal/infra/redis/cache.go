// Package redis provides an optional read-through cache for hot table
// lookups in front of the catalog store.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jbjoujoute/hive/internal/core/catalog"
)

// Config holds Redis connection configuration.
type Config struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	TTL      time.Duration `yaml:"ttl"`
}

// DefaultTTL applies when no TTL is configured.
const DefaultTTL = 5 * time.Minute

// TableCache caches catalog tables by qualified name.
type TableCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTableCache creates a new cache client and verifies connectivity.
func NewTableCache(cfg Config) (*TableCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TableCache{rdb: rdb, ttl: ttl}, nil
}

// Close closes the Redis connection.
func (c *TableCache) Close() error {
	return c.rdb.Close()
}

func tableKey(dbName, tableName string) string {
	return fmt.Sprintf("hive:table:%s.%s", dbName, tableName)
}

// Get returns the cached table, or (nil, false) on a miss. Cache failures
// count as misses; the store is the source of truth.
func (c *TableCache) Get(ctx context.Context, dbName, tableName string) (*catalog.Table, bool) {
	data, err := c.rdb.Get(ctx, tableKey(dbName, tableName)).Bytes()
	if err != nil {
		return nil, false
	}

	var tbl catalog.Table
	if err := json.Unmarshal(data, &tbl); err != nil {
		return nil, false
	}
	return &tbl, true
}

// Set stores the table under its qualified name with the configured TTL.
func (c *TableCache) Set(ctx context.Context, tbl *catalog.Table) error {
	data, err := json.Marshal(tbl)
	if err != nil {
		return fmt.Errorf("failed to encode table for cache: %w", err)
	}
	return c.rdb.Set(ctx, tableKey(tbl.DBName, tbl.Name), data, c.ttl).Err()
}

// Invalidate drops the cache entry for a table.
func (c *TableCache) Invalidate(ctx context.Context, dbName, tableName string) error {
	return c.rdb.Del(ctx, tableKey(dbName, tableName)).Err()
}
