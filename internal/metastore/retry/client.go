// Package retry wraps a metastore.Client with cross-cutting resilience:
// bounded retry on transient failures, periodic forced reconnection,
// credential refresh before every attempt, and per-method call timing.
// Callers see exactly the metastore.Client surface; a retried call is
// indistinguishable from a first-attempt success except by latency and log
// output.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/jbjoujoute/hive/internal/core/catalog"
	"github.com/jbjoujoute/hive/internal/metastore"
	"github.com/jbjoujoute/hive/internal/metastore/auth"
	"github.com/jbjoujoute/hive/internal/metrics"
)

// Config holds the retry behavior. Immutable after construction.
type Config struct {
	// RetryLimit is the maximum number of retry attempts after the first.
	RetryLimit int

	// RetryDelay is the fixed wait between attempts. No backoff, no jitter.
	RetryDelay time.Duration

	// ConnectionLifetime forces a reconnect once the connection is older
	// than this. Zero or negative disables age-based reconnects.
	ConnectionLifetime time.Duration
}

// Client wraps a base metastore.Client with the retry loop. The base client
// is invoked concurrently by however many goroutines call the wrapper; the
// wrapper adds no locking around the invocation itself.
type Client struct {
	base       metastore.Client
	cfg        Config
	classifier *Classifier
	identity   auth.Identity
	timings    *Timings
	life       *lifetime
	log        *slog.Logger
}

var _ metastore.Client = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithTimings records cumulative per-method invocation time into t. The
// table may be shared with other clients for cross-instance aggregation.
func WithTimings(t *Timings) Option {
	return func(c *Client) { c.timings = t }
}

// WithIdentity sets the identity refreshed before every attempt.
func WithIdentity(id auth.Identity) Option {
	return func(c *Client) { c.identity = id }
}

// WithClassifier overrides the failure classifier.
func WithClassifier(cl *Classifier) Option {
	return func(c *Client) { c.classifier = cl }
}

// WithLogger sets the logger for retry warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New wraps base with the configured retry behavior.
func New(base metastore.Client, cfg Config, opts ...Option) *Client {
	c := &Client{
		base:       base,
		cfg:        cfg,
		classifier: NewClassifier(),
		identity:   auth.Disabled{},
		life:       newLifetime(cfg.ConnectionLifetime, base.IsLocal()),
		log:        slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// call drives one logical invocation: credential refresh, forced reconnect,
// the attempt itself, failure classification, and the bounded sleep-and-retry
// loop. Whatever error it returns is the base client's own, never wrapped, so
// callers keep matching on the base client's error taxonomy.
func (c *Client) call(ctx context.Context, method, params string, fn func(context.Context) error) error {
	pol := policyFor(method)
	sig := method + "_(" + params + ")"
	attempts := 0

	for {
		if err := c.relogin(ctx); err != nil {
			return err
		}

		err := c.attempt(ctx, method, sig, pol, attempts, fn)
		if err == nil {
			return nil
		}
		if !c.classifier.Retryable(err) {
			return err
		}
		if attempts >= c.cfg.RetryLimit || c.base.IsLocal() || !pol.AllowRetry {
			return err
		}

		attempts++
		c.log.Warn("metastore call failed, retrying",
			"method", method,
			"attempt", attempts,
			"limit", c.cfg.RetryLimit,
			"delay", c.cfg.RetryDelay,
			"error", err)
		metrics.ClientRetries.WithLabelValues(method).Inc()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.RetryDelay):
		}
	}
}

// attempt runs a single try. A reconnect is forced on every attempt after the
// first and, for aging connections, on the first one too; its failure feeds
// the same classification path as the call itself. Timing covers only the
// invocation, not reconnect or credential refresh, and only successful ones.
func (c *Client) attempt(ctx context.Context, method, sig string, pol MethodPolicy, attempts int, fn func(context.Context) error) error {
	if pol.AllowReconnect && (attempts > 0 || c.life.aged(time.Now())) {
		if err := c.base.Reconnect(); err != nil {
			return err
		}
		c.life.record(time.Now())
		metrics.ClientReconnects.Inc()
	}

	start := time.Now()
	err := fn(ctx)
	if err != nil {
		return err
	}

	elapsed := time.Since(start)
	metrics.CallLatency.WithLabelValues(method).Observe(elapsed.Seconds())
	if c.timings != nil {
		c.timings.Add(sig, elapsed)
	}
	return nil
}

// relogin refreshes an expiring long-lived credential before an attempt.
// No-op unless token auth is active and the identity can self-refresh. A
// failed refresh is fatal: it short-circuits the call without retrying.
func (c *Client) relogin(ctx context.Context) error {
	if !c.identity.TokenAuthEnabled() {
		return nil
	}
	if !c.identity.FromLongLivedCredential() {
		return nil
	}
	return c.identity.RefreshIfNearExpiry(ctx)
}

func (c *Client) GetDatabase(ctx context.Context, name string) (*catalog.Database, error) {
	var db *catalog.Database
	err := c.call(ctx, "GetDatabase", "string", func(ctx context.Context) error {
		var err error
		db, err = c.base.GetDatabase(ctx, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func (c *Client) GetAllDatabases(ctx context.Context) ([]string, error) {
	var names []string
	err := c.call(ctx, "GetAllDatabases", "", func(ctx context.Context) error {
		var err error
		names, err = c.base.GetAllDatabases(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (c *Client) CreateDatabase(ctx context.Context, db *catalog.Database) error {
	return c.call(ctx, "CreateDatabase", "Database", func(ctx context.Context) error {
		return c.base.CreateDatabase(ctx, db)
	})
}

func (c *Client) DropDatabase(ctx context.Context, name string) error {
	return c.call(ctx, "DropDatabase", "string", func(ctx context.Context) error {
		return c.base.DropDatabase(ctx, name)
	})
}

func (c *Client) GetTable(ctx context.Context, dbName, tableName string) (*catalog.Table, error) {
	var tbl *catalog.Table
	err := c.call(ctx, "GetTable", "string, string", func(ctx context.Context) error {
		var err error
		tbl, err = c.base.GetTable(ctx, dbName, tableName)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tbl, nil
}

func (c *Client) GetTables(ctx context.Context, dbName, pattern string) ([]string, error) {
	var names []string
	err := c.call(ctx, "GetTables", "string, string", func(ctx context.Context) error {
		var err error
		names, err = c.base.GetTables(ctx, dbName, pattern)
		return err
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (c *Client) CreateTable(ctx context.Context, tbl *catalog.Table) error {
	return c.call(ctx, "CreateTable", "Table", func(ctx context.Context) error {
		return c.base.CreateTable(ctx, tbl)
	})
}

func (c *Client) AlterTable(ctx context.Context, dbName, tableName string, tbl *catalog.Table) error {
	return c.call(ctx, "AlterTable", "string, string, Table", func(ctx context.Context) error {
		return c.base.AlterTable(ctx, dbName, tableName, tbl)
	})
}

func (c *Client) DropTable(ctx context.Context, dbName, tableName string) error {
	return c.call(ctx, "DropTable", "string, string", func(ctx context.Context) error {
		return c.base.DropTable(ctx, dbName, tableName)
	})
}

func (c *Client) AddPartition(ctx context.Context, part *catalog.Partition) error {
	return c.call(ctx, "AddPartition", "Partition", func(ctx context.Context) error {
		return c.base.AddPartition(ctx, part)
	})
}

func (c *Client) GetPartition(ctx context.Context, dbName, tableName string, values []string) (*catalog.Partition, error) {
	var part *catalog.Partition
	err := c.call(ctx, "GetPartition", "string, string, []string", func(ctx context.Context) error {
		var err error
		part, err = c.base.GetPartition(ctx, dbName, tableName, values)
		return err
	})
	if err != nil {
		return nil, err
	}
	return part, nil
}

func (c *Client) DropPartition(ctx context.Context, dbName, tableName string, values []string) error {
	return c.call(ctx, "DropPartition", "string, string, []string", func(ctx context.Context) error {
		return c.base.DropPartition(ctx, dbName, tableName, values)
	})
}

// Reconnect forwards to the base client and restarts the connection age
// clock. Callers asking for an explicit reconnect get exactly one, with no
// retry loop around it.
func (c *Client) Reconnect() error {
	if err := c.base.Reconnect(); err != nil {
		return err
	}
	c.life.record(time.Now())
	return nil
}

func (c *Client) IsLocal() bool { return c.base.IsLocal() }

// Close tears down the base client. Never preceded by a reconnect, never
// retried.
func (c *Client) Close() error {
	return c.call(context.Background(), "Close", "", func(context.Context) error {
		return c.base.Close()
	})
}
