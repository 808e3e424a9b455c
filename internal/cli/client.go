package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jbjoujoute/hive/internal/core/config"
	"github.com/jbjoujoute/hive/internal/infra/rpc"
	"github.com/jbjoujoute/hive/internal/infra/storage/postgres"
	"github.com/jbjoujoute/hive/internal/metastore"
	"github.com/jbjoujoute/hive/internal/metastore/auth"
	"github.com/jbjoujoute/hive/internal/metastore/retry"
	"github.com/jbjoujoute/hive/internal/server"
)

var databasesCmd = &cobra.Command{
	Use:   "databases",
	Short: "List the databases in the catalog",
	Run:   runDatabases,
}

var tablesCmd = &cobra.Command{
	Use:   "tables [database]",
	Short: "List the tables of a database",
	Args:  cobra.ExactArgs(1),
	Run:   runTables,
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the metastore answers",
	Run:   runPing,
}

func init() {
	rootCmd.AddCommand(databasesCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(pingCmd)
}

// buildClient constructs the metastore client from configuration. An empty
// client URI selects the embedded local metastore over the configured
// database; anything else dials the remote service. Either way the result is
// wrapped in the retrying client.
func buildClient(ctx context.Context, cfg *config.AppConfig) (metastore.Client, error) {
	var identity auth.Identity = auth.Disabled{}

	var base metastore.Client
	if cfg.Client.URI == "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		store := postgres.NewCatalog(db)
		base = server.NewLocalClient(server.New(store, nil, slog.Default()))
	} else {
		rpcCfg := rpc.Config{
			URI:         cfg.Client.URI,
			DialTimeout: cfg.Client.DialTimeout,
		}
		if cfg.Client.Auth.TokenFile != "" {
			tf, err := auth.NewTokenFile(cfg.Client.Auth.TokenFile, cfg.Client.Auth.RefreshWindow)
			if err != nil {
				return nil, fmt.Errorf("failed to load token file: %w", err)
			}
			identity = tf
			rpcCfg.Creds = tf
		}
		remote, err := rpc.Dial(ctx, rpcCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to metastore: %w", err)
		}
		base = remote
	}

	return retry.New(base, retry.Config{
		RetryLimit:         cfg.Client.RetryLimit,
		RetryDelay:         cfg.Client.RetryDelay,
		ConnectionLifetime: cfg.Client.ConnectionLifetime,
	}, retry.WithIdentity(identity)), nil
}

func runDatabases(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	ctx := context.Background()

	client, err := buildClient(ctx, cfg)
	if err != nil {
		slog.Error("Failed to build client", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = client.Close()
	}()

	names, err := client.GetAllDatabases(ctx)
	if err != nil {
		slog.Error("Failed to list databases", "error", err)
		os.Exit(1)
	}

	for _, name := range names {
		fmt.Println(name)
	}
}

func runTables(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	ctx := context.Background()

	client, err := buildClient(ctx, cfg)
	if err != nil {
		slog.Error("Failed to build client", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = client.Close()
	}()

	names, err := client.GetTables(ctx, args[0], "*")
	if err != nil {
		slog.Error("Failed to list tables", "database", args[0], "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATABASE\tTABLE")
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", args[0], name)
	}
	_ = w.Flush()
}

func runPing(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	ctx := context.Background()

	client, err := buildClient(ctx, cfg)
	if err != nil {
		slog.Error("Failed to build client", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = client.Close()
	}()

	if _, err := client.GetAllDatabases(ctx); err != nil {
		slog.Error("Metastore is not answering", "error", err)
		os.Exit(1)
	}

	target := cfg.Client.URI
	if target == "" {
		target = "local"
	}
	fmt.Printf("Metastore %s is up\n", target)
}
