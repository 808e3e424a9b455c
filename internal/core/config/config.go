package config

import (
	"time"

	redisclient "github.com/jbjoujoute/hive/internal/infra/redis"
	"github.com/jbjoujoute/hive/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Client   ClientConfig       `yaml:"client"`
	Cache    redisclient.Config `yaml:"cache"`
	Logging  LoggingConfig      `yaml:"logging"`
	Database postgres.Config    `yaml:"database"`
}

// ServerConfig holds the gRPC and ops HTTP listener settings.
type ServerConfig struct {
	Port    int `yaml:"port"`
	OpsPort int `yaml:"ops_port"`

	// PruneInterval drives partition retention pruning. 0 disables it.
	PruneInterval time.Duration `yaml:"prune_interval"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// ClientConfig holds the metastore client settings. An empty URI selects the
// embedded local metastore.
type ClientConfig struct {
	URI                string        `yaml:"uri"`
	DialTimeout        time.Duration `yaml:"dial_timeout"`
	RetryLimit         int           `yaml:"retry_limit"`
	RetryDelay         time.Duration `yaml:"retry_delay"`
	ConnectionLifetime time.Duration `yaml:"connection_lifetime"` // 0 = no forced reconnect
	Auth               AuthConfig    `yaml:"auth"`
}

// AuthConfig holds the token credential settings. An empty token file
// disables token auth.
type AuthConfig struct {
	TokenFile     string        `yaml:"token_file"`
	RefreshWindow time.Duration `yaml:"refresh_window"`
}
