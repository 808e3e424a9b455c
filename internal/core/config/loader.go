package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9083
	}
	if cfg.Server.OpsPort == 0 {
		cfg.Server.OpsPort = 8080
	}
	if cfg.Client.DialTimeout == 0 {
		cfg.Client.DialTimeout = 10 * time.Second
	}
	if cfg.Client.RetryLimit == 0 {
		cfg.Client.RetryLimit = 1
	}
	if cfg.Client.RetryDelay == 0 {
		cfg.Client.RetryDelay = time.Second
	}

	return &cfg, nil
}
