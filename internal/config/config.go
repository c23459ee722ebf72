// Package config provides configuration management for the beacon agent.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"beaconagent/internal/logger"
	"beaconagent/internal/pipe"
)

// DefaultPath is where the agent looks for its configuration when no
// --config flag is given. A missing file at this path is not an error;
// defaults apply.
const DefaultPath = "conf/beaconagent.json"

// Config is the root configuration structure.
type Config struct {
	Pipe    pipe.Config   `json:"Pipe"`
	Logging logger.Config `json:"Logging"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Pipe:    pipe.Config{},
		Logging: logger.DefaultConfig(),
	}
}

// Load reads the configuration file at path. When required is false a
// missing file yields the defaults; a present but unreadable or invalid
// file is always an error.
func Load(path string, required bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}
