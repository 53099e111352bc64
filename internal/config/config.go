// Package config loads process-level configuration from a JSON or YAML
// file, applying defaults for anything left unset.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the process configuration.
type Config struct {
	Host        string            `json:"host" yaml:"host"`
	Port        int               `json:"port" yaml:"port"`
	Persistence PersistenceConfig `json:"persistence" yaml:"persistence"`
}

// PersistenceConfig gates and shapes the snapshot layer.
type PersistenceConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Directory receives the snapshot file or database.
	Directory string `json:"directory,omitempty" yaml:"directory,omitempty"`

	// Backend selects the snapshot encoding: "file" (snapshot.json) or
	// "sqlite" (snapshot.db).
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`

	// AutosaveThreshold is the number of writes between automatic
	// snapshots; -1 disables autosave.
	AutosaveThreshold int `json:"autosave_threshold,omitempty" yaml:"autosave_threshold,omitempty"`

	// Schedule optionally runs saves on a cron schedule (e.g. "@every 5m")
	// in addition to the write-counter autosave.
	Schedule string `json:"schedule,omitempty" yaml:"schedule,omitempty"`
}

// Default returns the configuration used when no file is provided.
func Default() Config {
	return Config{
		Host: "0.0.0.0",
		Port: 8080,
		Persistence: PersistenceConfig{
			Enabled:           false,
			Directory:         "./data",
			Backend:           "file",
			AutosaveThreshold: -1,
		},
	}
}

// Load reads the configuration file at path. The decoder is chosen by
// extension: .yaml/.yml use YAML, everything else JSON. An empty path
// yields the defaults. Omitted keys keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be in [1, 65535], got %d", c.Port)
	}
	switch c.Persistence.Backend {
	case "", "file", "sqlite":
	default:
		return fmt.Errorf("persistence.backend must be %q or %q, got %q", "file", "sqlite", c.Persistence.Backend)
	}
	if t := c.Persistence.AutosaveThreshold; t == 0 || t < -1 {
		return fmt.Errorf("persistence.autosave_threshold must be -1 (disabled) or positive, got %d", t)
	}
	if c.Persistence.Enabled && c.Persistence.Directory == "" {
		return fmt.Errorf("persistence.directory is required when persistence is enabled")
	}
	return nil
}

// Addr returns the host:port bind address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
