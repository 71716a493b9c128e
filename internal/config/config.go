// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; auth tokens go to the OS keychain.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"sqldsh/cli/internal/xdg"
)

// Config holds non-sensitive CLI settings.
type Config struct {
	LogLevel string `json:"log_level"`
	// DefaultDatabase is the database name used when a command is run
	// without one. Empty means prompt interactively.
	DefaultDatabase string `json:"default_database"`
	// DefaultEndpoint is a full endpoint URL overriding database lookup.
	DefaultEndpoint string `json:"default_endpoint"`
	// PingIntervalMs controls the shell's background latency probe.
	PingIntervalMs int `json:"ping_interval_ms"`
}

// path returns the path to the config file.
func path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration; missing file returns defaults.
func Load() (Config, error) {
	var c Config
	p, err := path()
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaults(), nil
		}
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, err
	}
	if c.PingIntervalMs <= 0 {
		c.PingIntervalMs = defaults().PingIntervalMs
	}
	return c, nil
}

func defaults() Config {
	return Config{
		LogLevel:       "info",
		PingIntervalMs: 1000,
	}
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o600)
}
