// Copyright (c) 2026 sqldsh
// Licensed under the MIT License. See LICENSE file in the project root for details.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", c.LogLevel)
	}
	if c.PingIntervalMs != 1000 {
		t.Errorf("PingIntervalMs = %d, want 1000", c.PingIntervalMs)
	}
	if c.DefaultDatabase != "" {
		t.Errorf("DefaultDatabase = %q, want empty", c.DefaultDatabase)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	in := Config{
		LogLevel:        "debug",
		DefaultDatabase: "orders",
		DefaultEndpoint: "wss://orders.turso.io",
		PingIntervalMs:  250,
	}
	if err := Save(in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	out, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if out != in {
		t.Errorf("Load() = %+v, want %+v", out, in)
	}
}

func TestSaveUsesPrivatePermissions(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if err := Save(Config{LogLevel: "info"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, "sqldsh", "config.json"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config file mode = %o, want 600", perm)
	}
}

func TestLoadRepairsPingInterval(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfgDir := filepath.Join(dir, "sqldsh")
	if err := os.MkdirAll(cfgDir, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.json"),
		[]byte(`{"log_level":"info","ping_interval_ms":-5}`), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.PingIntervalMs != 1000 {
		t.Errorf("PingIntervalMs = %d, want repaired default 1000", c.PingIntervalMs)
	}
}
