// Copyright (c) 2026 sqldsh
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package turso reads the Turso CLI's local settings cache. The Turso CLI
// keeps a settings.json under the platform config directory with the
// account's database names, hostnames and short-lived database tokens;
// sqldsh piggybacks on that cache for database discovery and token
// resolution instead of talking to the platform API itself.
package turso

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const appIdentifier = "turso"

// Settings mirrors the subset of the Turso CLI settings file sqldsh needs.
type Settings struct {
	Username string `json:"username"`
	Cache    Cache  `json:"cache"`
}

// Cache holds the Turso CLI's cached database metadata.
type Cache struct {
	DatabaseNames *DatabaseNames           `json:"database_names"`
	DatabaseToken map[string]DatabaseToken `json:"database_token"`
}

// DatabaseToken is a cached per-database auth token with its expiration
// (unix seconds).
type DatabaseToken struct {
	Expiration int64  `json:"expiration"`
	Data       string `json:"data"`
}

// Expired reports whether the token is past its expiration at time now.
func (t DatabaseToken) Expired(now time.Time) bool {
	return t.Expiration > 0 && now.Unix() >= t.Expiration
}

// DatabaseNames wraps the cached list of databases.
type DatabaseNames struct {
	Data []Database `json:"data"`
}

// Database is one cached database entry. The Turso CLI has written these
// keys with varying capitalization over time; json matching is
// case-insensitive so dbid/dbId and Name/Hostname all load.
type Database struct {
	DBID     string `json:"dbid"`
	Name     string `json:"name"`
	Hostname string `json:"hostname"`
}

// Load reads the Turso CLI settings file from the platform config dir.
func Load() (*Settings, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(filepath.Join(base, appIdentifier, "settings.json"))
}

// LoadFrom reads a settings file from an explicit path.
func LoadFrom(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("no Turso config found: %w", err)
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &s, nil
}

// Databases returns the cached database list, or an error telling the user
// how to populate the cache.
func (s *Settings) Databases() ([]Database, error) {
	if s.Cache.DatabaseNames == nil || len(s.Cache.DatabaseNames.Data) == 0 {
		return nil, fmt.Errorf("no cached database names, please run `turso db list`")
	}
	return s.Cache.DatabaseNames.Data, nil
}

// Lookup finds a cached database by name.
func (s *Settings) Lookup(name string) (Database, bool) {
	if s.Cache.DatabaseNames == nil {
		return Database{}, false
	}
	for _, db := range s.Cache.DatabaseNames.Data {
		if db.Name == name {
			return db, true
		}
	}
	return Database{}, false
}

// Token returns the cached, unexpired token for a database name. The
// second return is false when there is no token or it has expired.
func (s *Settings) Token(name string, now time.Time) (string, bool) {
	tok, ok := s.Cache.DatabaseToken[name]
	if !ok || tok.Data == "" || tok.Expired(now) {
		return "", false
	}
	return tok.Data, true
}
