// Copyright (c) 2026 sqldsh
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"

	"sqldsh/cli/internal/auth"
	"sqldsh/cli/internal/config"
	"sqldsh/cli/internal/endpoint"
	"sqldsh/cli/internal/turso"

	"github.com/pterm/pterm"
)

// target is a fully resolved connection destination: where to dial and
// which token to handshake with.
type target struct {
	Database    string // empty when connecting to an explicit URL
	Endpoint    string // normalized ws(s):// URL
	Token       string
	TokenSource auth.Source
}

// resolveTarget turns command-line inputs into a dialable target.
//
// The endpoint comes from --url when given, otherwise from the named
// database's hostname in the Turso CLI cache, falling back to the
// configured default database and finally to an interactive picker.
// The token follows auth.ResolveToken precedence.
func resolveTarget(dbArg, flagURL, flagToken string) (*target, error) {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.Config{}
	}

	// Turso settings are optional when an explicit URL is given.
	settings, settingsErr := turso.Load()

	t := &target{Database: dbArg}

	switch {
	case flagURL != "":
		normalized, err := endpoint.Normalize(flagURL)
		if err != nil {
			return nil, err
		}
		t.Endpoint = normalized

	case dbArg == "" && cfg.DefaultDatabase == "" && cfg.DefaultEndpoint != "":
		normalized, err := endpoint.Normalize(cfg.DefaultEndpoint)
		if err != nil {
			return nil, err
		}
		t.Endpoint = normalized

	default:
		if settingsErr != nil {
			return nil, errors.New("no database given and no Turso config found; pass --url, or install the Turso CLI and run `turso db list`")
		}
		if t.Database == "" {
			t.Database = cfg.DefaultDatabase
		}
		if t.Database == "" {
			name, err := pickDatabase(settings)
			if err != nil {
				return nil, err
			}
			t.Database = name
		}
		db, ok := settings.Lookup(t.Database)
		if !ok {
			return nil, errors.New("unknown database " + t.Database + "; run `turso db list` to refresh the cache")
		}
		normalized, err := endpoint.Normalize(db.Hostname)
		if err != nil {
			return nil, err
		}
		t.Endpoint = normalized
	}

	token, source, err := auth.ResolveToken(t.Database, flagToken, settings)
	if err != nil {
		return nil, err
	}
	t.Token = token
	t.TokenSource = source
	return t, nil
}

// pickDatabase presents an interactive picker over the cached database
// names.
func pickDatabase(settings *turso.Settings) (string, error) {
	dbs, err := settings.Databases()
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(dbs))
	for _, db := range dbs {
		names = append(names, db.Name)
	}
	return pterm.DefaultInteractiveSelect.
		WithOptions(names).
		WithDefaultText("Select database").
		Show()
}
