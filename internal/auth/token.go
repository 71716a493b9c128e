// Copyright (c) 2026 sqldsh
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package auth resolves the auth token used to handshake with a database.
// Tokens can come from several places; resolution follows a fixed
// precedence so explicit choices always beat cached state:
//
//  1. an explicit --token flag
//  2. the SQLDSH_TOKEN or LIBSQL_TOKEN environment variable
//  3. the OS keychain (saved by a previous successful connect)
//  4. the Turso CLI's token cache, skipping expired entries
//
// Successful connects may persist the resolved token to the keychain so
// later sessions skip the slower sources.
package auth

import (
	"os"
	"strings"
	"time"

	cerrors "sqldsh/cli/internal/errors"
	"sqldsh/cli/internal/keychain"
	"sqldsh/cli/internal/turso"
)

// Source says where a resolved token came from, for display.
type Source string

const (
	SourceFlag     Source = "flag"
	SourceEnv      Source = "environment"
	SourceKeychain Source = "keychain"
	SourceTurso    Source = "turso cache"
)

// EnvVars checked for a token, in order.
var EnvVars = []string{"SQLDSH_TOKEN", "LIBSQL_TOKEN"}

// ResolveToken finds an auth token for database following the package
// precedence. settings may be nil when no Turso config exists.
func ResolveToken(database, flagToken string, settings *turso.Settings) (string, Source, error) {
	if t := strings.TrimSpace(flagToken); t != "" {
		return t, SourceFlag, nil
	}

	for _, name := range EnvVars {
		if t := strings.TrimSpace(os.Getenv(name)); t != "" {
			return t, SourceEnv, nil
		}
	}

	if database != "" {
		if km, err := keychain.GetManager(); err == nil {
			if t, err := km.LoadDatabaseToken(database); err == nil && strings.TrimSpace(t) != "" {
				return strings.TrimSpace(t), SourceKeychain, nil
			}
		}

		if settings != nil {
			if t, ok := settings.Token(database, time.Now()); ok {
				return t, SourceTurso, nil
			}
		}
	}

	return "", "", cerrors.New(cerrors.TokenMissing,
		"no auth token found; pass --token, set "+EnvVars[0]+", or run `turso db tokens create "+database+"`")
}

// SaveToken persists a token for a database in the OS keychain. Failures
// are returned but are safe to ignore; the token still works for the
// current session.
func SaveToken(database, token string) error {
	km, err := keychain.GetManager()
	if err != nil {
		return err
	}
	return km.SaveDatabaseToken(database, token)
}

// DeleteToken removes a database's saved token from the OS keychain.
func DeleteToken(database string) error {
	km, err := keychain.GetManager()
	if err != nil {
		return err
	}
	return km.DeleteDatabaseToken(database)
}
