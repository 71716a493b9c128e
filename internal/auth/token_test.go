// Copyright (c) 2026 sqldsh
// Licensed under the MIT License. See LICENSE file in the project root for details.

package auth

import (
	"testing"
	"time"

	cerrors "sqldsh/cli/internal/errors"
	"sqldsh/cli/internal/turso"
)

func clearTokenEnv(t *testing.T) {
	t.Helper()
	for _, name := range EnvVars {
		t.Setenv(name, "")
	}
}

func cachedSettings(token string, expiration int64) *turso.Settings {
	return &turso.Settings{
		Cache: turso.Cache{
			DatabaseToken: map[string]turso.DatabaseToken{
				"orders": {Data: token, Expiration: expiration},
			},
		},
	}
}

func TestResolveTokenFlagWins(t *testing.T) {
	clearTokenEnv(t)
	t.Setenv("SQLDSH_TOKEN", "env-token")

	tok, src, err := ResolveToken("orders", "  flag-token  ", cachedSettings("cached", 0))
	if err != nil {
		t.Fatalf("ResolveToken() error = %v", err)
	}
	if tok != "flag-token" || src != SourceFlag {
		t.Errorf("ResolveToken() = %q from %q, want trimmed flag token", tok, src)
	}
}

func TestResolveTokenEnvBeatsCache(t *testing.T) {
	clearTokenEnv(t)
	t.Setenv("LIBSQL_TOKEN", "env-token")

	tok, src, err := ResolveToken("orders", "", cachedSettings("cached", 0))
	if err != nil {
		t.Fatalf("ResolveToken() error = %v", err)
	}
	if tok != "env-token" || src != SourceEnv {
		t.Errorf("ResolveToken() = %q from %q, want env token", tok, src)
	}
}

func TestResolveTokenEnvOrder(t *testing.T) {
	clearTokenEnv(t)
	t.Setenv("SQLDSH_TOKEN", "primary")
	t.Setenv("LIBSQL_TOKEN", "secondary")

	tok, _, err := ResolveToken("", "", nil)
	if err != nil {
		t.Fatalf("ResolveToken() error = %v", err)
	}
	if tok != "primary" {
		t.Errorf("ResolveToken() = %q, want SQLDSH_TOKEN to win", tok)
	}
}

func TestResolveTokenTursoCache(t *testing.T) {
	clearTokenEnv(t)

	tok, src, err := ResolveToken("orders", "", cachedSettings("cached-token", 0))
	if err != nil {
		t.Fatalf("ResolveToken() error = %v", err)
	}
	if tok != "cached-token" || src != SourceTurso {
		t.Errorf("ResolveToken() = %q from %q, want turso cache", tok, src)
	}
}

func TestResolveTokenSkipsExpiredCache(t *testing.T) {
	clearTokenEnv(t)

	expired := time.Now().Add(-time.Hour).Unix()
	_, _, err := ResolveToken("orders", "", cachedSettings("stale", expired))
	if !cerrors.HasKind(err, cerrors.TokenMissing) {
		t.Errorf("ResolveToken() error = %v, want token_missing", err)
	}
}

func TestResolveTokenNothingFound(t *testing.T) {
	clearTokenEnv(t)

	_, _, err := ResolveToken("orders", "", nil)
	if !cerrors.HasKind(err, cerrors.TokenMissing) {
		t.Fatalf("ResolveToken() error = %v, want token_missing", err)
	}
}
