// Copyright (c) 2026 sqldsh
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package endpoint parses and normalizes database endpoints into WebSocket
// URLs. It accepts ws:// and wss:// URLs, libsql:// URLs (rewritten to
// wss://), and bare hostnames, and produces the URL the connection layer
// dials.
package endpoint

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseError represents an error that occurred during endpoint parsing.
type ParseError struct {
	Endpoint string
	Reason   string
	Hint     string
}

func (e *ParseError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("invalid endpoint: %s\nHint: %s", e.Reason, e.Hint)
	}
	return fmt.Sprintf("invalid endpoint: %s", e.Reason)
}

// NewParseError creates a new ParseError.
func NewParseError(endpoint, reason, hint string) *ParseError {
	return &ParseError{
		Endpoint: endpoint,
		Reason:   reason,
		Hint:     hint,
	}
}

// Normalize converts an endpoint string into a dialable WebSocket URL.
//
//	wss://host, ws://host  → unchanged
//	libsql://host          → wss://host
//	host                   → wss://host
func Normalize(endpoint string) (string, error) {
	s := strings.TrimSpace(endpoint)
	if s == "" {
		return "", NewParseError(endpoint, "empty endpoint", "provide a database URL or hostname")
	}

	switch {
	case hasScheme(s, "ws"), hasScheme(s, "wss"):
		// already a WebSocket URL
	case hasScheme(s, "libsql"):
		s = "wss://" + s[strings.Index(s, "://")+3:]
	case strings.Contains(s, "://"):
		scheme := s[:strings.Index(s, "://")]
		return "", NewParseError(endpoint, fmt.Sprintf("unsupported scheme %q", scheme),
			"use wss://, ws://, libsql://, or a bare hostname")
	default:
		s = "wss://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", NewParseError(endpoint, "not a valid URL", "check the hostname for typos")
	}
	if u.Host == "" {
		return "", NewParseError(endpoint, "missing host", "provide a database URL or hostname")
	}
	if u.User != nil {
		return "", NewParseError(endpoint, "credentials embedded in URL are not supported",
			"pass the auth token with --token or SQLDSH_TOKEN")
	}
	return u.String(), nil
}

func hasScheme(s, scheme string) bool {
	return strings.HasPrefix(strings.ToLower(s), scheme+"://")
}

// Host returns the host part of a normalized endpoint, for display.
func Host(normalized string) string {
	u, err := url.Parse(normalized)
	if err != nil {
		return normalized
	}
	return u.Host
}
