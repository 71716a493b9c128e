// Copyright (c) 2026 sqldsh
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package bridge defines the interface between the CLI and a remote
// libsql/sqld server. It abstracts the transport so the shell and the
// subcommands are written against a stable call surface while the
// implementation (currently Hrana 3 over WebSocket) stays pluggable.
package bridge

import (
	"context"
	"time"

	"sqldsh/cli/internal/bridge/wsclient"
	"sqldsh/cli/internal/hrana"
)

// Bridge represents an authenticated connection to a remote database
// server. All operations are safe for concurrent use; replies are matched
// to callers by request id, so completion order is independent of issue
// order.
type Bridge interface {
	// Connect establishes the transport and runs the authentication
	// handshake. endpoint is a ws:// or wss:// URL; token is the bearer JWT.
	Connect(ctx context.Context, endpoint string, token string) error
	// OpenStream opens a server-side execution context. Must be called once
	// per streamID before statements target it.
	OpenStream(ctx context.Context, streamID int32) error
	// Execute runs one SQL statement on an open stream.
	Execute(ctx context.Context, streamID int32, sql string) (hrana.StmtResult, error)
	// Ping measures round-trip latency to the server.
	Ping(ctx context.Context) (time.Duration, error)
	Close(ctx context.Context) error
}

// New creates a new bridge instance.
// It returns a WebSocket client bridge.
func New() Bridge {
	return &wsclient.Client{}
}
