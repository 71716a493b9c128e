// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages. This enables better error categorization, logging,
// and user experience by providing context-aware error information.
//
// The package supports wrapping underlying errors while maintaining error kind information,
// making it easier to handle different types of failures appropriately.
package errors

import "fmt"

// Kind is a machine-readable error category.
type Kind string

const (
	// TransportFailed indicates the WebSocket could not be established or broke.
	TransportFailed Kind = "transport_failed"
	// HandshakeFailed indicates the hello exchange was rejected.
	HandshakeFailed Kind = "handshake_failed"
	// QueryFailed indicates a server-reported statement failure; the
	// connection remains usable.
	QueryFailed Kind = "query_failed"
	// ProtocolMismatch indicates a reply whose shape did not match the
	// request awaiting it.
	ProtocolMismatch Kind = "protocol_mismatch"
	// ConnectionClosed indicates the connection went away while a request
	// was still pending.
	ConnectionClosed Kind = "connection_closed"
	// TokenMissing indicates no auth token could be resolved for a database.
	TokenMissing Kind = "token_missing"
	// ConfigInvalid indicates unusable local configuration.
	ConfigInvalid Kind = "config_invalid"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// HasKind reports whether err or anything it wraps carries the given kind.
func HasKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*E); ok && e.Kind == kind {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
