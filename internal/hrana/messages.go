// Copyright (c) 2026 sqldsh
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package hrana defines the wire types for the Hrana 3 protocol as spoken by
// libsql/sqld servers over a WebSocket connection. It covers the client and
// server message envelopes, the request payloads for opening streams and
// executing statements, and the typed value model used in result rows.
//
// All messages travel as JSON text frames. Request/response pairing is done
// with integer request ids carried in the envelopes; the transport layer in
// internal/bridge/wsclient owns id allocation and correlation.
package hrana

import "encoding/json"

// Reserved request ids on the wire.
const (
	// HelloRequestID is the implicit id of the hello exchange. Servers have
	// been observed to omit request_id on hello_ok replies, so inbound
	// envelopes without an id are attributed to the handshake.
	HelloRequestID int32 = 1
)

// HelloMsg is the first message sent after the WebSocket is established.
// It authenticates the connection with a JWT.
type HelloMsg struct {
	Type string `json:"type"`
	JWT  string `json:"jwt"`
}

// NewHelloMsg builds a hello envelope for the given token.
func NewHelloMsg(jwt string) HelloMsg {
	return HelloMsg{Type: "hello", JWT: jwt}
}

// RequestMsg is the outbound envelope for all post-handshake requests.
type RequestMsg struct {
	Type      string  `json:"type"`
	RequestID int32   `json:"request_id"`
	Request   Request `json:"request"`
}

// Request is the inner payload of a RequestMsg, discriminated by Type.
// Exactly the fields relevant to the given type are populated.
type Request struct {
	Type     string `json:"type"`
	StreamID int32  `json:"stream_id"`
	Stmt     *Stmt  `json:"stmt,omitempty"`
}

// Stmt is a single SQL statement with optional positional and named
// arguments.
type Stmt struct {
	SQL       string     `json:"sql"`
	Args      []Value    `json:"args,omitempty"`
	NamedArgs []NamedArg `json:"named_args,omitempty"`
	WantRows  *bool      `json:"want_rows,omitempty"`
}

// NamedArg binds a value to a named statement parameter.
type NamedArg struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// NewOpenStreamMsg builds a request envelope that opens the server-side
// stream identified by streamID.
func NewOpenStreamMsg(requestID, streamID int32) RequestMsg {
	return RequestMsg{
		Type:      "request",
		RequestID: requestID,
		Request:   Request{Type: "open_stream", StreamID: streamID},
	}
}

// NewExecuteMsg builds a request envelope that executes sql on an already
// open stream. Rows are always requested.
func NewExecuteMsg(requestID, streamID int32, sql string) RequestMsg {
	wantRows := true
	return RequestMsg{
		Type:      "request",
		RequestID: requestID,
		Request: Request{
			Type:     "execute",
			StreamID: streamID,
			Stmt:     &Stmt{SQL: sql, WantRows: &wantRows},
		},
	}
}

// ServerMsg is the inbound envelope. Type discriminates between hello_ok,
// response_ok-style payloads (tagged by the originating request type inside
// Response) and response_error. RequestID is optional on the wire; see
// HelloRequestID.
type ServerMsg struct {
	Type      string          `json:"type"`
	RequestID *int32          `json:"request_id"`
	Response  json.RawMessage `json:"response"`
	Error     *ErrorBody      `json:"error"`
}

// ErrorBody carries the server-reported failure message.
type ErrorBody struct {
	Message string `json:"message"`
}

// Response is a decoded inbound reply, delivered to whichever caller is
// awaiting the envelope's request id.
type Response interface {
	responseType() string
}

// HelloOK acknowledges a successful handshake.
type HelloOK struct{}

// StreamOpened acknowledges an open_stream request.
type StreamOpened struct{}

// ExecuteResult carries the result of an execute request.
type ExecuteResult struct {
	Result StmtResult
}

// ProtoError is a server-reported request failure. It resolves exactly one
// pending request; the connection stays usable.
type ProtoError struct {
	Message string
}

// Pong resolves a latency probe.
type Pong struct{}

// Unrecognized is the fallback for inbound reply tags this client does not
// know. Decoding never fails on an unknown tag.
type Unrecognized struct {
	Type string
}

func (HelloOK) responseType() string       { return "hello_ok" }
func (StreamOpened) responseType() string  { return "open_stream" }
func (ExecuteResult) responseType() string { return "execute" }
func (ProtoError) responseType() string    { return "response_error" }
func (Pong) responseType() string          { return "pong" }
func (u Unrecognized) responseType() string { return u.Type }

func (e ProtoError) Error() string { return e.Message }

// DecodeServerMsg parses an inbound text frame into its envelope. The inner
// response payload is left raw; classify it with Classify once the request
// id has been matched.
func DecodeServerMsg(data []byte) (ServerMsg, error) {
	var msg ServerMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return ServerMsg{}, err
	}
	return msg, nil
}

// CorrelationID returns the request id this envelope answers, defaulting to
// the handshake id when the server omitted one.
func (m ServerMsg) CorrelationID() int32 {
	if m.RequestID == nil {
		return HelloRequestID
	}
	return *m.RequestID
}

// Classify turns a decoded envelope into a typed Response. Unknown reply
// tags yield Unrecognized rather than an error so that newer servers do not
// break older clients.
func (m ServerMsg) Classify() (Response, error) {
	switch m.Type {
	case "hello_ok":
		return HelloOK{}, nil
	case "hello_error", "response_error":
		if m.Error != nil {
			return ProtoError{Message: m.Error.Message}, nil
		}
		return ProtoError{Message: "server reported an error with no message"}, nil
	}
	// Servers have been seen tagging the payload either on the inner
	// response object or on the outer envelope; the inner tag wins when
	// both are present.
	tag := m.Type
	if len(m.Response) > 0 {
		var inner struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(m.Response, &inner); err != nil {
			return nil, err
		}
		if inner.Type != "" {
			tag = inner.Type
		}
	}
	switch tag {
	case "open_stream":
		return StreamOpened{}, nil
	case "execute":
		if len(m.Response) == 0 {
			return Unrecognized{Type: tag}, nil
		}
		var body struct {
			Result StmtResult `json:"result"`
		}
		if err := json.Unmarshal(m.Response, &body); err != nil {
			return nil, err
		}
		return ExecuteResult{Result: body.Result}, nil
	default:
		return Unrecognized{Type: tag}, nil
	}
}
