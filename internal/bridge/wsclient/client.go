// Copyright (c) 2026 sqldsh
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package wsclient implements the WebSocket-backed Bridge over the Hrana 3
// protocol. One physical connection carries many concurrent logical
// requests: every outbound request registers a slot in a pending table
// keyed by request id, and a single read-loop goroutine matches inbound
// replies back to whichever caller is waiting, regardless of arrival order.
//
// The package manages connection lifecycle, the authentication handshake,
// stream opening, statement execution and WebSocket ping/pong latency
// probes.
package wsclient

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	cerrors "sqldsh/cli/internal/errors"
	"sqldsh/cli/internal/hrana"
	"sqldsh/cli/internal/logging"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// subprotocol negotiated during the WebSocket handshake.
	subprotocol = "hrana3"

	dialTimeout  = 10 * time.Second
	controlWait  = 10 * time.Second
	closeMessage = "client shutting down"
)

// Client implements bridge.Bridge over a single persistent WebSocket.
// The zero value is usable: call Connect first.
type Client struct {
	conn *websocket.Conn
	log  *logrus.Entry

	// writeMu serializes the outbound half of the connection; concurrent
	// callers must not interleave partial writes.
	writeMu sync.Mutex

	// requestID is seeded at 1 so the first generated id is 2. Id 1 belongs
	// to the handshake; negative ids belong to latency probes.
	requestID atomic.Int32
	probeID   atomic.Int32

	pending *pendingTable

	closeOnce sync.Once
	closeErr  error
}

// Connect dials the endpoint with the hrana3 subprotocol, starts the read
// loop and runs the authentication handshake. On any failure the connection
// is torn down and the client is unusable.
func (c *Client) Connect(ctx context.Context, endpoint string, token string) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: dialTimeout,
		Subprotocols:     []string{subprotocol},
	}
	conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return cerrors.Wrap(cerrors.TransportFailed, "dial "+endpoint, err)
	}

	c.conn = conn
	c.log = logging.GetLogger("wsclient")
	c.pending = newPendingTable()
	c.requestID.Store(1)
	conn.SetPongHandler(c.handlePong)

	go c.readLoop()

	if err := c.handshake(ctx, token); err != nil {
		_ = c.Close(context.Background())
		return err
	}
	return nil
}

// handshake sends the hello message under the fixed handshake id and waits
// for the server's verdict. Anything but hello_ok is fatal.
func (c *Client) handshake(ctx context.Context, token string) error {
	ch := c.pending.insert(hrana.HelloRequestID)
	if err := c.writeJSON(hrana.NewHelloMsg(token)); err != nil {
		c.pending.remove(hrana.HelloRequestID)
		return cerrors.Wrap(cerrors.TransportFailed, "send hello", err)
	}
	resp, err := c.await(ctx, hrana.HelloRequestID, ch)
	if err != nil {
		return cerrors.Wrap(cerrors.HandshakeFailed, "awaiting hello reply", err)
	}
	switch r := resp.(type) {
	case hrana.HelloOK:
		return nil
	case hrana.ProtoError:
		return cerrors.Wrap(cerrors.HandshakeFailed, "server rejected hello", r)
	default:
		return cerrors.New(cerrors.HandshakeFailed, fmt.Sprintf("unexpected %T reply to hello", resp))
	}
}

// OpenStream opens the server-side execution context identified by
// streamID. It must succeed before statements target that stream.
func (c *Client) OpenStream(ctx context.Context, streamID int32) error {
	id := c.nextRequestID()
	resp, err := c.call(ctx, id, hrana.NewOpenStreamMsg(id, streamID))
	if err != nil {
		return err
	}
	switch r := resp.(type) {
	case hrana.StreamOpened:
		return nil
	case hrana.ProtoError:
		return cerrors.Wrap(cerrors.QueryFailed, "open stream", r)
	default:
		return cerrors.New(cerrors.ProtocolMismatch, fmt.Sprintf("unexpected %T reply to open_stream", resp))
	}
}

// Execute runs sql on an already open stream and returns the statement
// result. Server-reported failures come back as QueryFailed errors; the
// connection remains usable after them.
func (c *Client) Execute(ctx context.Context, streamID int32, sql string) (hrana.StmtResult, error) {
	id := c.nextRequestID()
	resp, err := c.call(ctx, id, hrana.NewExecuteMsg(id, streamID, sql))
	if err != nil {
		return hrana.StmtResult{}, err
	}
	switch r := resp.(type) {
	case hrana.ExecuteResult:
		return r.Result, nil
	case hrana.ProtoError:
		return hrana.StmtResult{}, cerrors.Wrap(cerrors.QueryFailed, "execute", r)
	default:
		return hrana.StmtResult{}, cerrors.New(cerrors.ProtocolMismatch, fmt.Sprintf("unexpected %T reply to execute", resp))
	}
}

// Ping measures round-trip latency with a WebSocket ping control frame.
// Each probe gets its own id, counting down from -1, carried in the ping
// payload so the echoed pong can be matched even when several probes are in
// flight.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	id := -c.probeID.Add(1)
	ch := c.pending.insert(id)

	payload := []byte(strconv.FormatInt(int64(id), 10))
	c.writeMu.Lock()
	err := c.conn.WriteControl(websocket.PingMessage, payload, time.Now().Add(controlWait))
	c.writeMu.Unlock()
	if err != nil {
		c.pending.remove(id)
		return 0, cerrors.Wrap(cerrors.TransportFailed, "send ping", err)
	}

	start := time.Now()
	resp, err := c.await(ctx, id, ch)
	if err != nil {
		return 0, err
	}
	if _, ok := resp.(hrana.Pong); !ok {
		return 0, cerrors.New(cerrors.ProtocolMismatch, fmt.Sprintf("unexpected %T reply to ping", resp))
	}
	return time.Since(start), nil
}

// Close shuts the connection down. Outstanding requests are failed by the
// read loop as it exits.
func (c *Client) Close(ctx context.Context) error {
	if c.conn == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		deadline := time.Now().Add(controlWait)
		if t, ok := ctx.Deadline(); ok {
			deadline = t
		}
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, closeMessage), deadline)
		c.writeMu.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// nextRequestID allocates a fresh correlation id. Ids are monotonically
// increasing from 2; 1 and all negative ids are reserved.
func (c *Client) nextRequestID() int32 {
	return c.requestID.Add(1)
}

// call registers a delivery slot, writes the request and waits for its
// reply. The slot is inserted before the write so a fast reply can never
// race past its caller.
func (c *Client) call(ctx context.Context, id int32, msg hrana.RequestMsg) (hrana.Response, error) {
	ch := c.pending.insert(id)
	if err := c.writeJSON(msg); err != nil {
		c.pending.remove(id)
		return nil, cerrors.Wrap(cerrors.TransportFailed, "write request", err)
	}
	return c.await(ctx, id, ch)
}

// await blocks until the slot resolves or ctx is done. On cancellation the
// slot is abandoned; a late reply for it is silently dropped by the read
// loop.
func (c *Client) await(ctx context.Context, id int32, ch chan outcome) (hrana.Response, error) {
	select {
	case out := <-ch:
		return out.resp, out.err
	case <-ctx.Done():
		c.pending.remove(id)
		return nil, ctx.Err()
	}
}

func (c *Client) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// readLoop is the sole reader of the inbound half. It classifies each text
// frame and resolves the matching pending slot. Decode failures drop the
// frame; replies without a pending slot are orphaned and ignored. When the
// loop exits, every remaining slot is failed so no caller waits forever.
func (c *Client) readLoop() {
	defer func() {
		closed := cerrors.New(cerrors.ConnectionClosed, "connection closed with request in flight")
		if n := c.pending.drain(closed); n > 0 {
			c.log.WithField("pending", n).Debug("failed outstanding requests on close")
		}
	}()

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.WithError(err).Debug("read loop terminated")
			}
			return
		}
		if msgType != websocket.TextMessage {
			c.log.WithField("frame_type", msgType).Debug("ignoring non-text frame")
			continue
		}

		msg, err := hrana.DecodeServerMsg(data)
		if err != nil {
			c.log.WithError(err).Warn("dropping undecodable frame")
			continue
		}

		id := msg.CorrelationID()
		ch, ok := c.pending.remove(id)
		if !ok {
			// Duplicate or late reply, or the caller gave up waiting.
			c.log.WithField("request_id", id).Debug("dropping orphaned reply")
			continue
		}

		resp, err := msg.Classify()
		if err != nil {
			ch <- outcome{err: cerrors.Wrap(cerrors.ProtocolMismatch, "malformed response payload", err)}
			continue
		}
		if u, isUnknown := resp.(hrana.Unrecognized); isUnknown {
			c.log.WithFields(logrus.Fields{"request_id": id, "tag": u.Type}).Warn("unrecognized reply tag")
			continue
		}
		ch <- outcome{resp: resp}
	}
}

// handlePong resolves latency probes. The pong payload normally echoes the
// probe id from the ping; servers that echo nothing resolve the oldest
// outstanding probe instead.
func (c *Client) handlePong(appData string) error {
	var (
		ch chan outcome
		ok bool
	)
	if id, err := strconv.ParseInt(appData, 10, 32); err == nil {
		ch, ok = c.pending.remove(int32(id))
	} else {
		ch, ok = c.pending.removeOldestProbe()
	}
	if !ok {
		c.log.Debug("dropping pong with no outstanding probe")
		return nil
	}
	ch <- outcome{resp: hrana.Pong{}}
	return nil
}
