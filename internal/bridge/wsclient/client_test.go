// Copyright (c) 2026 sqldsh
// Licensed under the MIT License. See LICENSE file in the project root for details.

package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	cerrors "sqldsh/cli/internal/errors"
	"sqldsh/cli/internal/hrana"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{Subprotocols: []string{"hrana3"}}

// newTestServer runs handler against each WebSocket connection and returns
// the ws:// URL to dial. Handlers run on the server goroutine, so they
// report failures with t.Errorf, never t.Fatalf.
func newTestServer(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// wireRequest mirrors the outbound envelope shape for server-side asserts.
type wireRequest struct {
	Type      string `json:"type"`
	JWT       string `json:"jwt"`
	RequestID int32  `json:"request_id"`
	Request   struct {
		Type     string `json:"type"`
		StreamID int32  `json:"stream_id"`
		Stmt     *struct {
			SQL string `json:"sql"`
		} `json:"stmt"`
	} `json:"request"`
}

func readRequest(t *testing.T, conn *websocket.Conn) (wireRequest, bool) {
	var req wireRequest
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Errorf("server read: %v", err)
		return req, false
	}
	if err := json.Unmarshal(data, &req); err != nil {
		t.Errorf("server decode %s: %v", data, err)
		return req, false
	}
	return req, true
}

// acceptHello consumes the hello message and acknowledges it. The ack
// deliberately omits request_id, matching observed server behavior.
func acceptHello(t *testing.T, conn *websocket.Conn) bool {
	req, ok := readRequest(t, conn)
	if !ok {
		return false
	}
	if req.Type != "hello" {
		t.Errorf("first message type = %q, want hello", req.Type)
		return false
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"hello_ok"}`)); err != nil {
		t.Errorf("write hello_ok: %v", err)
		return false
	}
	return true
}

func executeReply(id int32, text string) []byte {
	return fmt.Appendf(nil,
		`{"type":"execute","request_id":%d,"response":{"result":{"cols":[{"name":"v"}],"rows":[[{"type":"text","value":%q}]],"affected_row_count":0,"rows_read":1,"rows_written":0,"query_duration_ms":0.1}}}`,
		id, text)
}

func connectClient(t *testing.T, url string) *Client {
	t.Helper()
	c := &Client{}
	if err := c.Connect(context.Background(), url, "test-jwt"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

// drainFrames keeps the server reading so control frames are processed
// until the peer goes away.
func drainFrames(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestConnectHandshake(t *testing.T) {
	sawJWT := make(chan string, 1)
	url := newTestServer(t, func(conn *websocket.Conn) {
		req, ok := readRequest(t, conn)
		if !ok {
			return
		}
		sawJWT <- req.JWT
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"hello_ok"}`))
		drainFrames(conn)
	})

	connectClient(t, url)
	if got := <-sawJWT; got != "test-jwt" {
		t.Errorf("hello carried jwt %q, want %q", got, "test-jwt")
	}
}

func TestConnectHandshakeRejected(t *testing.T) {
	url := newTestServer(t, func(conn *websocket.Conn) {
		if _, ok := readRequest(t, conn); !ok {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"response_error","request_id":1,"error":{"message":"invalid token"}}`))
		drainFrames(conn)
	})

	c := &Client{}
	err := c.Connect(context.Background(), url, "bad")
	if err == nil {
		t.Fatal("Connect() succeeded with rejected hello")
	}
	if !cerrors.HasKind(err, cerrors.HandshakeFailed) {
		t.Errorf("error kind = %v, want handshake_failed", err)
	}
	if !strings.Contains(err.Error(), "invalid token") {
		t.Errorf("error %q should carry the server message", err)
	}
}

func TestExecuteSingleRow(t *testing.T) {
	url := newTestServer(t, func(conn *websocket.Conn) {
		if !acceptHello(t, conn) {
			return
		}
		req, ok := readRequest(t, conn)
		if !ok {
			return
		}
		if req.RequestID != 2 {
			t.Errorf("first generated request id = %d, want 2", req.RequestID)
		}
		if req.Request.Type != "execute" || req.Request.Stmt == nil || req.Request.Stmt.SQL != "SELECT 1" {
			t.Errorf("unexpected request: %+v", req.Request)
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(
			`{"type":"execute","request_id":2,"response":{"result":{"cols":[{"name":"1"}],"rows":[[{"type":"integer","value":"1"}]],"affected_row_count":0,"rows_read":1,"rows_written":0,"query_duration_ms":0.1}}}`))
		drainFrames(conn)
	})

	c := connectClient(t, url)
	res, err := c.Execute(context.Background(), 1, "SELECT 1")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(res.Cols) != 1 || res.Cols[0].DisplayName() != "1" {
		t.Errorf("cols = %+v, want one column named %q", res.Cols, "1")
	}
	if len(res.Rows) != 1 || len(res.Rows[0]) != 1 {
		t.Fatalf("rows = %+v, want a single value", res.Rows)
	}
	if v := res.Rows[0][0]; v.Kind != hrana.KindInteger || v.Text != "1" {
		t.Errorf("value = %+v, want Integer(%q)", v, "1")
	}
}

func TestOpenStream(t *testing.T) {
	url := newTestServer(t, func(conn *websocket.Conn) {
		if !acceptHello(t, conn) {
			return
		}
		req, ok := readRequest(t, conn)
		if !ok {
			return
		}
		if req.Request.Type != "open_stream" || req.Request.StreamID != 7 {
			t.Errorf("unexpected request: %+v", req.Request)
		}
		_ = conn.WriteMessage(websocket.TextMessage, fmt.Appendf(nil,
			`{"type":"response_ok","request_id":%d,"response":{"type":"open_stream"}}`, req.RequestID))
		drainFrames(conn)
	})

	c := connectClient(t, url)
	if err := c.OpenStream(context.Background(), 7); err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}
}

// TestOutOfOrderReplies is the heart of the correlation engine: two
// concurrent executes whose replies arrive in reverse order must each
// resolve their own caller.
func TestOutOfOrderReplies(t *testing.T) {
	url := newTestServer(t, func(conn *websocket.Conn) {
		if !acceptHello(t, conn) {
			return
		}
		reqs := make([]wireRequest, 0, 2)
		for len(reqs) < 2 {
			req, ok := readRequest(t, conn)
			if !ok {
				return
			}
			reqs = append(reqs, req)
		}
		// Answer in reverse arrival order; the reply text echoes the SQL so
		// callers can check they got their own result.
		for i := len(reqs) - 1; i >= 0; i-- {
			_ = conn.WriteMessage(websocket.TextMessage, executeReply(reqs[i].RequestID, reqs[i].Request.Stmt.SQL))
		}
		drainFrames(conn)
	})

	c := connectClient(t, url)

	var wg sync.WaitGroup
	for _, sql := range []string{"SELECT 'a'", "SELECT 'b'"} {
		sql := sql
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.Execute(context.Background(), 1, sql)
			if err != nil {
				t.Errorf("Execute(%q) error = %v", sql, err)
				return
			}
			if got := res.Rows[0][0].Text; got != sql {
				t.Errorf("Execute(%q) got reply for %q", sql, got)
			}
		}()
	}
	wg.Wait()
}

// A response_error for one id must resolve only that caller; the other
// pending request stays pending until its own reply lands.
func TestQueryErrorResolvesOnlyItsRequest(t *testing.T) {
	url := newTestServer(t, func(conn *websocket.Conn) {
		if !acceptHello(t, conn) {
			return
		}
		var failID, okID int32
		var okSQL string
		for i := 0; i < 2; i++ {
			req, ok := readRequest(t, conn)
			if !ok {
				return
			}
			if req.Request.Stmt.SQL == "SELECT bad" {
				failID = req.RequestID
			} else {
				okID, okSQL = req.RequestID, req.Request.Stmt.SQL
			}
		}
		_ = conn.WriteMessage(websocket.TextMessage, fmt.Appendf(nil,
			`{"type":"response_error","request_id":%d,"error":{"message":"no such table: bad"}}`, failID))
		time.Sleep(20 * time.Millisecond)
		_ = conn.WriteMessage(websocket.TextMessage, executeReply(okID, okSQL))
		drainFrames(conn)
	})

	c := connectClient(t, url)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := c.Execute(context.Background(), 1, "SELECT bad")
		if !cerrors.HasKind(err, cerrors.QueryFailed) {
			t.Errorf("Execute(bad) error = %v, want query_failed", err)
		}
		if err == nil || !strings.Contains(err.Error(), "no such table") {
			t.Errorf("Execute(bad) error %v should carry the server message", err)
		}
	}()
	go func() {
		defer wg.Done()
		res, err := c.Execute(context.Background(), 1, "SELECT ok")
		if err != nil {
			t.Errorf("Execute(ok) error = %v", err)
			return
		}
		if got := res.Rows[0][0].Text; got != "SELECT ok" {
			t.Errorf("Execute(ok) got reply for %q", got)
		}
	}()
	wg.Wait()
}

func TestOrphanedReplyIgnored(t *testing.T) {
	url := newTestServer(t, func(conn *websocket.Conn) {
		if !acceptHello(t, conn) {
			return
		}
		// Nobody is waiting for id 99; the client must drop it silently.
		_ = conn.WriteMessage(websocket.TextMessage, executeReply(99, "stale"))
		req, ok := readRequest(t, conn)
		if !ok {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, executeReply(req.RequestID, req.Request.Stmt.SQL))
		drainFrames(conn)
	})

	c := connectClient(t, url)
	res, err := c.Execute(context.Background(), 1, "SELECT 2")
	if err != nil {
		t.Fatalf("Execute() after orphaned reply error = %v", err)
	}
	if got := res.Rows[0][0].Text; got != "SELECT 2" {
		t.Errorf("got reply for %q, want own result", got)
	}
}

func TestNextRequestIDUnique(t *testing.T) {
	c := &Client{}
	c.requestID.Store(1)

	const n = 1000
	ids := make(chan int32, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			ids <- c.nextRequestID()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int32]bool, n)
	for id := range ids {
		if id == 1 || id == -1 {
			t.Errorf("nextRequestID() returned reserved id %d", id)
		}
		if id < 2 {
			t.Errorf("nextRequestID() returned %d, want >= 2", id)
		}
		if seen[id] {
			t.Errorf("nextRequestID() returned duplicate %d", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Errorf("got %d distinct ids, want %d", len(seen), n)
	}
}

func TestPingTracksInjectedDelay(t *testing.T) {
	const delay = 50 * time.Millisecond
	url := newTestServer(t, func(conn *websocket.Conn) {
		conn.SetPingHandler(func(appData string) error {
			time.Sleep(delay)
			return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
		})
		if !acceptHello(t, conn) {
			return
		}
		drainFrames(conn)
	})

	c := connectClient(t, url)
	d, err := c.Ping(context.Background())
	if err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if d < delay-5*time.Millisecond {
		t.Errorf("Ping() = %v, want at least ~%v", d, delay)
	}
	if d > delay+400*time.Millisecond {
		t.Errorf("Ping() = %v, way above injected delay %v", d, delay)
	}
}

func TestConcurrentPingsResolveIndependently(t *testing.T) {
	url := newTestServer(t, func(conn *websocket.Conn) {
		// Default ping handler echoes the payload, so probe ids round-trip.
		if !acceptHello(t, conn) {
			return
		}
		drainFrames(conn)
	})

	c := connectClient(t, url)
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := c.Ping(ctx); err != nil {
				t.Errorf("Ping() error = %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestListenerTerminationDrainsPending(t *testing.T) {
	url := newTestServer(t, func(conn *websocket.Conn) {
		if !acceptHello(t, conn) {
			return
		}
		// Take the request, then drop the connection without answering.
		if _, ok := readRequest(t, conn); !ok {
			return
		}
		_ = conn.Close()
	})

	c := connectClient(t, url)
	_, err := c.Execute(context.Background(), 1, "SELECT 1")
	if err == nil {
		t.Fatal("Execute() succeeded on a dropped connection")
	}
	if !cerrors.HasKind(err, cerrors.ConnectionClosed) {
		t.Errorf("error = %v, want connection_closed", err)
	}
}

func TestCancelledCallLeavesConnectionUsable(t *testing.T) {
	release := make(chan struct{})
	url := newTestServer(t, func(conn *websocket.Conn) {
		if !acceptHello(t, conn) {
			return
		}
		req, ok := readRequest(t, conn)
		if !ok {
			return
		}
		<-release
		// The awaiting caller is long gone; this reply must be dropped as an
		// orphan.
		_ = conn.WriteMessage(websocket.TextMessage, executeReply(req.RequestID, req.Request.Stmt.SQL))
		drainFrames(conn)
	})

	c := connectClient(t, url)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Execute(ctx, 1, "SELECT slow")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Execute() error = %v, want deadline exceeded", err)
	}

	close(release)
	time.Sleep(50 * time.Millisecond)

	pctx, pcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pcancel()
	if _, err := c.Ping(pctx); err != nil {
		t.Errorf("Ping() after cancelled call error = %v", err)
	}
}
