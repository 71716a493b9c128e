// Copyright (c) 2026 sqldsh
// Licensed under the MIT License. See LICENSE file in the project root for details.

package hrana

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeAndClassifyExecuteResult(t *testing.T) {
	frame := `{"type":"execute","request_id":2,"response":{"result":{` +
		`"cols":[{"name":"1"}],` +
		`"rows":[[{"type":"integer","value":"1"}]],` +
		`"affected_row_count":0,"rows_read":1,"rows_written":0,"query_duration_ms":0.1}}}`

	msg, err := DecodeServerMsg([]byte(frame))
	if err != nil {
		t.Fatalf("DecodeServerMsg() error = %v", err)
	}
	if got := msg.CorrelationID(); got != 2 {
		t.Fatalf("CorrelationID() = %d, want 2", got)
	}

	resp, err := msg.Classify()
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	res, ok := resp.(ExecuteResult)
	if !ok {
		t.Fatalf("Classify() = %T, want ExecuteResult", resp)
	}
	if len(res.Result.Cols) != 1 || res.Result.Cols[0].DisplayName() != "1" {
		t.Errorf("cols = %+v, want one column named %q", res.Result.Cols, "1")
	}
	if len(res.Result.Rows) != 1 || len(res.Result.Rows[0]) != 1 {
		t.Fatalf("rows = %+v, want one row with one value", res.Result.Rows)
	}
	v := res.Result.Rows[0][0]
	if v.Kind != KindInteger || v.Text != "1" {
		t.Errorf("value = %+v, want Integer(%q)", v, "1")
	}
	if res.Result.RowsRead != 1 {
		t.Errorf("RowsRead = %d, want 1", res.Result.RowsRead)
	}
}

func TestClassifyInnerTagWins(t *testing.T) {
	frame := `{"type":"response_ok","request_id":7,"response":{"type":"open_stream"}}`
	msg, err := DecodeServerMsg([]byte(frame))
	if err != nil {
		t.Fatalf("DecodeServerMsg() error = %v", err)
	}
	resp, err := msg.Classify()
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if _, ok := resp.(StreamOpened); !ok {
		t.Errorf("Classify() = %T, want StreamOpened", resp)
	}
}

func TestClassifyTable(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  string
	}{
		{
			name:  "hello ok",
			frame: `{"type":"hello_ok"}`,
			want:  "hello_ok",
		},
		{
			name:  "response error",
			frame: `{"type":"response_error","request_id":3,"error":{"message":"boom"}}`,
			want:  "response_error",
		},
		{
			name:  "error without message body",
			frame: `{"type":"response_error","request_id":3}`,
			want:  "response_error",
		},
		{
			name:  "unknown tag",
			frame: `{"type":"response_ok","request_id":4,"response":{"type":"describe"}}`,
			want:  "describe",
		},
		{
			name:  "unknown outer type without payload",
			frame: `{"type":"shiny_new_thing","request_id":5}`,
			want:  "shiny_new_thing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeServerMsg([]byte(tt.frame))
			if err != nil {
				t.Fatalf("DecodeServerMsg() error = %v", err)
			}
			resp, err := msg.Classify()
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if got := resp.responseType(); got != tt.want {
				t.Errorf("responseType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyErrorMessage(t *testing.T) {
	frame := `{"type":"response_error","request_id":1,"error":{"message":"invalid token"}}`
	msg, err := DecodeServerMsg([]byte(frame))
	if err != nil {
		t.Fatalf("DecodeServerMsg() error = %v", err)
	}
	resp, err := msg.Classify()
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	pe, ok := resp.(ProtoError)
	if !ok {
		t.Fatalf("Classify() = %T, want ProtoError", resp)
	}
	if pe.Message != "invalid token" {
		t.Errorf("Message = %q, want %q", pe.Message, "invalid token")
	}
}

func TestCorrelationIDDefaultsToHandshake(t *testing.T) {
	msg, err := DecodeServerMsg([]byte(`{"type":"hello_ok"}`))
	if err != nil {
		t.Fatalf("DecodeServerMsg() error = %v", err)
	}
	if got := msg.CorrelationID(); got != HelloRequestID {
		t.Errorf("CorrelationID() = %d, want %d", got, HelloRequestID)
	}
}

func TestDecodeServerMsgMalformed(t *testing.T) {
	if _, err := DecodeServerMsg([]byte(`{not json`)); err == nil {
		t.Error("DecodeServerMsg() accepted malformed input")
	}
}

func TestEncodeHello(t *testing.T) {
	data, err := json.Marshal(NewHelloMsg("secret-jwt"))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"type":"hello","jwt":"secret-jwt"}`
	if string(data) != want {
		t.Errorf("hello = %s, want %s", data, want)
	}
}

func TestEncodeOpenStream(t *testing.T) {
	data, err := json.Marshal(NewOpenStreamMsg(2, 1))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for _, frag := range []string{`"type":"request"`, `"request_id":2`, `"type":"open_stream"`, `"stream_id":1`} {
		if !strings.Contains(string(data), frag) {
			t.Errorf("open_stream = %s, missing %s", data, frag)
		}
	}
	if strings.Contains(string(data), "stmt") {
		t.Errorf("open_stream = %s, should not carry a stmt", data)
	}
}

func TestEncodeExecute(t *testing.T) {
	data, err := json.Marshal(NewExecuteMsg(3, 1, "SELECT 1"))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for _, frag := range []string{`"type":"execute"`, `"stream_id":1`, `"sql":"SELECT 1"`, `"want_rows":true`} {
		if !strings.Contains(string(data), frag) {
			t.Errorf("execute = %s, missing %s", data, frag)
		}
	}
	for _, frag := range []string{`"args"`, `"named_args"`} {
		if strings.Contains(string(data), frag) {
			t.Errorf("execute = %s, should omit empty %s", data, frag)
		}
	}
}
