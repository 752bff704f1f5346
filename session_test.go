package mcpipe_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	mcpipe "github.com/skelhorn/go-mcpipe"
)

// fakeTransport is an in-memory Transport for exercising the correlation
// loop without a real child process. Lines queued in reads are served in
// order; once drained, ReadLine reports a closed connection.
type fakeTransport struct {
	written  []string
	reads    []string
	writeErr error
	closed   bool
}

func (f *fakeTransport) WriteLine(line string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, line)
	return nil
}

func (f *fakeTransport) ReadLine() (string, error) {
	if len(f.reads) == 0 {
		return "", mcpipe.ErrConnectionClosed
	}
	line := f.reads[0]
	f.reads = f.reads[1:]
	return line, nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func testInfo() mcpipe.Info {
	return mcpipe.Info{Name: "test-client", Version: "1.0.0"}
}

func TestSessionRequestIDsStartAtOneAndIncrease(t *testing.T) {
	ft := &fakeTransport{reads: []string{
		`{"jsonrpc":"2.0","id":1,"result":{}}`,
		`{"jsonrpc":"2.0","id":2,"result":{}}`,
		`{"jsonrpc":"2.0","id":3,"result":{}}`,
	}}
	sess := mcpipe.NewSession(testInfo(), ft)

	for i := 0; i < 3; i++ {
		if _, err := sess.SendRequest("ping", struct{}{}); err != nil {
			t.Fatalf("request %d failed: %v", i+1, err)
		}
	}

	if len(ft.written) != 3 {
		t.Fatalf("wrong number of requests written. Got %d, want 3", len(ft.written))
	}
	for i, line := range ft.written {
		var msg mcpipe.JSONRPCMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			t.Fatalf("failed to decode written request: %v", err)
		}
		if msg.ID != int64(i+1) {
			t.Errorf("wrong request id. Got %d, want %d", msg.ID, i+1)
		}
	}
}

func TestSessionCountersAreScopedPerSession(t *testing.T) {
	for _, name := range []string{"first", "second"} {
		t.Run(name, func(t *testing.T) {
			ft := &fakeTransport{reads: []string{`{"jsonrpc":"2.0","id":1,"result":{}}`}}
			sess := mcpipe.NewSession(testInfo(), ft)

			if _, err := sess.SendRequest("ping", struct{}{}); err != nil {
				t.Fatalf("request failed: %v", err)
			}

			var msg mcpipe.JSONRPCMessage
			if err := json.Unmarshal([]byte(ft.written[0]), &msg); err != nil {
				t.Fatalf("failed to decode written request: %v", err)
			}
			if msg.ID != 1 {
				t.Errorf("fresh session did not start ids at 1. Got %d", msg.ID)
			}
		})
	}
}

func TestNotificationOmitsIDAndDoesNotBlock(t *testing.T) {
	// No read lines queued: a notification that tried to wait for a reply
	// would fail with a closed connection instead of returning cleanly.
	ft := &fakeTransport{}
	sess := mcpipe.NewSession(testInfo(), ft)

	if err := sess.SendNotification("initialized", struct{}{}); err != nil {
		t.Fatalf("notification failed: %v", err)
	}

	if len(ft.written) != 1 {
		t.Fatalf("wrong number of lines written. Got %d, want 1", len(ft.written))
	}
	if strings.Contains(ft.written[0], `"id"`) {
		t.Errorf("notification carries an id: %s", ft.written[0])
	}

	// The id counter must be untouched by notifications.
	ft.reads = []string{`{"jsonrpc":"2.0","id":1,"result":{}}`}
	if _, err := sess.SendRequest("ping", struct{}{}); err != nil {
		t.Fatalf("request after notification failed: %v", err)
	}
}

func TestCorrelationDiscardsStrayLines(t *testing.T) {
	ft := &fakeTransport{reads: []string{
		`{"jsonrpc":"2.0","id":1,"result":"first"}`,
		// Stray output preceding the reply to request 2: a blank line,
		// non-JSON noise, and a stale reply for the already-resolved id 1.
		"",
		"Server starting on stdio...",
		`{"jsonrpc":"2.0","id":1,"result":"stale"}`,
		`{"jsonrpc":"2.0","id":2,"result":"ok"}`,
	}}
	sess := mcpipe.NewSession(testInfo(), ft)

	if _, err := sess.SendRequest("first", struct{}{}); err != nil {
		t.Fatalf("first request failed: %v", err)
	}

	res, err := sess.SendRequest("second", struct{}{})
	if err != nil {
		t.Fatalf("second request failed: %v", err)
	}
	if res.ID != 2 {
		t.Errorf("wrong response id. Got %d, want 2", res.ID)
	}

	var result string
	if err := res.DecodeResult(&result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if result != "ok" {
		t.Errorf("wrong result. Got %q, want %q", result, "ok")
	}
}

func TestRequestReceivesExactResultObject(t *testing.T) {
	ft := &fakeTransport{reads: []string{
		`{"jsonrpc":"2.0","id":1,"result":{"tools":[]}}`,
	}}
	sess := mcpipe.NewSession(testInfo(), ft)

	res, err := sess.SendRequest("tools/list", struct{}{})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var result mcpipe.ListToolsResult
	if err := res.DecodeResult(&result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if len(result.Tools) != 0 {
		t.Errorf("wrong tool count. Got %d, want 0", len(result.Tools))
	}

	var request mcpipe.JSONRPCMessage
	if err := json.Unmarshal([]byte(ft.written[0]), &request); err != nil {
		t.Fatalf("failed to decode written request: %v", err)
	}
	if request.Method != "tools/list" {
		t.Errorf("wrong method. Got %q, want %q", request.Method, "tools/list")
	}
	if request.ID != 1 {
		t.Errorf("wrong request id. Got %d, want 1", request.ID)
	}
}

func TestRequestFailsWhenConnectionCloses(t *testing.T) {
	// No reads queued: the peer closes its output stream without replying.
	ft := &fakeTransport{}
	sess := mcpipe.NewSession(testInfo(), ft)

	_, err := sess.SendRequest("tools/list", struct{}{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, mcpipe.ErrConnectionClosed) {
		t.Errorf("wrong error. Got %v, want ErrConnectionClosed", err)
	}
}

func TestInitializeHandshake(t *testing.T) {
	ft := &fakeTransport{reads: []string{
		`{"jsonrpc":"2.0","id":1,"result":{"protocolVersion":"2024-11-05","serverInfo":{"name":"waveform-mcp","version":"0.1.0"}}}`,
	}}
	sess := mcpipe.NewSession(testInfo(), ft)

	res, err := sess.Initialize()
	if err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	var result mcpipe.InitializeResult
	if err := res.DecodeResult(&result); err != nil {
		t.Fatalf("failed to decode initialize result: %v", err)
	}
	if result.ServerInfo.Name != "waveform-mcp" {
		t.Errorf("wrong server name. Got %q, want %q", result.ServerInfo.Name, "waveform-mcp")
	}

	if len(ft.written) != 2 {
		t.Fatalf("wrong number of lines written. Got %d, want 2", len(ft.written))
	}

	var request mcpipe.JSONRPCMessage
	if err := json.Unmarshal([]byte(ft.written[0]), &request); err != nil {
		t.Fatalf("failed to decode initialize request: %v", err)
	}
	if request.Method != "initialize" {
		t.Errorf("wrong method. Got %q, want %q", request.Method, "initialize")
	}

	var params struct {
		Implementation mcpipe.Info    `json:"implementation"`
		Capabilities   map[string]any `json:"capabilities"`
	}
	if err := json.Unmarshal(request.Params, &params); err != nil {
		t.Fatalf("failed to decode initialize params: %v", err)
	}
	if params.Implementation.Name != "test-client" {
		t.Errorf("wrong client name. Got %q, want %q", params.Implementation.Name, "test-client")
	}
	if params.Capabilities == nil || len(params.Capabilities) != 0 {
		t.Errorf("capabilities not an empty object: %s", request.Params)
	}

	// Exactly one initialized notification, written after the response.
	var notification mcpipe.JSONRPCMessage
	if err := json.Unmarshal([]byte(ft.written[1]), &notification); err != nil {
		t.Fatalf("failed to decode initialized notification: %v", err)
	}
	if notification.Method != "initialized" {
		t.Errorf("wrong method. Got %q, want %q", notification.Method, "initialized")
	}
	if notification.ID != 0 {
		t.Errorf("initialized notification carries id %d", notification.ID)
	}
}

func TestListToolsRequiresInitialize(t *testing.T) {
	sess := mcpipe.NewSession(testInfo(), &fakeTransport{})

	if _, err := sess.ListTools(); err == nil {
		t.Fatal("expected error for uninitialized session, got nil")
	}
}

func TestCallToolReturnsRemoteErrorVerbatim(t *testing.T) {
	ft := &fakeTransport{reads: []string{
		`{"jsonrpc":"2.0","id":1,"result":{}}`,
		`{"jsonrpc":"2.0","id":2,"error":{"code":-32602,"message":"file not found"}}`,
	}}
	sess := mcpipe.NewSession(testInfo(), ft)

	if _, err := sess.Initialize(); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	res, err := sess.CallTool("open_waveform", map[string]any{"file_path": "/tmp/test.vcd"})
	if err != nil {
		t.Fatalf("call returned transport-level error: %v", err)
	}
	if res.Error == nil {
		t.Fatal("expected remote error object in response")
	}
	if res.Error.Code != -32602 {
		t.Errorf("wrong error code. Got %d, want -32602", res.Error.Code)
	}
	if res.Error.Message != "file not found" {
		t.Errorf("wrong error message. Got %q, want %q", res.Error.Message, "file not found")
	}

	var request mcpipe.JSONRPCMessage
	if err := json.Unmarshal([]byte(ft.written[2]), &request); err != nil {
		t.Fatalf("failed to decode written request: %v", err)
	}
	var params mcpipe.CallToolParams
	if err := json.Unmarshal(request.Params, &params); err != nil {
		t.Fatalf("failed to decode call params: %v", err)
	}
	if params.Name != "open_waveform" {
		t.Errorf("wrong tool name. Got %q, want %q", params.Name, "open_waveform")
	}
	if params.Arguments["file_path"] != "/tmp/test.vcd" {
		t.Errorf("wrong tool arguments: %v", params.Arguments)
	}
}

func TestShutdownSendsExitAndClosesTransport(t *testing.T) {
	ft := &fakeTransport{}
	sess := mcpipe.NewSession(testInfo(), ft)

	if err := sess.Shutdown(); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	if !ft.closed {
		t.Error("transport not closed")
	}
	if len(ft.written) != 1 {
		t.Fatalf("wrong number of lines written. Got %d, want 1", len(ft.written))
	}
	var notification mcpipe.JSONRPCMessage
	if err := json.Unmarshal([]byte(ft.written[0]), &notification); err != nil {
		t.Fatalf("failed to decode exit notification: %v", err)
	}
	if notification.Method != "exit" {
		t.Errorf("wrong method. Got %q, want %q", notification.Method, "exit")
	}
}

func TestShutdownProceedsWhenExitSendFails(t *testing.T) {
	ft := &fakeTransport{writeErr: mcpipe.ErrTransportClosed}
	sess := mcpipe.NewSession(testInfo(), ft)

	if err := sess.Shutdown(); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if !ft.closed {
		t.Error("transport not closed despite failed exit notification")
	}
}
