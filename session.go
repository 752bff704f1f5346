package mcpipe

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// SessionOption is a function that configures a Session.
type SessionOption func(*Session)

// WithLogger sets the logger used for the session's wire-level diagnostics.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// Session drives one MCP connection over a Transport. It assigns
// monotonically increasing request ids starting at 1, serializes requests
// and notifications, and runs the blocking wait-and-correlate read loop that
// matches each response to the outstanding request.
//
// A Session is single-threaded by design: exactly one request may be
// outstanding at a time, and the caller blocks until that request resolves
// or the connection closes. The Session exclusively owns its Transport.
type Session struct {
	id        string
	info      Info
	transport Transport

	nextID      int64
	initialized bool

	logger *slog.Logger
}

// NewSession creates a Session speaking through the given transport. The
// info parameter identifies this client to the server during the
// initialization handshake. Each Session starts its own id counter at 1.
func NewSession(info Info, transport Transport, options ...SessionOption) *Session {
	s := &Session{
		id:        uuid.New().String(),
		info:      info,
		transport: transport,
		nextID:    1,
		logger:    slog.Default(),
	}
	for _, opt := range options {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("sessionID", s.id))
	return s
}

// Dial launches the server executable at path and returns a Session bound to
// the new process. It is shorthand for NewCommand followed by NewSession.
func Dial(info Info, path string, args ...string) (*Session, error) {
	cmd, err := NewCommand(path, args...)
	if err != nil {
		return nil, err
	}
	return NewSession(info, cmd), nil
}

// ID returns the unique identifier for this session, used only for log
// correlation; request ids are a separate per-session integer counter.
func (s *Session) ID() string {
	return s.id
}

// SendRequest writes a request for method with the given params and blocks
// until the server replies to it. Each call consumes the next request id.
//
// While waiting, lines that are not valid JSON and replies whose id does not
// match the outstanding request are discarded and the wait continues; stray
// output on the server's stdout therefore cannot corrupt the loop, at the
// cost of masking protocol violations. If the server closes its output
// stream before a correlating response arrives, SendRequest fails with
// ErrConnectionClosed. There is no timeout: a peer that never replies blocks
// the caller indefinitely.
func (s *Session) SendRequest(method string, params any) (JSONRPCMessage, error) {
	paramsBs, err := json.Marshal(params)
	if err != nil {
		return JSONRPCMessage{}, fmt.Errorf("failed to marshal params: %w", err)
	}

	id := s.nextID
	s.nextID++

	msgBs, err := json.Marshal(JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Method:  method,
		Params:  paramsBs,
	})
	if err != nil {
		return JSONRPCMessage{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	s.logger.Debug("send request", slog.String("message", string(msgBs)))
	if err := s.transport.WriteLine(string(msgBs)); err != nil {
		return JSONRPCMessage{}, fmt.Errorf("failed to write request: %w", err)
	}

	return s.waitResponse(id)
}

// waitResponse is the correlation loop: it reads lines until one decodes to
// a response whose id equals the outstanding request's id.
func (s *Session) waitResponse(id int64) (JSONRPCMessage, error) {
	for {
		line, err := s.transport.ReadLine()
		if err != nil {
			return JSONRPCMessage{}, err
		}
		if line == "" {
			continue
		}

		var msg JSONRPCMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			s.logger.Debug("discard undecodable line", slog.String("line", line))
			continue
		}
		if msg.ID != id {
			// Stale or duplicate reply for an id that is not outstanding;
			// dropped without diagnostic beyond this log line.
			s.logger.Debug("discard reply with unexpected id",
				slog.Int64("want", id), slog.Int64("got", msg.ID))
			continue
		}

		s.logger.Debug("received response", slog.String("line", line))
		return msg, nil
	}
}

// SendNotification writes a notification for method with the given params
// and returns immediately. Notifications carry no id, consume no id, and
// never wait for a reply; there is no confirmation of delivery.
func (s *Session) SendNotification(method string, params any) error {
	paramsBs, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}

	msgBs, err := json.Marshal(JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		Method:  method,
		Params:  paramsBs,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	s.logger.Debug("send notification", slog.String("message", string(msgBs)))
	if err := s.transport.WriteLine(string(msgBs)); err != nil {
		return fmt.Errorf("failed to write notification: %w", err)
	}
	return nil
}

// Initialize performs the MCP initialization handshake: it sends an
// initialize request carrying the client's self-identification and an empty
// capability set, and after receiving the response sends the one-way
// initialized notification the protocol expects. The initialize response is
// returned verbatim.
func (s *Session) Initialize() (JSONRPCMessage, error) {
	res, err := s.SendRequest(methodInitialize, initializeParams{
		Implementation: s.info,
		Capabilities:   ClientCapabilities{},
	})
	if err != nil {
		return JSONRPCMessage{}, fmt.Errorf("failed to initialize: %w", err)
	}

	if err := s.SendNotification(methodInitialized, struct{}{}); err != nil {
		return JSONRPCMessage{}, fmt.Errorf("failed to send initialized notification: %w", err)
	}

	s.initialized = true
	return res, nil
}

// ListTools sends a tools/list request with empty parameters and returns the
// decoded response verbatim; no client-side validation of its shape is
// performed. Use JSONRPCMessage.DecodeResult with ListToolsResult for the
// typed form.
func (s *Session) ListTools() (JSONRPCMessage, error) {
	if !s.initialized {
		return JSONRPCMessage{}, errors.New("session not initialized")
	}
	return s.SendRequest(MethodToolsList, struct{}{})
}

// CallTool sends a tools/call request for the named tool and returns the
// decoded response verbatim. A response that itself encodes a remote-side
// JSON-RPC error is returned, not raised; interpreting a remote error is the
// caller's decision.
func (s *Session) CallTool(name string, arguments map[string]any) (JSONRPCMessage, error) {
	if !s.initialized {
		return JSONRPCMessage{}, errors.New("session not initialized")
	}
	return s.SendRequest(MethodToolsCall, CallToolParams{
		Name:      name,
		Arguments: arguments,
	})
}

// Shutdown signals the server to exit and terminates its process. The exit
// notification is best-effort: the connection may already be degraded, so a
// send failure is logged and shutdown still proceeds, unconditionally, to
// process termination. Calling Shutdown without a prior Initialize is legal
// and simply skips straight to termination of an unused server.
func (s *Session) Shutdown() error {
	if err := s.SendNotification(methodExit, struct{}{}); err != nil {
		// Ignored on purpose: termination must happen regardless.
		s.logger.Warn("failed to send exit notification", slog.String("err", err.Error()))
	}
	return s.transport.Close()
}
