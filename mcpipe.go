package mcpipe

import "errors"

var (
	// ErrTransportClosed is reported when a line is written to a transport
	// whose outbound stream is no longer writable, typically because the
	// server process has exited and its stdin pipe is gone.
	ErrTransportClosed = errors.New("transport closed")

	// ErrConnectionClosed is reported when the transport's inbound stream
	// reaches end-of-stream, meaning the server closed the connection while
	// the client was still waiting for data.
	ErrConnectionClosed = errors.New("server closed connection")
)

// Transport carries newline-delimited JSON-RPC documents between the client
// and an MCP server. Implementations own the underlying streams; the Session
// owns the Transport it was constructed with and is the only writer on it.
//
// The interface exists so the correlation loop can be exercised against an
// in-memory transport in tests instead of a real child process.
type Transport interface {
	// WriteLine appends a single newline-terminated line to the outbound
	// stream without buffering, so the peer observes the full line before
	// WriteLine returns. Returns ErrTransportClosed if the stream is no
	// longer writable.
	WriteLine(line string) error

	// ReadLine blocks until one newline-terminated line is available on the
	// inbound stream and returns it with the trailing newline stripped.
	// Returns ErrConnectionClosed once end-of-stream is reached with no
	// further data.
	ReadLine() (string, error)

	// Close releases the transport's resources. For process-backed
	// transports this terminates the server process and waits for it to
	// exit. The caller is guaranteed to call Close at most once.
	Close() error
}
