package mcpipe

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// StdIO frames newline-delimited JSON-RPC documents over an io.Reader and
// io.Writer pair. Writes go straight through to the underlying writer with
// no intermediate buffering, so the peer observes each full line before
// WriteLine returns.
//
// StdIO is the framing half of a transport; Command composes it with a child
// process. Tests can compose it with io.Pipe ends instead.
type StdIO struct {
	// Use bufio.Reader instead of bufio.Scanner to avoid max token size errors.
	reader *bufio.Reader
	writer io.Writer
}

// NewStdIO creates a StdIO framing lines over the provided reader and writer.
func NewStdIO(reader io.Reader, writer io.Writer) *StdIO {
	return &StdIO{
		reader: bufio.NewReader(reader),
		writer: writer,
	}
}

// WriteLine writes line followed by a newline to the outbound stream.
// Returns ErrTransportClosed if the stream is no longer writable.
func (s *StdIO) WriteLine(line string) error {
	if _, err := io.WriteString(s.writer, line+"\n"); err != nil {
		if isClosedErr(err) {
			return ErrTransportClosed
		}
		return fmt.Errorf("failed to write line: %w", err)
	}
	return nil
}

// ReadLine blocks until one newline-terminated line is available on the
// inbound stream and returns it with the trailing newline stripped. When the
// stream ends with no further data it returns ErrConnectionClosed; a final
// unterminated line is still returned before that.
func (s *StdIO) ReadLine() (string, error) {
	line, err := s.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) || isClosedErr(err) {
			if line != "" {
				return line, nil
			}
			return "", ErrConnectionClosed
		}
		return "", fmt.Errorf("failed to read line: %w", err)
	}
	return strings.TrimSuffix(line, "\n"), nil
}

// Close closes the underlying reader and writer when they are closable.
func (s *StdIO) Close() error {
	if c, ok := s.writer.(io.Closer); ok {
		if err := c.Close(); err != nil && !isClosedErr(err) {
			return fmt.Errorf("failed to close writer: %w", err)
		}
	}
	return nil
}

// isClosedErr reports whether err indicates a pipe or file that is already
// closed on either end.
func isClosedErr(err error) bool {
	return errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, fs.ErrClosed) ||
		errors.Is(err, syscall.EPIPE)
}

// Command runs an MCP server as a child process and carries the line
// protocol over the process's standard input and output pipes. Standard
// error is redirected into its own pipe and exposed via Stderr for
// diagnostics; the client itself never consumes it.
//
// A Command must be created with NewCommand and released with Close, which
// terminates the process and waits for it to exit.
type Command struct {
	*StdIO

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr io.ReadCloser
	logger *slog.Logger
}

// NewCommand launches the server executable at path with the given arguments,
// with stdin, stdout, and stderr each redirected into a pipe. The process
// runs concurrently with the caller from this point on. Returns a wrapped
// error if the executable cannot be launched.
func NewCommand(path string, args ...string) (*Command, error) {
	cmd := exec.Command(path, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start server process %q: %w", path, err)
	}

	return &Command{
		StdIO:  NewStdIO(stdout, stdin),
		cmd:    cmd,
		stdin:  stdin,
		stderr: stderr,
		logger: slog.Default(),
	}, nil
}

// Stderr returns the server's captured standard error stream. Callers may
// drain it for diagnostics; leaving it undrained is fine for servers that
// stay within the pipe buffer.
func (c *Command) Stderr() io.Reader {
	return c.stderr
}

// Close terminates the server process and waits for it to exit. Termination
// is attempted even if the connection is already unusable: failures to close
// stdin or to signal the process are logged and do not stop the wait. The
// exit status itself is not inspected; only a failure of the wait syscall is
// returned, and callers may treat that as best-effort.
func (c *Command) Close() error {
	if err := c.stdin.Close(); err != nil && !isClosedErr(err) {
		c.logger.Debug("failed to close server stdin", "err", err)
	}
	if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		c.logger.Debug("failed to kill server process", "err", err)
	}

	if err := c.cmd.Wait(); err != nil {
		// An ExitError just reports the kill signal or the server's own exit
		// code; the process is gone either way.
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return fmt.Errorf("failed to wait for server process: %w", err)
		}
	}
	return nil
}
