// Package mcpipe implements a client for the Model Context Protocol (MCP)
// carried as line-delimited JSON-RPC 2.0 over a child process's standard
// input and output pipes. It launches a server executable, performs the MCP
// initialization handshake, and correlates each blocking request with its
// matching response by request id.
//
// The client is deliberately synchronous: a single request is outstanding at
// a time, and the calling goroutine blocks until the correlating response
// arrives or the server closes the connection.
package mcpipe
