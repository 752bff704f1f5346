// Command waveform demonstrates driving a waveform MCP server end to end:
// launch, handshake, capability discovery, one tool call, shutdown.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	mcpipe "github.com/skelhorn/go-mcpipe"
)

func main() {
	serverPath := "./waveform-mcp"
	if len(os.Args) > 1 {
		serverPath = os.Args[1]
	}

	sess, err := mcpipe.Dial(mcpipe.Info{Name: "example-client", Version: "1.0.0"}, serverPath)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := sess.Shutdown(); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	initRes, err := sess.Initialize()
	if err != nil {
		log.Fatal(err)
	}
	printJSON("initialize", initRes)

	toolsRes, err := sess.ListTools()
	if err != nil {
		log.Fatal(err)
	}
	printJSON("tools/list", toolsRes)

	// The server reports file-not-found as a JSON-RPC error object; the
	// client hands it back instead of failing the call.
	callRes, err := sess.CallTool("open_waveform", map[string]any{
		"file_path": "/tmp/test.vcd",
		"alias":     "test_waveform",
	})
	if err != nil {
		log.Fatal(err)
	}
	printJSON("tools/call", callRes)
}

func printJSON(label string, msg mcpipe.JSONRPCMessage) {
	out, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s:\n%s\n", label, out)
}
