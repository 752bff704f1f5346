package main

import "github.com/skelhorn/go-mcpipe/cmd/mcpipe/cmd"

func main() {
	cmd.Execute()
}
