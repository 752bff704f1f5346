// Package cmd implements the mcpipe command line interface: a thin driver
// around the client library that launches an MCP server, performs the
// handshake, and runs one capability-discovery or tool-invocation exchange.
package cmd

import (
	"fmt"
	"os"

	mcpipe "github.com/skelhorn/go-mcpipe"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const clientVersion = "0.2.0"

var (
	debug      bool
	serverFlag string
	configPath string
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log wire traffic and diagnostics")
	rootCmd.PersistentFlags().StringVarP(&serverFlag, "server", "s", "", "server executable path, or a name from the config file")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "server registry file (default ~/.config/mcpipe/servers.yaml)")
	rootCmd.PersistentPreRun = initLog
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mcpipe",
	Short: "drive an MCP server over its stdio pipes",
	Long: `mcpipe launches a Model Context Protocol server as a child process and
speaks line-delimited JSON-RPC 2.0 to it over the process's stdin/stdout.`,
	Example: `  mcpipe tools -s ./waveform-mcp
  mcpipe call open_waveform -s waveform --args '{"file_path":"/tmp/test.vcd"}'`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

// dial resolves the --server flag against the registry, launches the server,
// and completes the initialization handshake. The returned cleanup function
// shuts the session down and must run even when the exchange fails.
func dial() (*mcpipe.Session, func(), error) {
	command, args, err := resolveServer(serverFlag, configPath)
	if err != nil {
		return nil, nil, err
	}

	log.Debug().Str("command", command).Strs("args", args).Msg("starting server")
	sess, err := mcpipe.Dial(clientInfo(), command, args...)
	if err != nil {
		return nil, nil, err
	}

	shutdown := func() {
		if err := sess.Shutdown(); err != nil {
			log.Warn().Err(err).Msg("shutdown did not complete cleanly")
		}
	}

	res, err := sess.Initialize()
	if err != nil {
		shutdown()
		return nil, nil, fmt.Errorf("handshake failed: %w", err)
	}

	var init mcpipe.InitializeResult
	if err := res.DecodeResult(&init); err == nil {
		log.Debug().Str("server", init.ServerInfo.Name).
			Str("version", init.ServerInfo.Version).Msg("connected")
	}

	return sess, shutdown, nil
}

func clientInfo() mcpipe.Info {
	return mcpipe.Info{Name: "mcpipe", Version: clientVersion}
}
