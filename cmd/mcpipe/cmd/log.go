package cmd

import (
	"log/slog"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func initLog(cmd *cobra.Command, args []string) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	slogLevel := slog.LevelInfo

	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		slogLevel = slog.LevelDebug
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// The client library logs its wire traffic through log/slog; route it to
	// stderr at the same level so --debug shows both sides.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slogLevel,
	})))
}
