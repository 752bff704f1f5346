package cmd

import (
	"fmt"

	mcpipe "github.com/skelhorn/go-mcpipe"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "print the raw tools/list result")
}

var toolsJSON bool

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "list the tools the server exposes",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, shutdown, err := dial()
		if err != nil {
			return err
		}
		defer shutdown()

		res, err := sess.ListTools()
		if err != nil {
			return err
		}

		if toolsJSON {
			fmt.Println(string(res.Result))
			return nil
		}

		var result mcpipe.ListToolsResult
		if err := res.DecodeResult(&result); err != nil {
			return err
		}
		if len(result.Tools) == 0 {
			log.Info().Msg("server exposes no tools")
			return nil
		}
		for _, tool := range result.Tools {
			fmt.Printf("%s\t%s\n", tool.Name, tool.Description)
		}
		return nil
	},
}
