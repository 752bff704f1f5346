package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(callCmd)
	callCmd.Flags().StringVar(&callArgs, "args", "{}", "tool arguments as a JSON object")
}

var callArgs string

var callCmd = &cobra.Command{
	Use:   "call <tool>",
	Short: "invoke one tool and print the response",
	Long: `call invokes a single tool via tools/call and prints the server's response
verbatim. A response carrying a JSON-RPC error object is printed the same
way; deciding what a remote error means is left to the caller.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var arguments map[string]any
		if err := json.Unmarshal([]byte(callArgs), &arguments); err != nil {
			return fmt.Errorf("invalid --args: %w", err)
		}

		sess, shutdown, err := dial()
		if err != nil {
			return err
		}
		defer shutdown()

		res, err := sess.CallTool(args[0], arguments)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}
