package main

import (
	"os"

	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render <result.json>",
	Short: "Render a saved reconstruction result",
	Long:  "Reads a ReconstructionResult JSON document (\"-\" for stdin) and renders its card without contacting the backend.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := outputOptionsFromFlags(cmd)
		if err != nil {
			return err
		}
		result, err := readResult(args[0])
		if err != nil {
			return err
		}
		return writeResult(os.Stdout, result, opts)
	},
}

func init() {
	addOutputFlags(renderCmd)
	rootCmd.AddCommand(renderCmd)
}
