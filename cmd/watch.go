package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/preview-cli/internal/orchestrator"
	"github.com/sells-group/preview-cli/internal/store"
	"github.com/sells-group/preview-cli/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Interactive preview generation",
	Long:  "Opens a terminal UI with a single URL input. Submitting a new URL cancels the job in progress; esc cancels it outright.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("watch"); err != nil {
			return err
		}
		ctx := cmd.Context()

		var orchOpts []orchestrator.Option
		if st := openLedger(ctx); st != nil {
			defer st.Close() //nolint:errcheck
			orchOpts = append(orchOpts, orchestrator.WithObserver(store.Observer(st)))
		}
		return tui.Start(ctx, newOrchestrator(newAPIClient(), orchOpts...))
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
