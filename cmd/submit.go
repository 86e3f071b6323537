package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/preview-cli/internal/orchestrator"
	"github.com/sells-group/preview-cli/internal/store"
)

var submitCmd = &cobra.Command{
	Use:   "submit <url>",
	Short: "Generate a preview card for a URL and wait for it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("submit"); err != nil {
			return err
		}
		opts, err := outputOptionsFromFlags(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var orchOpts []orchestrator.Option
		if noLedger, _ := cmd.Flags().GetBool("no-ledger"); !noLedger {
			if st := openLedger(ctx); st != nil {
				defer st.Close() //nolint:errcheck
				orchOpts = append(orchOpts, orchestrator.WithObserver(store.Observer(st)))
			}
		}
		orch := newOrchestrator(newAPIClient(), orchOpts...)

		quiet, _ := cmd.Flags().GetBool("quiet")
		var progress io.Writer = os.Stderr
		if quiet {
			progress = io.Discard
		}

		result, err := orch.Run(ctx, args[0], orchestrator.OnUpdate(func(u orchestrator.Update) {
			printProgress(progress, u)
		}))
		if err != nil {
			return eris.Wrapf(err, "submit %s", args[0])
		}

		zap.L().Info("preview ready", zap.String("url", args[0]), zap.String("template", result.Blueprint.TemplateType))
		return writeResult(os.Stdout, result, opts)
	},
}

// printProgress writes one human-readable line per update.
func printProgress(w io.Writer, u orchestrator.Update) {
	switch u.Phase {
	case orchestrator.PhaseSubmitted:
		fmt.Fprintf(w, "submitted %s as job %s\n", u.URL, u.JobID)
	case orchestrator.PhasePolled:
		fmt.Fprintf(w, "  poll %d: %s\n", u.Polls, u.Snapshot.State)
	case orchestrator.PhasePollError:
		fmt.Fprintf(w, "  poll %d: error: %v\n", u.Polls, u.Err)
	case orchestrator.PhaseFinished:
		fmt.Fprintf(w, "job %s finished after %d polls\n", u.JobID, u.Polls)
	default:
		fmt.Fprintf(w, "job %s %s: %v\n", u.JobID, u.Phase, u.Err)
	}
}

func init() {
	addOutputFlags(submitCmd)
	submitCmd.Flags().Bool("no-ledger", false, "do not record the job in the ledger")
	submitCmd.Flags().BoolP("quiet", "q", false, "suppress progress output")
	rootCmd.AddCommand(submitCmd)
}
