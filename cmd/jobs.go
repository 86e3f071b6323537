package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/preview-cli/internal/model"
	"github.com/sells-group/preview-cli/internal/monitoring"
	"github.com/sells-group/preview-cli/internal/store"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect preview job history",
	Long:  "Commands for listing, viewing, and pruning the local job ledger.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return cfg.Validate("jobs")
	},
}

// -- jobs list --

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List preview jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		state, _ := cmd.Flags().GetString("state")
		outcome, _ := cmd.Flags().GetString("outcome")
		url, _ := cmd.Flags().GetString("url")
		limit, _ := cmd.Flags().GetInt("limit")

		jobs, err := st.ListJobs(ctx, store.JobFilter{
			State:   model.JobState(state),
			Outcome: outcome,
			URL:     url,
			Limit:   limit,
		})
		if err != nil {
			return eris.Wrap(err, "jobs list")
		}

		if len(jobs) == 0 {
			fmt.Fprintln(os.Stderr, "No jobs found.")
			return nil
		}

		formatJobsList(os.Stdout, jobs)
		return nil
	},
}

// -- jobs show --

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show one job's ledger entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		job, err := st.GetJob(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "jobs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(job)
	},
}

// -- jobs prune --

var jobsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete ledger entries older than a cutoff",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		olderThan, _ := cmd.Flags().GetDuration("older-than")
		n, err := st.DeleteBefore(ctx, time.Now().Add(-olderThan))
		if err != nil {
			return eris.Wrap(err, "jobs prune")
		}
		fmt.Fprintf(os.Stdout, "Deleted %d jobs.\n", n)
		return nil
	},
}

// -- jobs stats --

var jobsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize recent job outcomes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		hours, _ := cmd.Flags().GetInt("hours")
		asJSON, _ := cmd.Flags().GetBool("json")

		snap, err := monitoring.NewCollector(st).Collect(ctx, hours)
		if err != nil {
			return eris.Wrap(err, "jobs stats")
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}
		formatJobStats(os.Stdout, snap)
		return nil
	},
}

func init() {
	jobsListCmd.Flags().String("state", "", "filter by backend state (queued, started, finished, failed)")
	jobsListCmd.Flags().String("outcome", "", "filter by outcome (pending, finished, failed, timeout, cancelled)")
	jobsListCmd.Flags().String("url", "", "filter by submitted URL")
	jobsListCmd.Flags().Int("limit", 50, "max number of jobs to display")

	jobsPruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "delete jobs created before now minus this duration")

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	jobsStatsCmd.Flags().Int("hours", 24, "lookback window in hours")
	jobsStatsCmd.Flags().Bool("json", false, "print the snapshot as JSON")

	jobsCmd.AddCommand(jobsPruneCmd)
	jobsCmd.AddCommand(jobsStatsCmd)
	rootCmd.AddCommand(jobsCmd)
}

// formatJobsList writes a tabular list of jobs to w.
func formatJobsList(out io.Writer, jobs []model.JobRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "JOB\tURL\tSTATE\tOUTCOME\tTEMPLATE\tPOLLS\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "---\t---\t-----\t-------\t--------\t-----\t-------\t--------")

	for _, j := range jobs {
		url := j.URL
		if len(url) > 40 {
			url = url[:37] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			truncateID(j.JobID),
			url,
			j.State,
			j.Outcome,
			j.Template,
			j.Polls,
			j.CreatedAt.Format("2006-01-02 15:04"),
			j.UpdatedAt.Sub(j.CreatedAt).Round(time.Second).String(),
		)
	}
	_ = w.Flush()
}

// formatJobStats writes a summary table of a stats snapshot to w.
func formatJobStats(out io.Writer, snap *monitoring.Snapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Window:\tlast %dh\n", snap.LookbackHours)
	_, _ = fmt.Fprintf(w, "Total:\t%d\n", snap.Total)
	_, _ = fmt.Fprintf(w, "Finished:\t%d\n", snap.Finished)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", snap.Failed)
	_, _ = fmt.Fprintf(w, "Timeout:\t%d\n", snap.Timeout)
	_, _ = fmt.Fprintf(w, "Cancelled:\t%d\n", snap.Cancelled)
	_, _ = fmt.Fprintf(w, "Pending:\t%d\n", snap.Pending)
	_, _ = fmt.Fprintf(w, "Fail rate:\t%.1f%%\n", snap.FailRate*100)
	_, _ = fmt.Fprintf(w, "Avg polls:\t%.1f\n", snap.AvgPolls)
	_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", snap.AvgDurationSecs)
	_ = w.Flush()

	if len(snap.Templates) == 0 {
		return
	}
	names := make([]string, 0, len(snap.Templates))
	for name := range snap.Templates {
		names = append(names, name)
	}
	sort.Strings(names)

	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TEMPLATE\tCARDS")
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", name, snap.Templates[name])
	}
	_ = w.Flush()
}

// truncateID returns the first 12 characters of a job id for compact display.
func truncateID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
