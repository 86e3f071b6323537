package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/preview-cli/internal/card"
	"github.com/sells-group/preview-cli/internal/model"
	"github.com/sells-group/preview-cli/internal/orchestrator"
	"github.com/sells-group/preview-cli/internal/store"
)

var batchCmd = &cobra.Command{
	Use:   "batch [url...]",
	Short: "Generate previews for many URLs concurrently",
	Long:  "Runs one job per URL with bounded concurrency. All jobs share a circuit breaker, so a failing backend stops new submissions instead of queueing doomed jobs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("batch"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		urls := args
		if path, _ := cmd.Flags().GetString("file"); path != "" {
			fromFile, err := readURLFile(path)
			if err != nil {
				return err
			}
			urls = append(urls, fromFile...)
		}
		if len(urls) == 0 {
			return eris.New("batch: no urls (pass them as arguments or with --file)")
		}

		concurrency, _ := cmd.Flags().GetInt("concurrency")
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrent
		}

		orchOpts := []orchestrator.Option{orchestrator.WithBreaker(newBreaker("preview-submit"))}
		if st := openLedger(ctx); st != nil {
			defer st.Close() //nolint:errcheck
			orchOpts = append(orchOpts, orchestrator.WithObserver(store.Observer(st)))
		}
		orch := newOrchestrator(newAPIClient(), orchOpts...)

		results := processBatch(ctx, urls, concurrency, func(ctx context.Context, url string) (*model.ReconstructionResult, error) {
			return orch.Run(ctx, url)
		})
		formatBatchResults(os.Stdout, results)
		return nil
	},
}

func init() {
	batchCmd.Flags().String("file", "", "file with one URL per line (# comments allowed)")
	batchCmd.Flags().Int("concurrency", 0, "max concurrent jobs (default from config)")
	rootCmd.AddCommand(batchCmd)
}

// readURLFile reads one URL per line, skipping blanks and # comments.
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return readURLs(f)
}

func readURLs(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, eris.Wrap(sc.Err(), "batch: read urls")
}

// runFunc is the callback signature for generating one preview.
type runFunc func(ctx context.Context, url string) (*model.ReconstructionResult, error)

type batchResult struct {
	URL      string
	Outcome  string
	Template string
	Err      error
}

// processBatch runs every URL with bounded concurrency. Individual failures
// are collected, never abort the batch.
func processBatch(ctx context.Context, urls []string, concurrency int, run runFunc) []batchResult {
	zap.L().Info("processing batch",
		zap.Int("urls", len(urls)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	results := make([]batchResult, len(urls))
	var succeeded, failed atomic.Int64

	for i, url := range urls {
		g.Go(func() error {
			log := zap.L().With(zap.String("url", url))

			result, err := run(gctx, url)
			results[i] = batchResult{URL: url, Outcome: outcomeOf(err), Err: err}
			if err != nil {
				failed.Add(1)
				log.Error("preview failed", zap.Error(err))
				return nil
			}

			succeeded.Add(1)
			results[i].Template = string(card.Select(result.Blueprint.TemplateType))
			log.Info("preview complete", zap.String("template", results[i].Template))
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return results
}

func outcomeOf(err error) string {
	var (
		te *orchestrator.TimeoutError
		ve *orchestrator.ValidationError
		se *orchestrator.SubmissionError
	)
	switch {
	case err == nil:
		return model.OutcomeFinished
	case errors.As(err, &te):
		return model.OutcomeTimeout
	case errors.Is(err, context.Canceled):
		return model.OutcomeCancelled
	case errors.As(err, &ve):
		return "invalid"
	case errors.As(err, &se):
		return "rejected"
	default:
		return model.OutcomeFailed
	}
}

// formatBatchResults writes a tabular summary of results to w.
func formatBatchResults(out io.Writer, results []batchResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "URL\tOUTCOME\tTEMPLATE\tERROR")
	_, _ = fmt.Fprintln(w, "---\t-------\t--------\t-----")
	for _, r := range results {
		msg := ""
		if r.Err != nil {
			msg = card.Truncate(r.Err.Error(), 80)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.URL, r.Outcome, r.Template, msg)
	}
	_ = w.Flush()
}
