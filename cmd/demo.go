package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/preview-cli/internal/model"
	"github.com/sells-group/preview-cli/internal/orchestrator"
	"github.com/sells-group/preview-cli/internal/resilience"
	"github.com/sells-group/preview-cli/pkg/previewapi"
)

var demoCmd = &cobra.Command{
	Use:   "demo <url>",
	Short: "Render a preview from the synchronous demo endpoint",
	Long:  "Calls the unauthenticated demo endpoint, which returns a result directly instead of a job. Transient failures are retried.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("demo"); err != nil {
			return err
		}
		opts, err := outputOptionsFromFlags(cmd)
		if err != nil {
			return err
		}

		client := previewapi.NewClient("", previewapi.WithBaseURL(cfg.API.BaseURL), previewapi.WithRateLimit(cfg.API.RateLimit))
		result, err := fetchDemo(cmd.Context(), client, args[0], retryConfig("demo preview"))
		if err != nil {
			return err
		}
		return writeResult(os.Stdout, result, opts)
	},
}

func fetchDemo(ctx context.Context, client previewapi.Client, rawURL string, rc resilience.RetryConfig) (*model.ReconstructionResult, error) {
	if err := orchestrator.ValidateURL(rawURL); err != nil {
		return nil, err
	}
	result, err := resilience.DoVal(ctx, rc, func(ctx context.Context) (*model.ReconstructionResult, error) {
		return client.DemoPreview(ctx, previewapi.SubmitRequest{URL: rawURL})
	})
	if err != nil {
		return nil, eris.Wrapf(err, "demo %s", rawURL)
	}
	if result.URL == "" {
		result.URL = rawURL
	}
	return result, nil
}

func init() {
	addOutputFlags(demoCmd)
	rootCmd.AddCommand(demoCmd)
}
