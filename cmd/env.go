package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/preview-cli/internal/model"
	"github.com/sells-group/preview-cli/internal/orchestrator"
	"github.com/sells-group/preview-cli/internal/platform"
	"github.com/sells-group/preview-cli/internal/resilience"
	"github.com/sells-group/preview-cli/internal/store"
	"github.com/sells-group/preview-cli/pkg/previewapi"
)

func newAPIClient() previewapi.Client {
	timeout := time.Duration(cfg.API.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return previewapi.NewClient(cfg.API.Key,
		previewapi.WithBaseURL(cfg.API.BaseURL),
		previewapi.WithRateLimit(cfg.API.RateLimit),
		previewapi.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
}

func newBreaker(name string) *resilience.CircuitBreaker {
	cbCfg := resilience.FromCircuitConfig(cfg.Circuit.FailureThreshold, cfg.Circuit.ResetTimeoutSecs)
	cbCfg.OnStateChange = resilience.LogStateChanges(name)
	return resilience.NewCircuitBreaker(cbCfg)
}

func retryConfig(operation string) resilience.RetryConfig {
	rc := resilience.FromRetryConfig(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs, cfg.Retry.Multiplier)
	rc.OnRetry = resilience.RetryLogger(operation)
	return rc
}

// newOrchestrator wires the configured poll cadence plus any extra options.
func newOrchestrator(backend orchestrator.Backend, opts ...orchestrator.Option) *orchestrator.Orchestrator {
	base := []orchestrator.Option{
		orchestrator.WithInterval(cfg.Poll.Interval()),
		orchestrator.WithTimeout(cfg.Poll.Timeout()),
	}
	return orchestrator.New(backend, append(base, opts...)...)
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "preview.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openLedger opens and migrates the job ledger. A ledger that cannot be
// opened is logged and skipped; jobs still run without history.
func openLedger(ctx context.Context) store.Store {
	st, err := initStore(ctx)
	if err == nil {
		err = st.Migrate(ctx)
		if err != nil {
			st.Close() //nolint:errcheck
		}
	}
	if err != nil {
		zap.L().Warn("job ledger unavailable, continuing without history", zap.Error(err))
		return nil
	}
	return st
}

func loadPlatforms(override string) ([]platform.Config, error) {
	path := override
	if path == "" {
		path = cfg.Platforms.ConfigPath
	}
	return platform.LoadConfigs(path)
}

// readResult decodes a ReconstructionResult from path, or stdin for "-".
func readResult(path string) (*model.ReconstructionResult, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "open %s", path)
		}
		defer f.Close() //nolint:errcheck
		r = f
	}
	return decodeResult(r)
}

func decodeResult(r io.Reader) (*model.ReconstructionResult, error) {
	var res model.ReconstructionResult
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, eris.Wrap(err, "decode result")
	}
	return &res, nil
}
