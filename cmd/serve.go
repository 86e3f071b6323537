package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/preview-cli/internal/card"
	"github.com/sells-group/preview-cli/internal/model"
	"github.com/sells-group/preview-cli/internal/monitoring"
	"github.com/sells-group/preview-cli/internal/orchestrator"
	"github.com/sells-group/preview-cli/internal/platform"
	"github.com/sells-group/preview-cli/internal/render"
	"github.com/sells-group/preview-cli/internal/resilience"
	"github.com/sells-group/preview-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the preview HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		platforms, err := loadPlatforms("")
		if err != nil {
			return err
		}

		srvDeps := &server{platforms: platforms}
		orchOpts := []orchestrator.Option{orchestrator.WithBreaker(newBreaker("preview-submit"))}
		if st := openLedger(ctx); st != nil {
			defer st.Close() //nolint:errcheck
			srvDeps.store = st
			orchOpts = append(orchOpts, orchestrator.WithObserver(store.Observer(st)))
		}
		srvDeps.orch = newOrchestrator(newAPIClient(), orchOpts...)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           srvDeps.routes(cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// server holds the handlers' dependencies. store may be nil.
type server struct {
	orch      *orchestrator.Orchestrator
	store     store.Store
	platforms []platform.Config
}

func (s *server) routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/cards", s.handleCard)
		r.Post("/platforms", s.handlePlatforms)
		r.Post("/previews", s.handlePreview)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{jobID}", s.handleGetJob)
		r.Get("/stats", s.handleStats)
	})
	return r
}

// handleCard renders a posted ReconstructionResult as card JSON or an HTML page.
func (s *server) handleCard(w http.ResponseWriter, r *http.Request) {
	result, err := decodeResult(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid result body")
		return
	}
	tmpl := r.URL.Query().Get("template")
	if tmpl != "" && !isTemplate(tmpl) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown template %q", tmpl))
		return
	}
	c := cardFor(result, tmpl)

	if r.URL.Query().Get("format") == formatHTML {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := render.Page(w, result, c); err != nil {
			zap.L().Error("render page failed", zap.Error(err))
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"card": c, "og": render.OGDocument(result)})
}

func (s *server) handlePlatforms(w http.ResponseWriter, r *http.Request) {
	result, err := decodeResult(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid result body")
		return
	}
	cfgs := s.platforms
	if only := r.URL.Query().Get("only"); only != "" {
		cfgs, err = selectPlatforms(s.platforms, strings.Split(only, ","))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	cards := platform.FormatAll(result, cfgs)

	if r.URL.Query().Get("format") == formatHTML {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := render.PlatformsHTML(w, cards); err != nil {
			zap.L().Error("render platforms failed", zap.Error(err))
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"platforms": cards})
}

// handlePreview runs a job to completion within the request.
func (s *server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var jobID string
	result, err := s.orch.Run(r.Context(), req.URL, orchestrator.OnUpdate(func(u orchestrator.Update) {
		if u.Phase == orchestrator.PhaseSubmitted {
			jobID = u.JobID
		}
	}))
	if err != nil {
		status := previewErrorStatus(err)
		zap.L().Warn("preview request failed",
			zap.String("url", req.URL),
			zap.Int("status", status),
			zap.Error(err),
		)
		writeJSON(w, status, map[string]string{"error": err.Error(), "job_id": jobID})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"job_id": jobID,
		"card":   card.Render(result),
		"og":     render.OGDocument(result),
	})
}

func previewErrorStatus(err error) int {
	var (
		ve *orchestrator.ValidationError
		se *orchestrator.SubmissionError
		te *orchestrator.TimeoutError
		fe *orchestrator.JobFailedError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, resilience.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.As(err, &se):
		if se.StatusCode == http.StatusPaymentRequired || se.StatusCode == http.StatusTooManyRequests {
			return se.StatusCode
		}
		return http.StatusBadGateway
	case errors.As(err, &te):
		return http.StatusGatewayTimeout
	case errors.As(err, &fe):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusServiceUnavailable
	}
}

func (s *server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "job ledger disabled")
		return
	}
	q := r.URL.Query()
	filter := store.JobFilter{
		State:   model.JobState(q.Get("state")),
		Outcome: q.Get("outcome"),
		URL:     q.Get("url"),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	jobs, err := s.store.ListJobs(r.Context(), filter)
	if err != nil {
		zap.L().Error("list jobs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list jobs failed")
		return
	}
	if jobs == nil {
		jobs = []model.JobRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "job ledger disabled")
		return
	}
	job, err := s.store.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		zap.L().Error("get job failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get job failed")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "job ledger disabled")
		return
	}
	hours := 24
	if v, err := strconv.Atoi(r.URL.Query().Get("hours")); err == nil && v > 0 {
		hours = v
	}
	snap, err := monitoring.NewCollector(s.store).Collect(r.Context(), hours)
	if err != nil {
		zap.L().Error("collect stats failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "collect stats failed")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func isTemplate(s string) bool {
	for _, t := range card.Templates {
		if string(t) == s {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
