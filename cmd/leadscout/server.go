package main

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/FranksOps/leadscout/internal/config"
	"github.com/FranksOps/leadscout/internal/export"
	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/metrics"
	"github.com/FranksOps/leadscout/internal/pipeline"
	"github.com/FranksOps/leadscout/internal/query"
	"github.com/FranksOps/leadscout/internal/report"
	"github.com/FranksOps/leadscout/internal/store"
)

type api struct {
	store  store.Store
	orch   *pipeline.Orchestrator
	cfg    *config.Config
	logger *slog.Logger
}

func newRouter(st store.Store, orch *pipeline.Orchestrator, cfg *config.Config, logger *slog.Logger) http.Handler {
	a := &api{store: st, orch: orch, cfg: cfg, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(a.requireCronAuth)
		r.Post("/jobs/discover", a.handleDiscover)
		r.Post("/jobs/enrich", a.handleEnrich)
	})

	r.Get("/leads/export.csv", a.handleExportCSV)
	r.Get("/leads/summary", a.handleSummary)

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds())
		})
	}
}

// requireCronAuth gates the job endpoints behind a shared bearer secret.
// With no secret configured the endpoints are open, which is only sensible
// in local development.
func (a *api) requireCronAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.CronSecret == "" {
			next.ServeHTTP(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(a.cfg.CronSecret)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type discoverRequest struct {
	Niches    []string `json:"niches"`
	Locations []string `json:"locations"`
	Intent    []string `json:"intent"`
	Exclude   []string `json:"exclude"`
	Limit     int      `json:"limit"`
	PerQuery  int      `json:"perQuery"`
}

func (a *api) handleDiscover(w http.ResponseWriter, r *http.Request) {
	var req discoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// An empty trigger (cron, curl -X POST) falls back to the configured
	// default facets.
	if len(req.Niches) == 0 {
		req.Niches = a.cfg.DiscoverNiches
		if len(req.Locations) == 0 {
			req.Locations = a.cfg.DiscoverPlaces
		}
	}

	reportOut, err := a.orch.Discover(r.Context(), query.Params{
		Niches:    req.Niches,
		Locations: req.Locations,
		Intent:    req.Intent,
		Exclude:   req.Exclude,
		Limit:     req.Limit,
		PerQuery:  req.PerQuery,
	})
	if err != nil {
		var verr *query.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		a.logger.Error("discovery run failed", "err", err)
		writeError(w, http.StatusInternalServerError, "discovery run failed")
		return
	}
	writeRunReport(w, r, reportOut)
}

func (a *api) handleEnrich(w http.ResponseWriter, r *http.Request) {
	batch := 0
	if raw := r.URL.Query().Get("batch"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "batch must be a non-negative integer")
			return
		}
		batch = v
	}

	reportOut, err := a.orch.EnrichPending(r.Context(), batch)
	if err != nil {
		a.logger.Error("enrichment run failed", "err", err)
		writeError(w, http.StatusInternalServerError, "enrichment run failed")
		return
	}
	writeRunReport(w, r, reportOut)
}

// writeRunReport renders a run report as JSON, or as plain text when the
// caller asks for it (handy for curl and cron mail).
func writeRunReport(w http.ResponseWriter, r *http.Request, rep *pipeline.RunReport) {
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := report.WriteRunText(w, rep); err != nil {
			http.Error(w, "report rendering failed", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (a *api) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	f := store.Filter{}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := lead.ParseStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.Status = status
	}
	if raw := r.URL.Query().Get("minScore"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "minScore must be an integer")
			return
		}
		f.MinScore = v
	}

	leads, err := a.store.List(r.Context(), f)
	if err != nil {
		a.logger.Error("lead export failed", "err", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="leads.csv"`)
	if err := export.WriteCSV(w, leads); err != nil {
		a.logger.Error("csv rendering failed", "err", err)
	}
}

func (a *api) handleSummary(w http.ResponseWriter, r *http.Request) {
	leads, err := a.store.List(r.Context(), store.Filter{})
	if err != nil {
		a.logger.Error("summary query failed", "err", err)
		writeError(w, http.StatusInternalServerError, "summary failed")
		return
	}
	summary := report.GenerateSummary(leads)
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := report.WriteSummaryText(w, summary); err != nil {
			http.Error(w, "report rendering failed", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := a.store.Count(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
