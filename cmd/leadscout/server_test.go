package main

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FranksOps/leadscout/internal/config"
	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/pipeline"
	"github.com/FranksOps/leadscout/internal/store"
	"github.com/FranksOps/leadscout/internal/store/sqlite"
)

func newTestAPI(t *testing.T, secret string) (http.Handler, store.Store) {
	t.Helper()
	st, err := sqlite.New(filepath.Join(t.TempDir(), "leads.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{CronSecret: secret}
	orch := pipeline.New(st, nil, nil, nil, pipeline.Config{}, logger)
	return newRouter(st, orch, cfg, logger), st
}

func TestHealthz(t *testing.T) {
	handler, _ := newTestAPI(t, "")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("expected ok body, got %s", rec.Body.String())
	}
}

func TestJobEndpointsRequireBearerSecret(t *testing.T) {
	handler, _ := newTestAPI(t, "topsecret")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/discover", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/jobs/discover", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", rec.Code)
	}

	// Correct token but no niches configured anywhere: a validation error,
	// not an auth error.
	req = httptest.NewRequest(http.MethodPost, "/jobs/discover", nil)
	req.Header.Set("Authorization", "Bearer topsecret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty niches, got %d", rec.Code)
	}
}

func TestDiscoverRejectsMalformedBody(t *testing.T) {
	handler, _ := newTestAPI(t, "")

	req := httptest.NewRequest(http.MethodPost, "/jobs/discover", strings.NewReader("{broken"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestExportCSV(t *testing.T) {
	handler, st := newTestAPI(t, "")

	l := &lead.Lead{Username: "glow.studio", Followers: 1200, Website: "https://glow.example"}
	if _, err := st.Upsert(context.Background(), l); err != nil {
		t.Fatalf("failed to seed lead: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leads/export.csv", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected text/csv content type, got %q", ct)
	}

	records, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header + 1 row, got %d records", len(records))
	}
	if records[1][1] != "glow.studio" {
		t.Errorf("expected glow.studio row, got %q", records[1][1])
	}
}

func TestExportCSVRejectsBadStatus(t *testing.T) {
	handler, _ := newTestAPI(t, "")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leads/export.csv?status=bogus", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}
}

func TestSummary(t *testing.T) {
	handler, st := newTestAPI(t, "")

	for _, username := range []string{"a.studio", "b.studio"} {
		if _, err := st.Upsert(context.Background(), &lead.Lead{Username: username}); err != nil {
			t.Fatalf("failed to seed %s: %v", username, err)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leads/summary", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"TotalLeads":2`) {
		t.Errorf("expected summary with 2 leads, got %s", rec.Body.String())
	}
}
