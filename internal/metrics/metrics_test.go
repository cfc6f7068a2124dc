package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsServer(t *testing.T) {
	srv := Start(8888)
	// Give it a tiny bit of time to start up
	time.Sleep(100 * time.Millisecond)

	defer srv.Stop(context.Background())

	RecordSearch("serper", "ok", 2)
	RecordFetch("ok", 1*time.Second)
	LeadsDiscoveredTotal.Add(3)

	resp, err := http.Get("http://localhost:8888/metrics")
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	output := string(body)

	if !strings.Contains(output, `leadscout_search_requests_total{provider="serper",status="ok"}`) {
		t.Errorf("expected leadscout_search_requests_total metric")
	}

	if !strings.Contains(output, `leadscout_search_retries_total{provider="serper"}`) {
		t.Errorf("expected leadscout_search_retries_total metric")
	}

	if !strings.Contains(output, "leadscout_website_fetch_duration_seconds_bucket") {
		t.Errorf("expected leadscout_website_fetch_duration_seconds metric")
	}

	if !strings.Contains(output, "leadscout_leads_discovered_total") {
		t.Errorf("expected leadscout_leads_discovered_total metric")
	}
}

func TestHandler(t *testing.T) {
	RecordFetch("error", 50*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `leadscout_website_fetches_total{status="error"}`) {
		t.Errorf("expected fetch counter in handler output")
	}
}
