package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_search_requests_total",
			Help: "Total search-provider calls, by provider and outcome",
		},
		[]string{"provider", "status"},
	)

	SearchRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_search_retries_total",
			Help: "Total search-provider retries after retryable failures",
		},
		[]string{"provider"},
	)

	WebsiteFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_website_fetches_total",
			Help: "Total website fetches during enrichment, by outcome",
		},
		[]string{"status"},
	)

	WebsiteFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadscout_website_fetch_duration_seconds",
			Help:    "Duration of website fetches in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"status"},
	)

	LeadsDiscoveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadscout_leads_discovered_total",
			Help: "Total candidate leads discovered across all runs",
		},
	)

	LeadsEnrichedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_leads_enriched_total",
			Help: "Total lead enrichment attempts, by result",
		},
		[]string{"result"},
	)

	RowFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_row_failures_total",
			Help: "Per-row failures recorded during pipeline runs, by stage",
		},
		[]string{"stage"},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadscout_proxy_failures_total",
			Help: "Total proxy failures during website fetches",
		},
		[]string{"proxy_url"},
	)
)

// RecordSearch counts one provider call. retries is how many extra attempts
// the gateway spent before this outcome.
func RecordSearch(provider, status string, retries int) {
	SearchRequestsTotal.WithLabelValues(provider, status).Inc()
	if retries > 0 {
		SearchRetriesTotal.WithLabelValues(provider).Add(float64(retries))
	}
}

// RecordFetch counts one website fetch and its latency.
func RecordFetch(status string, duration time.Duration) {
	WebsiteFetchesTotal.WithLabelValues(status).Inc()
	WebsiteFetchDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		// Suppress the error from intentional shutdown
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// Handler returns the prometheus scrape handler for mounting on an existing
// router.
func Handler() http.Handler {
	return promhttp.Handler()
}
