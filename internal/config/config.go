package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every process-level setting, read once at startup and
// passed into constructors. Components never read the environment
// themselves.
type Config struct {
	// Search providers; first configured wins.
	SerperAPIKey  string
	SerpAPIKey    string
	SearchGL      string
	SearchHL      string
	SearchTimeout time.Duration

	// Storage: Postgres when DatabaseURL is set, SQLite otherwise.
	DatabaseURL string
	SQLitePath  string

	// HTTP API.
	ListenAddr string
	CronSecret string

	// Prometheus metrics listener port; 0 disables the separate server.
	MetricsPort int

	// Pipeline tuning.
	Concurrency     int
	EnrichBatch     int
	Staleness       time.Duration
	ContactQueries  int
	ContactResults  int

	// Website fetching.
	FetchTimeout time.Duration
	// FetchRPS paces website fetches; 0 disables pacing.
	FetchRPS    float64
	Fingerprint string
	ProxyFile   string
	Proxies     []string

	// Optional cron schedules; empty disables the schedule.
	DiscoverCron   string
	EnrichCron     string
	DiscoverNiches []string
	DiscoverPlaces []string
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		SerperAPIKey:   os.Getenv("SERPER_API_KEY"),
		SerpAPIKey:     envDefault("SERPAPI_KEY", os.Getenv("SERPAPI_API_KEY")),
		SearchGL:       os.Getenv("SEARCH_GL"),
		SearchHL:       os.Getenv("SEARCH_HL"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		SQLitePath:     envDefault("SQLITE_PATH", "leadscout.db"),
		ListenAddr:     envDefault("LISTEN_ADDR", ":8080"),
		CronSecret:     os.Getenv("CRON_SECRET"),
		Fingerprint:    envDefault("FETCH_FINGERPRINT", "chrome"),
		ProxyFile:      os.Getenv("PROXY_FILE"),
		Proxies:        splitList(os.Getenv("PROXIES")),
		DiscoverCron:   os.Getenv("DISCOVER_CRON"),
		EnrichCron:     os.Getenv("ENRICH_CRON"),
		DiscoverNiches: splitList(os.Getenv("DISCOVER_NICHES")),
		DiscoverPlaces: splitList(os.Getenv("DISCOVER_LOCATIONS")),
	}

	var err error
	if cfg.SearchTimeout, err = envDuration("SEARCH_TIMEOUT", 20*time.Second); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = envDuration("FETCH_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.Staleness, err = envDuration("ENRICH_STALENESS", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.MetricsPort, err = envInt("METRICS_PORT", 0); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = envInt("PIPELINE_CONCURRENCY", 3); err != nil {
		return nil, err
	}
	if cfg.EnrichBatch, err = envInt("ENRICH_BATCH", 25); err != nil {
		return nil, err
	}
	if cfg.ContactQueries, err = envInt("CONTACT_MAX_QUERIES", 2); err != nil {
		return nil, err
	}
	if cfg.ContactResults, err = envInt("CONTACT_RESULTS_PER_QUERY", 5); err != nil {
		return nil, err
	}
	if cfg.FetchRPS, err = envFloat("FETCH_RPS", 0); err != nil {
		return nil, err
	}
	return cfg, nil
}

// HasProvider reports whether at least one search provider is configured.
func (c *Config) HasProvider() bool {
	return c.SerperAPIKey != "" || c.SerpAPIKey != ""
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
