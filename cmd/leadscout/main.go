package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/FranksOps/leadscout/internal/config"
	"github.com/FranksOps/leadscout/internal/discovery"
	"github.com/FranksOps/leadscout/internal/enrich"
	"github.com/FranksOps/leadscout/internal/fingerprint"
	"github.com/FranksOps/leadscout/internal/metrics"
	"github.com/FranksOps/leadscout/internal/pipeline"
	"github.com/FranksOps/leadscout/internal/query"
	"github.com/FranksOps/leadscout/internal/serp"
	"github.com/FranksOps/leadscout/internal/store"
	"github.com/FranksOps/leadscout/internal/store/postgres"
	"github.com/FranksOps/leadscout/internal/store/sqlite"
	"github.com/FranksOps/leadscout/pkg/proxy"
	"github.com/FranksOps/leadscout/pkg/ratelimit"
	"github.com/FranksOps/leadscout/pkg/useragent"
)

func main() {
	// Missing .env is fine; the environment may be set by the supervisor.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("leadscout exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	gateway, err := buildGateway(cfg, logger)
	if err != nil {
		return err
	}

	analyzer, err := buildAnalyzer(cfg, logger)
	if err != nil {
		return err
	}

	contacts := discovery.New(gateway, logger)

	orch := pipeline.New(st, gateway, contacts, analyzer, pipeline.Config{
		Concurrency: cfg.Concurrency,
		Staleness:   cfg.Staleness,
		EnrichBatch: cfg.EnrichBatch,
		Discovery: discovery.Options{
			MaxQueries:      cfg.ContactQueries,
			ResultsPerQuery: cfg.ContactResults,
		},
	}, logger)

	var metricsSrv *metrics.Server
	if cfg.MetricsPort > 0 {
		metricsSrv = metrics.Start(cfg.MetricsPort)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Stop(shutdownCtx)
		}()
	}

	scheduler, err := startCron(ctx, cfg, orch, logger)
	if err != nil {
		return err
	}
	if scheduler != nil {
		defer scheduler.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newRouter(st, orch, cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http api listening", "addr", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.DatabaseURL != "" {
		return postgres.New(ctx, cfg.DatabaseURL)
	}
	return sqlite.New(cfg.SQLitePath)
}

func buildGateway(cfg *config.Config, logger *slog.Logger) (*serp.Gateway, error) {
	var providers []serp.Provider
	if cfg.SerperAPIKey != "" {
		p, err := serp.NewSerper(cfg.SerperAPIKey, cfg.SearchGL, cfg.SearchHL, cfg.SearchTimeout)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	if cfg.SerpAPIKey != "" {
		p, err := serp.NewSerpAPI(cfg.SerpAPIKey, cfg.SearchGL, cfg.SearchHL, cfg.SearchTimeout)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return serp.NewGateway(providers, serp.GatewayConfig{}, logger)
}

func buildAnalyzer(cfg *config.Config, logger *slog.Logger) (*enrich.Analyzer, error) {
	var pool *proxy.Pool
	if cfg.ProxyFile != "" || len(cfg.Proxies) > 0 {
		pool = proxy.NewPool(proxy.Config{})
		if cfg.ProxyFile != "" {
			if err := pool.LoadFile(cfg.ProxyFile); err != nil {
				return nil, err
			}
		}
		if len(cfg.Proxies) > 0 {
			if err := pool.Add(cfg.Proxies...); err != nil {
				return nil, err
			}
		}
	}

	profile, err := fingerprint.ParseProfile(cfg.Fingerprint)
	if err != nil {
		return nil, err
	}

	var limiter *ratelimit.Limiter
	if cfg.FetchRPS > 0 {
		limiter = ratelimit.NewLimiter(cfg.FetchRPS, 0.2)
	}

	fetcher, err := enrich.NewFetcher(enrich.FetchConfig{
		Timeout:     cfg.FetchTimeout,
		ProxyPool:   pool,
		UAPool:      useragent.NewPool(nil),
		Fingerprint: profile,
		Limiter:     limiter,
	})
	if err != nil {
		return nil, err
	}
	return enrich.NewAnalyzer(fetcher, logger), nil
}

// startCron wires optional scheduled discovery and enrichment runs.
func startCron(ctx context.Context, cfg *config.Config, orch *pipeline.Orchestrator, logger *slog.Logger) (*cron.Cron, error) {
	if cfg.DiscoverCron == "" && cfg.EnrichCron == "" {
		return nil, nil
	}

	c := cron.New()
	if cfg.DiscoverCron != "" {
		if len(cfg.DiscoverNiches) == 0 {
			logger.Warn("discover cron configured without DISCOVER_NICHES, skipping schedule")
		} else {
			_, err := c.AddFunc(cfg.DiscoverCron, func() {
				report, err := orch.Discover(ctx, query.Params{
					Niches:    cfg.DiscoverNiches,
					Locations: cfg.DiscoverPlaces,
				})
				if err != nil {
					logger.Error("scheduled discovery failed", "err", err)
					return
				}
				logger.Info("scheduled discovery finished",
					"discovered", report.Discovered,
					"inserted", report.Inserted,
					"failures", len(report.Failures))
			})
			if err != nil {
				return nil, err
			}
		}
	}
	if cfg.EnrichCron != "" {
		_, err := c.AddFunc(cfg.EnrichCron, func() {
			report, err := orch.EnrichPending(ctx, cfg.EnrichBatch)
			if err != nil {
				logger.Error("scheduled enrichment failed", "err", err)
				return
			}
			logger.Info("scheduled enrichment finished",
				"enriched", report.Enriched,
				"failures", len(report.Failures))
		})
		if err != nil {
			return nil, err
		}
	}

	c.Start()
	return c, nil
}
