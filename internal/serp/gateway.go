package serp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/FranksOps/leadscout/internal/metrics"
	"github.com/FranksOps/leadscout/pkg/ratelimit"
)

// GatewayConfig tunes the retry policy around provider calls.
type GatewayConfig struct {
	// MaxAttempts is the total attempt ceiling per Search call (default 4).
	MaxAttempts int
	// BaseDelay seeds the exponential backoff between attempts (default 450ms).
	BaseDelay time.Duration
	// MaxJitter is the random slack added to each backoff delay (default 150ms).
	MaxJitter time.Duration
}

// Gateway fronts an ordered preference list of providers with retry,
// backoff, and failure classification. It keeps no state between calls.
type Gateway struct {
	providers []Provider
	cfg       GatewayConfig
	logger    *slog.Logger
}

// NewGateway builds a gateway over providers in preference order. At least
// one provider is required; callers see ErrNoProvider otherwise.
func NewGateway(providers []Provider, cfg GatewayConfig, logger *slog.Logger) (*Gateway, error) {
	var configured []Provider
	for _, p := range providers {
		if p != nil {
			configured = append(configured, p)
		}
	}
	if len(configured) == 0 {
		return nil, ErrNoProvider
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 4
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 450 * time.Millisecond
	}
	if cfg.MaxJitter <= 0 {
		cfg.MaxJitter = 150 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Gateway{providers: configured, cfg: cfg, logger: logger}, nil
}

// Provider returns the active (first-preference) provider.
func (g *Gateway) Provider() Provider { return g.providers[0] }

// Search runs the query through the preferred provider, retrying retryable
// failures with exponential backoff. Terminal failures and exhausted retries
// surface as a ProviderError.
func (g *Gateway) Search(ctx context.Context, query string, num int) ([]Result, error) {
	p := g.Provider()

	var lastErr error
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		results, err := p.Search(ctx, query, num)
		if err == nil {
			metrics.RecordSearch(p.Name(), "ok", attempt-1)
			return results, nil
		}
		lastErr = err

		var perr *ProviderError
		retryable := errors.As(err, &perr) && perr.Retryable()

		status := "error"
		if perr != nil && perr.Status > 0 {
			status = strconv.Itoa(perr.Status)
		}

		if !retryable || attempt == g.cfg.MaxAttempts {
			metrics.RecordSearch(p.Name(), status, attempt-1)
			break
		}

		g.logger.Warn("search attempt failed, backing off",
			"provider", p.Name(), "attempt", attempt, "err", err)

		if err := ratelimit.SleepBackoff(ctx, attempt, g.cfg.BaseDelay, g.cfg.MaxJitter); err != nil {
			return nil, err
		}
	}

	var perr *ProviderError
	if errors.As(lastErr, &perr) {
		return nil, perr
	}
	return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("search failed: %w", lastErr)}
}
