package enrich

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FranksOps/leadscout/internal/fingerprint"
	"github.com/FranksOps/leadscout/internal/metrics"
	"github.com/FranksOps/leadscout/pkg/httpclient"
	"github.com/FranksOps/leadscout/pkg/proxy"
	"github.com/FranksOps/leadscout/pkg/ratelimit"
	"github.com/FranksOps/leadscout/pkg/useragent"
)

type contextKey string

const proxyKey contextKey = "proxy_url"

// FetchResult captures one website fetch. A non-empty Error means the fetch
// soft-failed; callers treat that as "no page this attempt", never as a
// pipeline error.
type FetchResult struct {
	URL          string
	StatusCode   int
	Headers      map[string][]string
	Body         []byte
	Duration     time.Duration
	Challenged   bool
	ChallengeSrc string // e.g. "Cloudflare", "Akamai"
	Error        string
}

// OK reports whether the fetch produced a usable page body.
func (r *FetchResult) OK() bool {
	return r != nil && r.Error == "" && !r.Challenged && len(r.Body) > 0 &&
		r.StatusCode >= 200 && r.StatusCode < 400
}

// FetchConfig configures the website fetcher.
type FetchConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	ProxyPool    *proxy.Pool
	UAPool       *useragent.Pool
	Fingerprint  fingerprint.Profile
	Limiter      *ratelimit.Limiter
	// MaxBodyBytes caps how much of a page is read (default 2 MiB); lead
	// sites are small and the analyzer only needs the head of huge ones.
	MaxBodyBytes int64
}

// Fetcher performs single-page website fetches for enrichment. It follows
// redirects, rotates user agents, and never caches.
type Fetcher struct {
	config FetchConfig
	client *httpclient.Client
}

// NewFetcher initializes a Fetcher. By holding a single client across
// requests, connections are pooled for the lifetime of the Fetcher.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = 10
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 2 << 20
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if string(cfg.Fingerprint) == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}
	// Keep the UA header consistent with the TLS ClientHello: a Chrome
	// hello with a Firefox UA is an easy bot tell.
	cfg.UAPool = cfg.UAPool.ForFamily(string(cfg.Fingerprint))

	// Per-request proxy rotation goes through the request context; the
	// transport's Proxy func reads it back out.
	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if val := req.Context().Value(proxyKey); val != nil {
			if u, ok := val.(*url.URL); ok {
				return u, nil
			}
		}
		// Loopback targets (tests, local probes) never go through a proxy.
		if host := req.URL.Hostname(); host == "127.0.0.1" || host == "localhost" || host == "::1" {
			return nil, nil
		}
		return http.ProxyFromEnvironment(req)
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, proxyFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Fetcher{config: cfg, client: client}, nil
}

// NormalizeURL turns a bare hostname into an https URL and validates the
// scheme. Enrichment inputs come from bio links and snippets, which are
// often scheme-less.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty url")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("missing host in %q", raw)
	}
	return u.String(), nil
}

// Fetch executes a GET against the target URL. Transport and read failures
// land in the result's Error field rather than the error return; only a
// malformed input URL is a hard error.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*FetchResult, error) {
	normalized, err := NormalizeURL(targetURL)
	if err != nil {
		return nil, err
	}

	if f.config.Limiter != nil {
		if err := f.config.Limiter.Wait(ctx); err != nil {
			return &FetchResult{URL: normalized, Error: fmt.Sprintf("rate limiter failed: %v", err)}, nil
		}
	}

	start := time.Now()
	result := &FetchResult{URL: normalized}

	var activeProxy *url.URL
	if f.config.ProxyPool != nil {
		activeProxy = f.config.ProxyPool.Next()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, normalized, nil)
	if err != nil {
		result.Error = fmt.Sprintf("failed to create request: %v", err)
		result.Duration = time.Since(start)
		return result, nil
	}

	if activeProxy != nil {
		req = req.WithContext(context.WithValue(req.Context(), proxyKey, activeProxy))
	}

	req.Header.Set("User-Agent", f.config.UAPool.Next())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.client.Do(req.Context(), req)
	if err != nil {
		if activeProxy != nil {
			_ = f.config.ProxyPool.MarkFailure(activeProxy)
			metrics.ProxyFailures.WithLabelValues(activeProxy.String()).Inc()
		}
		result.Error = fmt.Sprintf("request failed: %v", err)
		result.Duration = time.Since(start)
		metrics.RecordFetch("error", result.Duration)
		return result, nil
	}
	defer resp.Body.Close()

	if activeProxy != nil {
		_ = f.config.ProxyPool.MarkSuccess(activeProxy)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodyBytes))
	if err != nil {
		result.Error = fmt.Sprintf("failed to read body: %v", err)
	}

	result.StatusCode = resp.StatusCode
	result.Headers = resp.Header
	result.Body = body
	result.Duration = time.Since(start)

	DetectChallenge(result, DefaultDetectors())

	status := "ok"
	switch {
	case result.Error != "":
		status = "error"
	case result.Challenged:
		status = "challenged"
	case resp.StatusCode >= 400:
		status = "http_error"
	}
	metrics.RecordFetch(status, result.Duration)

	return result, nil
}
