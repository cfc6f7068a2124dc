// Package httpclient provides a small wrapper over net/http with redirect
// caps, optional cookie persistence, and per-request contexts.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// ErrNilContext is returned when Do is called without a context.
var ErrNilContext = errors.New("nil context")

// Config sets up a Client.
type Config struct {
	Timeout time.Duration
	// MaxRedirects caps redirect chains. Negative disables following
	// redirects entirely; the last response is returned as-is.
	MaxRedirects int
	UseCookieJar bool
	// DefaultHeaders are applied to every request unless the request
	// already sets that header.
	DefaultHeaders map[string]string
	// Transport overrides the default, e.g. for proxies or TLS fingerprinting.
	Transport http.RoundTripper
}

// Client is an http.Client with a redirect policy and default headers baked in.
type Client struct {
	hc       *http.Client
	defaults map[string]string
}

// New builds a Client from cfg. A zero Timeout defaults to 30s.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	hc := &http.Client{
		Timeout:       cfg.Timeout,
		CheckRedirect: redirectPolicy(cfg.MaxRedirects),
	}

	if cfg.UseCookieJar {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		hc.Jar = jar
	}
	if cfg.Transport != nil {
		hc.Transport = cfg.Transport
	}

	return &Client{hc: hc, defaults: cfg.DefaultHeaders}, nil
}

func redirectPolicy(max int) func(*http.Request, []*http.Request) error {
	if max < 0 {
		return func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return fmt.Errorf("stopped after %d redirects", max)
		}
		return nil
	}
}

// Do executes req under ctx. The context governs cancellation independent
// of the client timeout.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	r := req.Clone(ctx)
	for k, v := range c.defaults {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}

	resp, err := c.hc.Do(r)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

// Get issues a GET for url under ctx.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return c.Do(ctx, req)
}
