package serp

import (
	"context"
	"errors"
	"fmt"
)

// Result is one normalized search hit. Any field may be empty; providers
// differ in what they return per hit.
type Result struct {
	Title   string `json:"title,omitempty"`
	Link    string `json:"link,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// Provider abstracts a web-search backend. Implementations issue a single
// HTTP call per Search; retry and fallback live in the Gateway.
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string
	// Search returns up to num results for the query.
	Search(ctx context.Context, query string, num int) ([]Result, error)
}

// ErrNoProvider is returned when no search provider is configured. It is a
// setup failure and surfaces to the operator unretried.
var ErrNoProvider = errors.New("no search provider configured: set SERPER_API_KEY or SERPAPI_KEY")

// ProviderError is a classified failure from a search provider. Status
// carries the HTTP status when one was received; zero means a transport
// error (timeout, connection refused), which is always retryable.
type ProviderError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is worth another attempt: rate
// limiting, server errors, and transport-level failures qualify.
func (e *ProviderError) Retryable() bool {
	if e.Status == 0 {
		return true
	}
	return e.Status == 429 || (e.Status >= 500 && e.Status <= 599)
}
