package serp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/FranksOps/leadscout/pkg/httpclient"
)

const serpAPIEndpoint = "https://serpapi.com/search.json"

// SerpAPI is the fallback provider, used when only a serpapi.com key is
// configured.
type SerpAPI struct {
	apiKey   string
	gl, hl   string
	endpoint string
	client   *httpclient.Client
}

// NewSerpAPI builds a SerpAPI provider.
func NewSerpAPI(apiKey, gl, hl string, timeout time.Duration) (*SerpAPI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("serpapi: api key is empty")
	}
	if gl == "" {
		gl = "us"
	}
	if hl == "" {
		hl = "en"
	}
	client, err := httpclient.New(httpclient.Config{Timeout: timeout, MaxRedirects: 3})
	if err != nil {
		return nil, fmt.Errorf("serpapi: %w", err)
	}
	return &SerpAPI{
		apiKey:   apiKey,
		gl:       gl,
		hl:       hl,
		endpoint: serpAPIEndpoint,
		client:   client,
	}, nil
}

func (s *SerpAPI) Name() string { return "serpapi" }

type serpAPIResponse struct {
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

// Search issues one GET to serpapi.com and normalizes the organic results.
func (s *SerpAPI) Search(ctx context.Context, query string, num int) ([]Result, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("api_key", s.apiKey)
	params.Set("num", strconv.Itoa(num))
	params.Set("gl", s.gl)
	params.Set("hl", s.hl)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("serpapi: build request: %w", err)
	}

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, &ProviderError{Provider: s.Name(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &ProviderError{
			Provider: s.Name(),
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("%s", string(msg)),
		}
	}

	var parsed serpAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &ProviderError{Provider: s.Name(), Err: fmt.Errorf("decode response: %w", err)}
	}

	results := make([]Result, 0, len(parsed.OrganicResults))
	for _, r := range parsed.OrganicResults {
		results = append(results, Result{Title: r.Title, Link: r.Link, Snippet: r.Snippet})
	}
	return results, nil
}
