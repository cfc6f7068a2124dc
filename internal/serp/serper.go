package serp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/FranksOps/leadscout/pkg/httpclient"
)

const serperEndpoint = "https://google.serper.dev/search"

// Serper queries the serper.dev Google-search API. It is the preferred
// provider when a key is configured.
type Serper struct {
	apiKey   string
	gl, hl   string
	endpoint string
	client   *httpclient.Client
}

// NewSerper builds a Serper provider. gl/hl are Google country/language
// hints ("us"/"en" if empty).
func NewSerper(apiKey, gl, hl string, timeout time.Duration) (*Serper, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("serper: api key is empty")
	}
	if gl == "" {
		gl = "us"
	}
	if hl == "" {
		hl = "en"
	}
	client, err := httpclient.New(httpclient.Config{Timeout: timeout, MaxRedirects: 3})
	if err != nil {
		return nil, fmt.Errorf("serper: %w", err)
	}
	return &Serper{
		apiKey:   apiKey,
		gl:       gl,
		hl:       hl,
		endpoint: serperEndpoint,
		client:   client,
	}, nil
}

func (s *Serper) Name() string { return "serper" }

type serperRequest struct {
	Q           string `json:"q"`
	Num         int    `json:"num"`
	Autocorrect bool   `json:"autocorrect"`
	GL          string `json:"gl"`
	HL          string `json:"hl"`
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Search issues one POST to serper.dev and normalizes the organic results.
func (s *Serper) Search(ctx context.Context, query string, num int) ([]Result, error) {
	body, err := json.Marshal(serperRequest{
		Q:           query,
		Num:         num,
		Autocorrect: true,
		GL:          s.gl,
		HL:          s.hl,
	})
	if err != nil {
		return nil, fmt.Errorf("serper: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("serper: build request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

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

	var parsed serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &ProviderError{Provider: s.Name(), Err: fmt.Errorf("decode response: %w", err)}
	}

	results := make([]Result, 0, len(parsed.Organic))
	for _, r := range parsed.Organic {
		results = append(results, Result{Title: r.Title, Link: r.Link, Snippet: r.Snippet})
	}
	return results, nil
}
