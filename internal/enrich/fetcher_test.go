package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/leadscout/internal/fingerprint"
	"github.com/FranksOps/leadscout/pkg/ratelimit"
	"github.com/FranksOps/leadscout/pkg/useragent"
)

func testFetcher(t *testing.T) *Fetcher {
	t.Helper()
	f, err := NewFetcher(FetchConfig{
		Timeout:     5 * time.Second,
		Fingerprint: fingerprint.ProfileGo,
		UAPool:      useragent.NewPool([]string{"TestBrowser/1.0"}),
	})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"bare host", "drsmile.dental", "https://drsmile.dental", false},
		{"already absolute", "https://drsmile.dental/about", "https://drsmile.dental/about", false},
		{"http preserved", "http://drsmile.dental", "http://drsmile.dental", false},
		{"whitespace trimmed", "  drsmile.dental ", "https://drsmile.dental", false},
		{"empty", "", "", true},
		{"bad scheme", "ftp://drsmile.dental", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFetch_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "TestBrowser/1.0" {
			t.Errorf("expected rotated User-Agent, got %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer ts.Close()

	res, err := testFetcher(t).Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.OK() {
		t.Fatalf("expected usable result, got %+v", res)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d", res.StatusCode)
	}
	if !strings.Contains(string(res.Body), "hello") {
		t.Errorf("body = %q", res.Body)
	}
	if res.Duration == 0 {
		t.Error("expected non-zero duration")
	}
}

func TestFetch_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("landed"))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	res, err := testFetcher(t).Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	if string(res.Body) != "landed" {
		t.Errorf("redirect not followed, body = %q", res.Body)
	}
}

func TestFetch_TransportErrorIsSoft(t *testing.T) {
	f, err := NewFetcher(FetchConfig{
		Timeout:     20 * time.Millisecond,
		Fingerprint: fingerprint.ProfileGo,
	})
	if err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer ts.Close()

	res, err := f.Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("soft failure must not surface as error, got %v", err)
	}
	if res.Error == "" {
		t.Fatal("expected Error field set on timeout")
	}
	if res.OK() {
		t.Fatal("timed-out fetch must not be OK")
	}
}

func TestFetch_MalformedURLIsHardError(t *testing.T) {
	if _, err := testFetcher(t).Fetch(context.Background(), "ftp://nope"); err == nil {
		t.Fatal("expected hard error for unsupported scheme")
	}
}

func TestFetch_ChallengePageDetected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "cloudflare")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("<html>cf-browser-verification</html>"))
	}))
	defer ts.Close()

	res, err := testFetcher(t).Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Challenged || res.ChallengeSrc != "Cloudflare" {
		t.Errorf("expected Cloudflare challenge, got %+v", res)
	}
	if res.OK() {
		t.Error("challenged result must not be OK")
	}
}

func TestFetch_BodyCapped(t *testing.T) {
	f, err := NewFetcher(FetchConfig{
		Timeout:      5 * time.Second,
		Fingerprint:  fingerprint.ProfileGo,
		MaxBodyBytes: 16,
	})
	if err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 1024)))
	}))
	defer ts.Close()

	res, err := f.Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Body) != 16 {
		t.Errorf("expected capped body of 16 bytes, got %d", len(res.Body))
	}
}

func TestFetch_LimiterPacesRequests(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	f, err := NewFetcher(FetchConfig{
		Timeout:     5 * time.Second,
		Fingerprint: fingerprint.ProfileGo,
		UAPool:      useragent.NewPool([]string{"TestBrowser/1.0"}),
		Limiter:     ratelimit.NewLimiter(20, 0), // 50ms between fetches
	})
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	for i := 0; i < 2; i++ {
		res, err := f.Fetch(context.Background(), ts.URL)
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if !res.OK() {
			t.Fatalf("fetch %d not usable: %+v", i, res)
		}
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("two paced fetches took %v, want at least one 50ms interval", elapsed)
	}
}

func TestFetch_LimiterCancellationIsSoft(t *testing.T) {
	f, err := NewFetcher(FetchConfig{
		Timeout:     5 * time.Second,
		Fingerprint: fingerprint.ProfileGo,
		Limiter:     ratelimit.NewLimiter(0.1, 0), // 10s interval, never fires in-test
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.Fetch(ctx, "https://example.com")
	if err != nil {
		t.Fatalf("expected soft failure, got hard error: %v", err)
	}
	if res.Error == "" {
		t.Fatal("expected Error set when the limiter wait is canceled")
	}
}

func TestDetectChallenge_CleanPage(t *testing.T) {
	res := &FetchResult{StatusCode: 200, Body: []byte("<html>fine</html>")}
	if DetectChallenge(res, DefaultDetectors()) {
		t.Error("clean page flagged as challenge")
	}
	if res.Challenged || res.ChallengeSrc != "" {
		t.Errorf("result mutated unexpectedly: %+v", res)
	}
}

func TestDetectChallenge_DataDomeHeader(t *testing.T) {
	res := &FetchResult{
		StatusCode: http.StatusForbidden,
		Headers:    map[string][]string{"X-DataDome": {"challenge"}},
	}
	if !DetectChallenge(res, DefaultDetectors()) {
		t.Fatal("expected DataDome detection")
	}
	if res.ChallengeSrc != "DataDome" {
		t.Errorf("source = %q", res.ChallengeSrc)
	}
}
