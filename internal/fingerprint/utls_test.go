package fingerprint

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	utls "github.com/refraction-networking/utls"
)

func TestTransportHandshakes(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	for _, p := range []Profile{ProfileChrome, ProfileFirefox, ProfileSafari, ProfileIOS, ProfileGo, ProfileRandom} {
		t.Run(string(p), func(t *testing.T) {
			rt, err := Transport(p, nil)
			if err != nil {
				t.Fatalf("Transport(%s): %v", p, err)
			}
			tr, ok := rt.(*http.Transport)
			if !ok {
				t.Fatalf("Transport returned %T, want *http.Transport", rt)
			}

			// The test server's cert is self-signed, so verification has
			// to be relaxed on whichever dial path the profile uses.
			if p == ProfileGo {
				tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
			} else {
				hello, err := helloFor(p)
				if err != nil {
					t.Fatalf("helloFor(%s): %v", p, err)
				}
				dial := tr.DialContext
				tr.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
					raw, err := dial(ctx, network, addr)
					if err != nil {
						return nil, err
					}
					host, _, err := net.SplitHostPort(addr)
					if err != nil {
						host = addr
					}
					conn := utls.UClient(raw, &utls.Config{ServerName: host, InsecureSkipVerify: true}, hello)
					if err := conn.HandshakeContext(ctx); err != nil {
						_ = raw.Close()
						return nil, err
					}
					return conn, nil
				}
			}

			resp, err := (&http.Client{Transport: tr}).Get(ts.URL)
			if err != nil {
				t.Fatalf("GET with %s hello: %v", p, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("status = %d, want 200", resp.StatusCode)
			}
		})
	}
}

func TestTransportUnknownProfile(t *testing.T) {
	_, err := Transport(Profile("netscape"), nil)
	if err == nil {
		t.Fatal("expected error for unknown profile")
	}
	if err.Error() != `unknown fingerprint profile "netscape"` {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestParseProfile(t *testing.T) {
	for _, s := range []string{"chrome", "firefox", "safari", "ios", "go", "random"} {
		p, err := ParseProfile(s)
		if err != nil {
			t.Errorf("ParseProfile(%q): %v", s, err)
		}
		if string(p) != s {
			t.Errorf("ParseProfile(%q) = %q", s, p)
		}
	}
	if _, err := ParseProfile("opera-mini"); err == nil {
		t.Error("ParseProfile accepted an unknown profile")
	}
}
