// Package fingerprint builds HTTP transports whose TLS ClientHello matches
// a real browser, via uTLS.
package fingerprint

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"

	utls "github.com/refraction-networking/utls"
)

// Profile names a TLS ClientHello shape.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileIOS     Profile = "ios"
	ProfileGo      Profile = "go"     // plain crypto/tls, no mimicry
	ProfileRandom  Profile = "random" // randomized hello with ALPN
)

// ParseProfile validates a profile name from config or flags.
func ParseProfile(s string) (Profile, error) {
	p := Profile(s)
	if _, err := helloFor(p); err != nil && p != ProfileGo {
		return "", err
	}
	return p, nil
}

func helloFor(p Profile) (utls.ClientHelloID, error) {
	switch p {
	case ProfileChrome:
		return utls.HelloChrome_Auto, nil
	case ProfileFirefox:
		return utls.HelloFirefox_Auto, nil
	case ProfileSafari:
		return utls.HelloSafari_Auto, nil
	case ProfileIOS:
		return utls.HelloIOS_Auto, nil
	case ProfileRandom:
		return utls.HelloRandomizedALPN, nil
	default:
		return utls.ClientHelloID{}, fmt.Errorf("unknown fingerprint profile %q", p)
	}
}

// Transport returns a RoundTripper presenting the given profile's hello.
// ProfileGo yields a stock http.Transport. proxyFunc, when non-nil, sets
// the transport's Proxy.
func Transport(p Profile, proxyFunc func(*http.Request) (*url.URL, error)) (http.RoundTripper, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyFunc != nil {
		transport.Proxy = proxyFunc
	}
	if p == ProfileGo {
		return transport, nil
	}

	hello, err := helloFor(p)
	if err != nil {
		return nil, err
	}

	// Replace only the TLS dial: TCP setup and proxying stay with the
	// cloned transport, the handshake goes through uTLS.
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		raw, err := transport.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}
		conn := utls.UClient(raw, &utls.Config{ServerName: host}, hello)
		if err := conn.HandshakeContext(ctx); err != nil {
			_ = raw.Close()
			return nil, fmt.Errorf("utls handshake: %w", err)
		}
		return conn, nil
	}

	return transport, nil
}
