// Package proxy maintains a rotating pool of outbound proxies with
// failure-based cooldowns.
package proxy

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNilURL is returned when a nil proxy URL is passed to a health call.
	ErrNilURL = errors.New("proxy url is nil")
	// ErrUnknownProxy is returned for URLs the pool does not hold.
	ErrUnknownProxy = errors.New("proxy not in pool")
)

// entry tracks one proxy's rotation and health state.
type entry struct {
	u         *url.URL
	streak    int // consecutive failures; reset on success
	total     int // lifetime failures, for operators reading stats
	coolUntil time.Time
	lastUsed  time.Time
}

func (e *entry) cooling(now time.Time) bool {
	return now.Before(e.coolUntil)
}

// Pool rotates proxies round-robin, sidelining ones that fail repeatedly.
// Safe for concurrent use.
type Pool struct {
	mu       sync.Mutex
	order    []string
	entries  map[string]*entry
	cursor   int
	maxBad   int
	cooldown time.Duration
}

// Config tunes failure handling for a Pool.
type Config struct {
	// MaxFailures is the consecutive-failure streak that sidelines a proxy.
	MaxFailures int
	// Cooldown is how long a sidelined proxy sits out before it is retried.
	Cooldown time.Duration
}

// NewPool creates an empty pool. Zero config fields get working defaults
// (3 failures, 5 minute cooldown).
func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Pool{
		entries:  make(map[string]*entry),
		maxBad:   cfg.MaxFailures,
		cooldown: cfg.Cooldown,
	}
}

// LoadFile adds proxies from a file with one URL per line. Blank lines and
// '#' comments are skipped.
func (p *Pool) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open proxy file: %w", err)
	}
	defer f.Close()

	var raws []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raws = append(raws, line)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read proxy file: %w", err)
	}
	return p.Add(raws...)
}

// Add parses and registers proxy URLs. A bare host:port is treated as http.
// Duplicates of an already-registered proxy are ignored.
func (p *Pool) Add(rawURLs ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, raw := range rawURLs {
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("parse proxy url %q: %w", raw, err)
		}
		key := u.String()
		if _, ok := p.entries[key]; ok {
			continue
		}
		p.entries[key] = &entry{u: u}
		p.order = append(p.order, key)
	}
	return nil
}

// Next returns the next proxy that is not cooling down, or nil when the
// pool is empty or every proxy is sidelined. A proxy whose cooldown has
// elapsed re-enters rotation with a clean streak.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.order)
	if n == 0 {
		return nil
	}

	now := time.Now()
	for i := 0; i < n; i++ {
		e := p.entries[p.order[p.cursor]]
		p.cursor = (p.cursor + 1) % n

		if e.cooling(now) {
			continue
		}
		if !e.coolUntil.IsZero() {
			// Cooldown served; give it a fresh streak.
			e.coolUntil = time.Time{}
			e.streak = 0
		}
		e.lastUsed = now
		return e.u
	}
	return nil
}

// MarkSuccess resets the failure streak for a proxy after a good request.
func (p *Pool) MarkSuccess(proxyURL *url.URL) error {
	e, err := p.lookup(proxyURL)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	e.streak = 0
	return nil
}

// MarkFailure records a failed request. Hitting the configured streak puts
// the proxy into cooldown.
func (p *Pool) MarkFailure(proxyURL *url.URL) error {
	e, err := p.lookup(proxyURL)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	e.streak++
	e.total++
	if e.streak >= p.maxBad {
		e.coolUntil = time.Now().Add(p.cooldown)
	}
	return nil
}

// Size reports how many proxies are registered.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}

// Healthy reports how many proxies are currently in rotation.
func (p *Pool) Healthy() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	n := 0
	for _, e := range p.entries {
		if !e.cooling(now) {
			n++
		}
	}
	return n
}

func (p *Pool) lookup(u *url.URL) (*entry, error) {
	if u == nil {
		return nil, ErrNilURL
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[u.String()]
	if !ok {
		return nil, ErrUnknownProxy
	}
	return e, nil
}
