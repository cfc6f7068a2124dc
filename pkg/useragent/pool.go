// Package useragent rotates User-Agent strings. Agents are grouped by
// browser family so the header can be kept consistent with the TLS
// ClientHello a client presents.
package useragent

import (
	"crypto/rand"
	"math/big"
	"strings"
	"sync/atomic"
)

// Families recognized by ForFamily. Matching is done on the UA string
// itself, so custom agents slot into the right family automatically.
const (
	FamilyChrome  = "chrome"
	FamilyFirefox = "firefox"
	FamilySafari  = "safari"
)

var defaultAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:129.0) Gecko/20100101 Firefox/129.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:130.0) Gecko/20100101 Firefox/130.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:130.0) Gecko/20100101 Firefox/130.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",
}

// Pool hands out User-Agent strings round-robin. Safe for concurrent use.
type Pool struct {
	agents []string
	cursor atomic.Uint64
}

// NewPool builds a pool from the given agents, falling back to a built-in
// set of current desktop browsers when the slice is empty.
func NewPool(agents []string) *Pool {
	if len(agents) == 0 {
		agents = defaultAgents
	}
	copied := make([]string, len(agents))
	copy(copied, agents)
	return &Pool{agents: copied}
}

// Next returns the next agent in round-robin order.
func (p *Pool) Next() string {
	if len(p.agents) == 0 {
		return ""
	}
	i := p.cursor.Add(1) - 1
	return p.agents[i%uint64(len(p.agents))]
}

// Random returns a uniformly random agent.
func (p *Pool) Random() string {
	if len(p.agents) == 0 {
		return ""
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(p.agents))))
	if err != nil {
		return p.Next()
	}
	return p.agents[n.Int64()]
}

// ForFamily returns a new pool holding only the agents of one browser
// family. When no agent matches (or the family is unknown) the original
// pool is returned unchanged, so callers never end up with an empty pool.
func (p *Pool) ForFamily(family string) *Pool {
	var subset []string
	for _, ua := range p.agents {
		if matchesFamily(ua, family) {
			subset = append(subset, ua)
		}
	}
	if len(subset) == 0 {
		return p
	}
	return &Pool{agents: subset}
}

// Len reports how many agents the pool holds.
func (p *Pool) Len() int {
	return len(p.agents)
}

// Agents returns a copy of the pool's contents.
func (p *Pool) Agents() []string {
	copied := make([]string, len(p.agents))
	copy(copied, p.agents)
	return copied
}

func matchesFamily(ua, family string) bool {
	switch strings.ToLower(family) {
	case FamilyChrome:
		return strings.Contains(ua, "Chrome/") && !strings.Contains(ua, "Edg/")
	case FamilyFirefox:
		return strings.Contains(ua, "Firefox/")
	case FamilySafari:
		return strings.Contains(ua, "Version/") && strings.Contains(ua, "Safari/")
	default:
		return false
	}
}
