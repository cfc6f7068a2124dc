// Package discovery runs the contact-discovery fallback: targeted web
// searches that try to surface an email, phone, messaging link, or bio link
// for a handle that has no known website.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FranksOps/leadscout/internal/extract"
	"github.com/FranksOps/leadscout/internal/serp"
)

// Budget bounds. Searches are billable, so the pass is capped and stops at
// the first query that yields any signal.
const (
	MinQueries = 1
	MaxQueries = 5
	MinResults = 3
	MaxResults = 10

	DefaultQueries = 2
	DefaultResults = 5

	maxSources = 8
)

// Searcher is the slice of the search gateway this package needs.
type Searcher interface {
	Search(ctx context.Context, query string, num int) ([]serp.Result, error)
}

// Options tunes one discovery pass. Zero values take defaults; out-of-range
// values are clamped into budget bounds.
type Options struct {
	MaxQueries      int
	ResultsPerQuery int
}

func (o Options) clamped() Options {
	if o.MaxQueries == 0 {
		o.MaxQueries = DefaultQueries
	}
	o.MaxQueries = clamp(o.MaxQueries, MinQueries, MaxQueries)
	if o.ResultsPerQuery == 0 {
		o.ResultsPerQuery = DefaultResults
	}
	o.ResultsPerQuery = clamp(o.ResultsPerQuery, MinResults, MaxResults)
	return o
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Result is what one discovery pass learned about a handle. Sources lists
// the result links (or queries) the signals came from, capped at 8.
type Result struct {
	Contacts extract.Contacts
	Sources  []string
}

// Discoverer runs budgeted contact searches through a search gateway.
type Discoverer struct {
	searcher Searcher
	logger   *slog.Logger
}

// New builds a Discoverer.
func New(searcher Searcher, logger *slog.Logger) *Discoverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{searcher: searcher, logger: logger}
}

// queriesFor builds the handle-focused, contact-intent-biased query list.
func queriesFor(username string, n int) []string {
	all := []string{
		fmt.Sprintf(`"%s" (email OR gmail OR contact OR whatsapp OR "wa.me" OR linktr.ee OR beacons.ai OR taplink)`, username),
		fmt.Sprintf(`"@%s" (email OR whatsapp OR contact OR linktr.ee OR beacons.ai OR taplink)`, username),
		fmt.Sprintf(`instagram "%s" (email OR whatsapp OR contact)`, username),
		fmt.Sprintf(`"%s" contact details`, username),
		fmt.Sprintf(`"%s" book appointment`, username),
	}
	if n > len(all) {
		n = len(all)
	}
	return all[:n]
}

// Discover searches for contact signals for the handle. Search failures are
// soft: the pass returns whatever it gathered before the failure, never an
// error. It stops issuing queries as soon as any signal is found.
func (d *Discoverer) Discover(ctx context.Context, username string, opts Options) Result {
	opts = opts.clamped()

	var (
		out     Result
		sources []string
	)

	for _, q := range queriesFor(username, opts.MaxQueries) {
		if ctx.Err() != nil {
			break
		}

		results, err := d.searcher.Search(ctx, q, opts.ResultsPerQuery)
		if err != nil {
			d.logger.Warn("contact discovery query failed",
				"username", username, "err", err)
			continue
		}

		for _, r := range results {
			text := mergeResultText(r)

			src := r.Link
			if src == "" {
				src = q
			}
			sources = append(sources, src)

			c := extract.ContactsFromText(text)
			if out.Contacts.Email == "" {
				out.Contacts.Email = c.Email
			}
			if out.Contacts.Phone == "" {
				out.Contacts.Phone = c.Phone
			}
			if out.Contacts.WhatsApp == "" {
				out.Contacts.WhatsApp = c.WhatsApp
			}
			if out.Contacts.BioLink == "" {
				out.Contacts.BioLink = c.BioLink
			}
		}

		// Any signal is enough; further queries would burn budget for
		// marginal gain.
		if !out.Contacts.Empty() {
			break
		}
	}

	out.Sources = dedupeSources(sources)
	return out
}

func mergeResultText(r serp.Result) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{r.Title, r.Snippet, r.Link} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

func dedupeSources(sources []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range sources {
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
		if len(out) == maxSources {
			break
		}
	}
	return out
}
