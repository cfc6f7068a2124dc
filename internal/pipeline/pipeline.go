package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FranksOps/leadscout/internal/discovery"
	"github.com/FranksOps/leadscout/internal/extract"
	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/metrics"
	"github.com/FranksOps/leadscout/internal/query"
	"github.com/FranksOps/leadscout/internal/serp"
	"github.com/FranksOps/leadscout/internal/store"
)

const (
	// MinConcurrency..MaxConcurrency bound the discovery fan-out; queries
	// beyond the ceiling wait for a slot.
	MinConcurrency     = 1
	MaxConcurrency     = 6
	DefaultConcurrency = 3

	// DefaultStaleness is how old an enrichment may get before
	// EnrichPending picks the row up again.
	DefaultStaleness = 7 * 24 * time.Hour

	DefaultEnrichBatch = 25
)

// Searcher is the slice of the search gateway the orchestrator needs.
type Searcher interface {
	Search(ctx context.Context, q string, num int) ([]serp.Result, error)
}

// ContactFinder runs the contact-discovery fallback for handles without a
// known website.
type ContactFinder interface {
	Discover(ctx context.Context, username string, opts discovery.Options) discovery.Result
}

// Analyzer inspects a website for commercial signals. A nil result means no
// enrichment was available this attempt.
type Analyzer interface {
	Analyze(ctx context.Context, websiteURL string) *lead.Enrichment
}

// Config tunes one Orchestrator. Zero values take defaults.
type Config struct {
	Concurrency int
	Discovery   discovery.Options
	Staleness   time.Duration
	EnrichBatch int
}

func (c Config) withDefaults() Config {
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Concurrency < MinConcurrency {
		c.Concurrency = MinConcurrency
	}
	if c.Concurrency > MaxConcurrency {
		c.Concurrency = MaxConcurrency
	}
	if c.Staleness <= 0 {
		c.Staleness = DefaultStaleness
	}
	if c.EnrichBatch <= 0 {
		c.EnrichBatch = DefaultEnrichBatch
	}
	return c
}

// RowFailure records one row that failed during a run. Row failures are
// data in the run report, not run errors.
type RowFailure struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
	Reason   string `json:"reason"`
}

// RunReport accumulates the counters of one discovery or enrichment run.
type RunReport struct {
	StartedAt      time.Time    `json:"started_at"`
	FinishedAt     time.Time    `json:"finished_at"`
	QueriesPlanned int          `json:"queries_planned"`
	Discovered     int          `json:"discovered"`
	Inserted       int          `json:"inserted"`
	Updated        int          `json:"updated"`
	ContactsFound  int          `json:"contacts_found"`
	Enriched       int          `json:"enriched"`
	Failures       []RowFailure `json:"failures,omitempty"`
}

func (r *RunReport) fail(id, username, reason, stage string) {
	r.Failures = append(r.Failures, RowFailure{ID: id, Username: username, Reason: reason})
	metrics.RowFailuresTotal.WithLabelValues(stage).Inc()
}

// Orchestrator drives the discover → upsert → contact-fallback → enrich →
// score pipeline against a Store.
type Orchestrator struct {
	store    store.Store
	searcher Searcher
	contacts ContactFinder
	analyzer Analyzer
	cfg      Config
	logger   *slog.Logger
}

// New builds an Orchestrator. contacts and analyzer may be nil, in which
// case the corresponding stage is skipped.
func New(st store.Store, searcher Searcher, contacts ContactFinder, analyzer Analyzer, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:    st,
		searcher: searcher,
		contacts: contacts,
		analyzer: analyzer,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// Discover plans queries from p, fans them out over the search gateway,
// extracts candidate handles, upserts them row by row and runs the
// enrichment path over every touched row. Setup failures (bad params, no
// provider) return an error; row failures land in the report.
func (o *Orchestrator) Discover(ctx context.Context, p query.Params) (*RunReport, error) {
	report := &RunReport{StartedAt: time.Now().UTC()}
	defer func() { report.FinishedAt = time.Now().UTC() }()

	if err := p.Normalize(); err != nil {
		return report, err
	}
	queries, err := query.Plan(p)
	if err != nil {
		return report, err
	}
	report.QueriesPlanned = len(queries)

	candidates, err := o.collect(ctx, queries, p)
	if err != nil {
		return report, err
	}
	report.Discovered = len(candidates)
	metrics.LeadsDiscoveredTotal.Add(float64(len(candidates)))

	var rows []*lead.Lead
	for _, c := range candidates {
		created, err := o.store.Upsert(ctx, c)
		if err != nil {
			report.fail("", c.Username, fmt.Sprintf("upsert: %v", err), "upsert")
			o.logger.Warn("candidate upsert failed", "username", c.Username, "err", err)
			continue
		}
		if created {
			report.Inserted++
		} else {
			report.Updated++
		}
		rows = append(rows, c)
	}

	for _, l := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		o.enrichRow(ctx, l, report)
	}
	return report, nil
}

// EnrichPending selects rows that were never enriched, then rows whose
// enrichment is older than the staleness window, and runs the enrichment
// path over each. Safe to re-invoke; effects are updates keyed by row id.
func (o *Orchestrator) EnrichPending(ctx context.Context, batchSize int) (*RunReport, error) {
	report := &RunReport{StartedAt: time.Now().UTC()}
	defer func() { report.FinishedAt = time.Now().UTC() }()

	if batchSize <= 0 {
		batchSize = o.cfg.EnrichBatch
	}
	cutoff := time.Now().UTC().Add(-o.cfg.Staleness)
	rows, err := o.store.List(ctx, store.Filter{
		NeedsEnrichmentBefore: &cutoff,
		Limit:                 batchSize,
	})
	if err != nil {
		return report, fmt.Errorf("select enrichment backlog: %w", err)
	}

	for _, l := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		o.enrichRow(ctx, l, report)
	}
	return report, nil
}

// collect fans the planned queries out over the search gateway and returns
// deduplicated candidate leads, first-seen order preserved, truncated to
// p.Limit. Individual query failures are soft; only context cancellation
// aborts the collection.
func (o *Orchestrator) collect(ctx context.Context, queries []string, p query.Params) ([]*lead.Lead, error) {
	var (
		mu         sync.Mutex
		candidates []*lead.Lead
		seen       = map[string]struct{}{}
	)

	full := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(candidates) >= p.Limit
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)

	for _, q := range queries {
		if full() {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results, err := o.searcher.Search(gctx, q, p.PerQuery)
			if err != nil {
				o.logger.Warn("discovery query failed", "query", q, "err", err)
				return nil
			}
			niche := nicheFor(q, p.Niches)
			mu.Lock()
			defer mu.Unlock()
			for _, r := range results {
				id, ok := extract.IdentityFromResult(r.Title, r.Link, r.Snippet)
				if !ok {
					continue
				}
				if _, dup := seen[id.Username]; dup {
					continue
				}
				seen[id.Username] = struct{}{}
				candidates = append(candidates, &lead.Lead{
					Username:      id.Username,
					Website:       id.WebsiteHint,
					Followers:     id.Followers,
					InferredNiche: niche,
					SourceQuery:   q,
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Work in flight when the cap was hit may have pushed past the limit.
	if len(candidates) > p.Limit {
		candidates = candidates[:p.Limit]
	}
	return candidates, nil
}

// enrichRow runs contact fallback, website analysis, scoring and the final
// write for one row. Failures are recorded in the report; the caller's loop
// continues regardless.
func (o *Orchestrator) enrichRow(ctx context.Context, l *lead.Lead, report *RunReport) {
	if l.Website == "" && o.contacts != nil {
		res := o.contacts.Discover(ctx, l.Username, o.cfg.Discovery)
		if !res.Contacts.Empty() {
			report.ContactsFound++
			applyContacts(l, res.Contacts)
		}
	}

	enrichedOK := true
	if l.Website != "" && o.analyzer != nil {
		e := o.analyzer.Analyze(ctx, l.Website)
		if e == nil {
			enrichedOK = false
			report.fail(l.ID, l.Username, "website enrichment unavailable", "enrich")
		} else {
			l.ApplyEnrichment(e)
			report.Enriched++
		}
	}

	l.QualityScore = lead.Score(l.Signals())
	if enrichedOK {
		now := time.Now().UTC()
		l.EnrichedAt = &now
	}

	if err := o.store.Update(ctx, l); err != nil {
		report.fail(l.ID, l.Username, fmt.Sprintf("save: %v", err), "save")
		o.logger.Warn("row save failed", "username", l.Username, "err", err)
	}
}

// applyContacts folds fallback-discovered signals into the lead. Incoming
// empties never clear earlier values; a bio link becomes the website only
// when none is known yet.
func applyContacts(l *lead.Lead, c extract.Contacts) {
	if c.Email != "" {
		l.ContactEmail = &c.Email
	}
	if c.Phone != "" {
		l.ContactPhone = &c.Phone
	}
	if c.WhatsApp != "" {
		l.ContactWhatsApp = &c.WhatsApp
	}
	if l.Website == "" && c.BioLink != "" {
		l.Website = c.BioLink
	}
}

// nicheFor maps a planned query back to the first niche facet it carries.
func nicheFor(q string, niches []string) string {
	lower := strings.ToLower(q)
	for _, n := range niches {
		if strings.Contains(lower, strings.ToLower(n)) {
			return n
		}
	}
	if len(niches) > 0 {
		return niches[0]
	}
	return ""
}
