package store

import (
	"context"
	"errors"
	"time"

	"github.com/FranksOps/leadscout/internal/lead"
)

// ErrNotFound is returned by single-row lookups that matched nothing.
var ErrNotFound = errors.New("lead not found")

// Filter selects leads for listing. Zero-value fields are ignored.
type Filter struct {
	Status    lead.Status
	MinScore  int
	Usernames []string
	// HasWebsite filters on website presence when non-nil.
	HasWebsite *bool
	// NeedsEnrichmentBefore selects rows never enriched (enriched_at null,
	// ordered first) or last enriched before the given time.
	NeedsEnrichmentBefore *time.Time
	Limit                 int
	Offset                int
}

// Store is the persistence contract the pipeline depends on: upsert by the
// username natural key, filtered listing, and single-row updates. Upsert
// must never clobber an operator-set status or overwrite already-present
// enrichment fields with null.
type Store interface {
	// Upsert inserts the lead or merges it into the existing row with the
	// same username. Returns true when a new row was created. On return the
	// lead's ID and timestamps reflect the stored row.
	Upsert(ctx context.Context, l *lead.Lead) (created bool, err error)

	Get(ctx context.Context, id string) (*lead.Lead, error)
	GetByUsername(ctx context.Context, username string) (*lead.Lead, error)
	List(ctx context.Context, f Filter) ([]*lead.Lead, error)

	// Update writes every mutable field of the lead back by ID.
	Update(ctx context.Context, l *lead.Lead) error
	// SetStatus is the operator's lifecycle edit.
	SetStatus(ctx context.Context, id string, status lead.Status) error

	Count(ctx context.Context) (int, error)
	Close() error
}
