package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresStore implements store.Store
var _ store.Store = (*postgresStore)(nil)

type postgresStore struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS leads (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	followers INTEGER NOT NULL DEFAULT 0,
	website TEXT NOT NULL DEFAULT '',
	inferred_niche TEXT NOT NULL DEFAULT '',
	source_query TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'new',
	website_title TEXT,
	website_platform TEXT,
	has_booking BOOLEAN,
	has_checkout BOOLEAN,
	offer_keywords JSONB,
	contact_email TEXT,
	contact_phone TEXT,
	contact_whatsapp TEXT,
	quality_score INTEGER NOT NULL DEFAULT 0,
	enriched_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_leads_enriched_at ON leads(enriched_at);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
`

// New creates a new Postgres-backed store.Store.
func New(ctx context.Context, dsn string) (store.Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &postgresStore{pool: pool}, nil
}

const allColumns = `id, username, followers, website, inferred_niche, source_query, status,
	website_title, website_platform, has_booking, has_checkout, offer_keywords,
	contact_email, contact_phone, contact_whatsapp, quality_score, enriched_at, created_at, updated_at`

func (s *postgresStore) Upsert(ctx context.Context, l *lead.Lead) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	existing, err := scanOne(tx.QueryRow(ctx,
		`SELECT `+allColumns+` FROM leads WHERE username = $1`, l.Username))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		now := time.Now().UTC()
		l.ID = uuid.New().String()
		if l.Status == "" {
			l.Status = lead.StatusNew
		}
		l.CreatedAt = now
		l.UpdatedAt = now

		if err := insertRow(ctx, tx, l); err != nil {
			return false, fmt.Errorf("insert lead %s: %w", l.Username, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return false, fmt.Errorf("commit insert: %w", err)
		}
		return true, nil

	case err != nil:
		return false, fmt.Errorf("lookup lead %s: %w", l.Username, err)
	}

	store.MergeDiscovery(existing, l)
	existing.UpdatedAt = time.Now().UTC()
	if err := updateRow(ctx, tx, existing); err != nil {
		return false, fmt.Errorf("merge lead %s: %w", l.Username, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit merge: %w", err)
	}
	*l = *existing
	return false, nil
}

func (s *postgresStore) Get(ctx context.Context, id string) (*lead.Lead, error) {
	l, err := scanOne(s.pool.QueryRow(ctx,
		`SELECT `+allColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return l, err
}

func (s *postgresStore) GetByUsername(ctx context.Context, username string) (*lead.Lead, error) {
	l, err := scanOne(s.pool.QueryRow(ctx,
		`SELECT `+allColumns+` FROM leads WHERE username = $1`, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return l, err
}

func (s *postgresStore) List(ctx context.Context, f store.Filter) ([]*lead.Lead, error) {
	query := `SELECT ` + allColumns + ` FROM leads WHERE 1=1`
	args := []any{}
	param := 1

	next := func() string {
		p := fmt.Sprintf("$%d", param)
		param++
		return p
	}

	if f.Status != "" {
		query += ` AND status = ` + next()
		args = append(args, string(f.Status))
	}
	if f.MinScore > 0 {
		query += ` AND quality_score >= ` + next()
		args = append(args, f.MinScore)
	}
	if len(f.Usernames) > 0 {
		placeholders := make([]string, len(f.Usernames))
		for i, u := range f.Usernames {
			placeholders[i] = next()
			args = append(args, u)
		}
		query += ` AND username IN (` + strings.Join(placeholders, ",") + `)`
	}
	if f.HasWebsite != nil {
		if *f.HasWebsite {
			query += ` AND website != ''`
		} else {
			query += ` AND website = ''`
		}
	}

	if f.NeedsEnrichmentBefore != nil {
		query += ` AND (enriched_at IS NULL OR enriched_at < ` + next() + `)`
		args = append(args, f.NeedsEnrichmentBefore.UTC())
		query += ` ORDER BY enriched_at ASC NULLS FIRST`
	} else {
		query += ` ORDER BY created_at DESC`
	}

	if f.Limit > 0 {
		query += ` LIMIT ` + next()
		args = append(args, f.Limit)
	}
	if f.Offset > 0 {
		query += ` OFFSET ` + next()
		args = append(args, f.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []*lead.Lead
	for rows.Next() {
		l, err := scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return leads, nil
}

func (s *postgresStore) Update(ctx context.Context, l *lead.Lead) error {
	l.UpdatedAt = time.Now().UTC()
	if err := updateRow(ctx, s.pool, l); err != nil {
		return fmt.Errorf("update lead %s: %w", l.ID, err)
	}
	return nil
}

func (s *postgresStore) SetStatus(ctx context.Context, id string, status lead.Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *postgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count leads: %w", err)
	}
	return n, nil
}

func (s *postgresStore) Close() error {
	s.pool.Close()
	return nil
}

func insertRow(ctx context.Context, tx pgx.Tx, l *lead.Lead) error {
	keywords, err := marshalKeywords(l.OfferKeywords)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO leads (`+allColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		l.ID, l.Username, l.Followers, l.Website, l.InferredNiche, l.SourceQuery, string(l.Status),
		l.WebsiteTitle, l.WebsitePlatform, l.HasBooking, l.HasCheckout, keywords,
		l.ContactEmail, l.ContactPhone, l.ContactWhatsApp, l.QualityScore, l.EnrichedAt,
		l.CreatedAt, l.UpdatedAt,
	)
	return err
}

// execer is satisfied by both pgx.Tx and pgxpool.Pool.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func updateRow(ctx context.Context, ex execer, l *lead.Lead) error {
	keywords, err := marshalKeywords(l.OfferKeywords)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `
		UPDATE leads SET
			username = $1, followers = $2, website = $3, inferred_niche = $4, source_query = $5, status = $6,
			website_title = $7, website_platform = $8, has_booking = $9, has_checkout = $10, offer_keywords = $11,
			contact_email = $12, contact_phone = $13, contact_whatsapp = $14, quality_score = $15, enriched_at = $16,
			updated_at = $17
		WHERE id = $18`,
		l.Username, l.Followers, l.Website, l.InferredNiche, l.SourceQuery, string(l.Status),
		l.WebsiteTitle, l.WebsitePlatform, l.HasBooking, l.HasCheckout, keywords,
		l.ContactEmail, l.ContactPhone, l.ContactWhatsApp, l.QualityScore, l.EnrichedAt,
		l.UpdatedAt, l.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func marshalKeywords(keywords []string) (*string, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(keywords)
	if err != nil {
		return nil, fmt.Errorf("marshal offer keywords: %w", err)
	}
	s := string(b)
	return &s, nil
}

func scanOne(row pgx.Row) (*lead.Lead, error) {
	var (
		l        lead.Lead
		status   string
		keywords *string
	)
	err := row.Scan(
		&l.ID, &l.Username, &l.Followers, &l.Website, &l.InferredNiche, &l.SourceQuery, &status,
		&l.WebsiteTitle, &l.WebsitePlatform, &l.HasBooking, &l.HasCheckout, &keywords,
		&l.ContactEmail, &l.ContactPhone, &l.ContactWhatsApp, &l.QualityScore, &l.EnrichedAt,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Status = lead.Status(status)
	if keywords != nil && *keywords != "" {
		if err := json.Unmarshal([]byte(*keywords), &l.OfferKeywords); err != nil {
			return nil, fmt.Errorf("unmarshal offer keywords: %w", err)
		}
	}
	return &l, nil
}
