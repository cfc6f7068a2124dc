package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/FranksOps/leadscout/internal/lead"
	"github.com/FranksOps/leadscout/internal/store"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ensure sqliteStore implements store.Store
var _ store.Store = (*sqliteStore)(nil)

type sqliteStore struct {
	db *sql.DB
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
	offer_keywords TEXT,
	contact_email TEXT,
	contact_phone TEXT,
	contact_whatsapp TEXT,
	quality_score INTEGER NOT NULL DEFAULT 0,
	enriched_at DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_leads_enriched_at ON leads(enriched_at);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
`

// New creates a new SQLite-backed store.Store.
func New(dsn string) (store.Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

const allColumns = `id, username, followers, website, inferred_niche, source_query, status,
	website_title, website_platform, has_booking, has_checkout, offer_keywords,
	contact_email, contact_phone, contact_whatsapp, quality_score, enriched_at, created_at, updated_at`

func (s *sqliteStore) Upsert(ctx context.Context, l *lead.Lead) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanOne(tx.QueryRowContext(ctx,
		`SELECT `+allColumns+` FROM leads WHERE username = ?`, l.Username))
	switch {
	case errors.Is(err, sql.ErrNoRows):
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
		if err := tx.Commit(); err != nil {
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
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit merge: %w", err)
	}
	*l = *existing
	return false, nil
}

func (s *sqliteStore) Get(ctx context.Context, id string) (*lead.Lead, error) {
	l, err := scanOne(s.db.QueryRowContext(ctx,
		`SELECT `+allColumns+` FROM leads WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return l, err
}

func (s *sqliteStore) GetByUsername(ctx context.Context, username string) (*lead.Lead, error) {
	l, err := scanOne(s.db.QueryRowContext(ctx,
		`SELECT `+allColumns+` FROM leads WHERE username = ?`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return l, err
}

func (s *sqliteStore) List(ctx context.Context, f store.Filter) ([]*lead.Lead, error) {
	query := `SELECT ` + allColumns + ` FROM leads WHERE 1=1`
	args := []any{}

	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.MinScore > 0 {
		query += ` AND quality_score >= ?`
		args = append(args, f.MinScore)
	}
	if len(f.Usernames) > 0 {
		query += ` AND username IN (?` + strings.Repeat(",?", len(f.Usernames)-1) + `)`
		for _, u := range f.Usernames {
			args = append(args, u)
		}
	}
	if f.HasWebsite != nil {
		if *f.HasWebsite {
			query += ` AND website != ''`
		} else {
			query += ` AND website = ''`
		}
	}

	if f.NeedsEnrichmentBefore != nil {
		query += ` AND (enriched_at IS NULL OR enriched_at < ?)`
		args = append(args, f.NeedsEnrichmentBefore.UTC())
		// Never-enriched rows first, then stalest.
		query += ` ORDER BY enriched_at IS NOT NULL, enriched_at ASC`
	} else {
		query += ` ORDER BY created_at DESC`
	}

	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	if f.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *sqliteStore) Update(ctx context.Context, l *lead.Lead) error {
	l.UpdatedAt = time.Now().UTC()
	if err := updateRow(ctx, s.db, l); err != nil {
		return fmt.Errorf("update lead %s: %w", l.ID, err)
	}
	return nil
}

func (s *sqliteStore) SetStatus(ctx context.Context, id string, status lead.Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *sqliteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count leads: %w", err)
	}
	return n, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRow(ctx context.Context, ex execer, l *lead.Lead) error {
	keywords, err := marshalKeywords(l.OfferKeywords)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO leads (`+allColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Username, l.Followers, l.Website, l.InferredNiche, l.SourceQuery, string(l.Status),
		l.WebsiteTitle, l.WebsitePlatform, l.HasBooking, l.HasCheckout, keywords,
		l.ContactEmail, l.ContactPhone, l.ContactWhatsApp, l.QualityScore, l.EnrichedAt,
		l.CreatedAt, l.UpdatedAt,
	)
	return err
}

func updateRow(ctx context.Context, ex execer, l *lead.Lead) error {
	keywords, err := marshalKeywords(l.OfferKeywords)
	if err != nil {
		return err
	}
	res, err := ex.ExecContext(ctx, `
		UPDATE leads SET
			username = ?, followers = ?, website = ?, inferred_niche = ?, source_query = ?, status = ?,
			website_title = ?, website_platform = ?, has_booking = ?, has_checkout = ?, offer_keywords = ?,
			contact_email = ?, contact_phone = ?, contact_whatsapp = ?, quality_score = ?, enriched_at = ?,
			updated_at = ?
		WHERE id = ?`,
		l.Username, l.Followers, l.Website, l.InferredNiche, l.SourceQuery, string(l.Status),
		l.WebsiteTitle, l.WebsitePlatform, l.HasBooking, l.HasCheckout, keywords,
		l.ContactEmail, l.ContactPhone, l.ContactWhatsApp, l.QualityScore, l.EnrichedAt,
		l.UpdatedAt, l.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row rowScanner) (*lead.Lead, error) {
	var (
		l        lead.Lead
		status   string
		keywords sql.NullString
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
	if keywords.Valid && keywords.String != "" {
		if err := json.Unmarshal([]byte(keywords.String), &l.OfferKeywords); err != nil {
			return nil, fmt.Errorf("unmarshal offer keywords: %w", err)
		}
	}
	return &l, nil
}
