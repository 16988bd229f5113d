package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-master/internal/db"
	"github.com/sells-group/lead-master/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, maxConns, minConns int32) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	if maxConns <= 0 {
		maxConns = 10
	}
	if minConns <= 0 {
		minConns = 2
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	name        TEXT PRIMARY KEY,
	summary     TEXT NOT NULL DEFAULT '',
	sector_tags JSONB NOT NULL DEFAULT '[]',
	status      TEXT NOT NULL DEFAULT 'New',
	hq_address  TEXT NOT NULL DEFAULT '',
	phone       TEXT NOT NULL DEFAULT '',
	website     TEXT NOT NULL DEFAULT '',
	logo_url    TEXT NOT NULL DEFAULT '',
	facilities  JSONB NOT NULL DEFAULT '[]',
	contacts    JSONB NOT NULL DEFAULT '[]',
	next_touch  TEXT NOT NULL DEFAULT '',
	notes       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS signals (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company      TEXT NOT NULL,
	date         TEXT NOT NULL,
	headline     TEXT NOT NULL,
	url          TEXT NOT NULL,
	url_hash     TEXT NOT NULL UNIQUE,
	source_label TEXT NOT NULL,
	land_flag    BOOLEAN NOT NULL DEFAULT false,
	sector_guess TEXT NOT NULL DEFAULT '',
	lat          DOUBLE PRECISION,
	lon          DOUBLE PRECISION,
	summary      TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS keyword_cache (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	keywords   JSONB NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS summary_cache (
	url_hash  TEXT PRIMARY KEY,
	summary   TEXT NOT NULL,
	cached_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_signals_company ON signals(company);
CREATE INDEX IF NOT EXISTS idx_signals_date ON signals(date);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UpsertLead(ctx context.Context, lead model.Lead) error {
	tags, facilities, contacts, err := marshalLeadJSON(lead)
	if err != nil {
		return err
	}
	if lead.Status == "" {
		lead.Status = model.LeadStatusNew
	}
	now := time.Now().UTC()

	_, err = s.pool.Exec(ctx, `
		INSERT INTO leads (name, summary, sector_tags, status, hq_address, phone, website, logo_url, facilities, contacts, next_touch, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (name) DO UPDATE SET
			summary = EXCLUDED.summary,
			sector_tags = EXCLUDED.sector_tags,
			status = EXCLUDED.status,
			hq_address = EXCLUDED.hq_address,
			phone = EXCLUDED.phone,
			website = EXCLUDED.website,
			logo_url = EXCLUDED.logo_url,
			facilities = EXCLUDED.facilities,
			contacts = EXCLUDED.contacts,
			next_touch = EXCLUDED.next_touch,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at`,
		lead.Name, lead.Summary, tags, string(lead.Status), lead.HQAddress, lead.Phone,
		lead.Website, lead.LogoURL, facilities, contacts, lead.NextTouch, lead.Notes, now, now,
	)
	return eris.Wrapf(err, "postgres: upsert lead %s", lead.Name)
}

func (s *PostgresStore) GetLead(ctx context.Context, name string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT name, summary, sector_tags::text, status, hq_address, phone, website, logo_url, facilities::text, contacts::text, next_touch, notes, created_at, updated_at
		 FROM leads WHERE name = $1`, name)
	l, err := scanLead(row)
	if err != nil && errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "lead")
	}
	return l, err
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT name, summary, sector_tags::text, status, hq_address, phone, website, logo_url, facilities::text, contacts::text, next_touch, notes, created_at, updated_at
		FROM leads WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if filter.Sector != "" {
		query += ` AND sector_tags @> to_jsonb(ARRAY[` + arg(filter.Sector) + `::text])`
	}
	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}
	query += ` ORDER BY name`

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, scanErr := scanLead(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) InsertSignal(ctx context.Context, sig model.Signal) (bool, error) {
	if sig.ID == "" {
		sig.ID = uuid.New().String()
	}
	if sig.URLHash == "" {
		sig.URLHash = model.HashURL(sig.URL)
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO signals (id, company, date, headline, url, url_hash, source_label, land_flag, sector_guess, lat, lon, summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (url_hash) DO NOTHING`,
		sig.ID, sig.Company, sig.Date, sig.Headline, sig.URL, sig.URLHash,
		string(sig.SourceLabel), sig.LandFlag, sig.SectorGuess,
		sig.Latitude, sig.Longitude, sig.Summary, time.Now().UTC(),
	)
	if err != nil {
		return false, eris.Wrap(err, "postgres: insert signal")
	}
	return tag.RowsAffected() > 0, nil
}

const signalColumns = `id, company, date, headline, url, url_hash, source_label, land_flag, sector_guess, lat, lon, summary, created_at`

func (s *PostgresStore) ListSignals(ctx context.Context, filter SignalFilter) ([]model.Signal, error) {
	query := `SELECT ` + signalColumns + ` FROM signals WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if filter.Start != "" {
		query += ` AND date >= ` + arg(filter.Start)
	}
	if filter.End != "" {
		query += ` AND date <= ` + arg(filter.End)
	}
	if filter.Company != "" {
		query += ` AND company = ` + arg(filter.Company)
	}
	query += ` ORDER BY date DESC, created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list signals")
	}
	defer rows.Close()
	return collectPgSignals(rows)
}

func (s *PostgresStore) LatestSignalPerCompany(ctx context.Context, start, end string) ([]model.Signal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (company) `+signalColumns+`
		FROM signals
		WHERE date BETWEEN $1 AND $2
		ORDER BY company, date DESC, created_at DESC`,
		start, end,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest signal per company")
	}
	defer rows.Close()
	return collectPgSignals(rows)
}

func (s *PostgresStore) SignalsMissingLocation(ctx context.Context, limit int) ([]model.Signal, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+signalColumns+` FROM signals
		WHERE lat IS NULL OR lon IS NULL
		ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: signals missing location")
	}
	defer rows.Close()
	return collectPgSignals(rows)
}

func (s *PostgresStore) SetSignalLocation(ctx context.Context, id string, lat, lon float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE signals SET lat = $1, lon = $2 WHERE id = $3`, lat, lon, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: set signal location %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("signal not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) SetSignalSummary(ctx context.Context, id string, summary string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE signals SET summary = $1 WHERE id = $2`, summary, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: set signal summary %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("signal not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) GetKeywordCache(ctx context.Context) (*model.KeywordCache, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT keywords::text, updated_at FROM keyword_cache WHERE id = 1`)

	var keywordsJSON, updated string
	err := row.Scan(&keywordsJSON, &updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get keyword cache")
	}

	kc := &model.KeywordCache{}
	if kc.Updated, err = time.Parse(time.RFC3339, updated); err != nil {
		return nil, eris.Wrap(err, "postgres: parse keyword cache timestamp")
	}
	if err := json.Unmarshal([]byte(keywordsJSON), &kc.Keywords); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal keywords")
	}
	return kc, nil
}

func (s *PostgresStore) PutKeywordCache(ctx context.Context, keywords []string, updated time.Time) error {
	keywordsJSON, err := json.Marshal(keywords)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal keywords")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO keyword_cache (id, keywords, updated_at) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET keywords = EXCLUDED.keywords, updated_at = EXCLUDED.updated_at`,
		string(keywordsJSON), updated.UTC().Format(time.RFC3339),
	)
	return eris.Wrap(err, "postgres: put keyword cache")
}

func (s *PostgresStore) GetCachedSummary(ctx context.Context, urlHash string) (string, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT summary FROM summary_cache WHERE url_hash = $1`, urlHash)

	var summary string
	err := row.Scan(&summary)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrap(err, "postgres: get cached summary")
	}
	return summary, true, nil
}

func (s *PostgresStore) PutCachedSummary(ctx context.Context, urlHash, summary string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO summary_cache (url_hash, summary, cached_at) VALUES ($1, $2, $3)
		ON CONFLICT (url_hash) DO UPDATE SET summary = EXCLUDED.summary, cached_at = EXCLUDED.cached_at`,
		urlHash, summary, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: put cached summary")
}

// helpers

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func collectPgSignals(rows pgx.Rows) ([]model.Signal, error) {
	var signals []model.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		signals = append(signals, *sig)
	}
	return signals, eris.Wrap(rows.Err(), "iterate signals")
}
