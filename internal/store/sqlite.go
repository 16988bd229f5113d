package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/lead-master/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	name        TEXT PRIMARY KEY,
	summary     TEXT NOT NULL DEFAULT '',
	sector_tags TEXT NOT NULL DEFAULT '[]',
	status      TEXT NOT NULL DEFAULT 'New',
	hq_address  TEXT NOT NULL DEFAULT '',
	phone       TEXT NOT NULL DEFAULT '',
	website     TEXT NOT NULL DEFAULT '',
	logo_url    TEXT NOT NULL DEFAULT '',
	facilities  TEXT NOT NULL DEFAULT '[]',
	contacts    TEXT NOT NULL DEFAULT '[]',
	next_touch  TEXT NOT NULL DEFAULT '',
	notes       TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS signals (
	id           TEXT PRIMARY KEY,
	company      TEXT NOT NULL,
	date         TEXT NOT NULL,
	headline     TEXT NOT NULL,
	url          TEXT NOT NULL,
	url_hash     TEXT NOT NULL UNIQUE,
	source_label TEXT NOT NULL,
	land_flag    INTEGER NOT NULL DEFAULT 0,
	sector_guess TEXT NOT NULL DEFAULT '',
	lat          REAL,
	lon          REAL,
	summary      TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS keyword_cache (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	keywords   TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS summary_cache (
	url_hash  TEXT PRIMARY KEY,
	summary   TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_signals_company ON signals(company);
CREATE INDEX IF NOT EXISTS idx_signals_date ON signals(date);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertLead(ctx context.Context, lead model.Lead) error {
	tags, facilities, contacts, err := marshalLeadJSON(lead)
	if err != nil {
		return err
	}
	if lead.Status == "" {
		lead.Status = model.LeadStatusNew
	}
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO leads (name, summary, sector_tags, status, hq_address, phone, website, logo_url, facilities, contacts, next_touch, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			summary = excluded.summary,
			sector_tags = excluded.sector_tags,
			status = excluded.status,
			hq_address = excluded.hq_address,
			phone = excluded.phone,
			website = excluded.website,
			logo_url = excluded.logo_url,
			facilities = excluded.facilities,
			contacts = excluded.contacts,
			next_touch = excluded.next_touch,
			notes = excluded.notes,
			updated_at = excluded.updated_at`,
		lead.Name, lead.Summary, tags, string(lead.Status), lead.HQAddress, lead.Phone,
		lead.Website, lead.LogoURL, facilities, contacts, lead.NextTouch, lead.Notes, now, now,
	)
	return eris.Wrapf(err, "sqlite: upsert lead %s", lead.Name)
}

func (s *SQLiteStore) GetLead(ctx context.Context, name string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, summary, sector_tags, status, hq_address, phone, website, logo_url, facilities, contacts, next_touch, notes, created_at, updated_at
		 FROM leads WHERE name = ?`, name)
	return scanLead(row)
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT name, summary, sector_tags, status, hq_address, phone, website, logo_url, facilities, contacts, next_touch, notes, created_at, updated_at
		FROM leads WHERE 1=1`
	var args []any

	if filter.Sector != "" {
		query += ` AND EXISTS (SELECT 1 FROM json_each(leads.sector_tags) WHERE json_each.value = ?)`
		args = append(args, filter.Sector)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY name`

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) InsertSignal(ctx context.Context, sig model.Signal) (bool, error) {
	if sig.ID == "" {
		sig.ID = uuid.New().String()
	}
	if sig.URLHash == "" {
		sig.URLHash = model.HashURL(sig.URL)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO signals (id, company, date, headline, url, url_hash, source_label, land_flag, sector_guess, lat, lon, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (url_hash) DO NOTHING`,
		sig.ID, sig.Company, sig.Date, sig.Headline, sig.URL, sig.URLHash,
		string(sig.SourceLabel), boolToInt(sig.LandFlag), sig.SectorGuess,
		sig.Latitude, sig.Longitude, sig.Summary, time.Now().UTC(),
	)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: insert signal")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: insert signal rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) ListSignals(ctx context.Context, filter SignalFilter) ([]model.Signal, error) {
	query := `SELECT id, company, date, headline, url, url_hash, source_label, land_flag, sector_guess, lat, lon, summary, created_at
		FROM signals WHERE 1=1`
	var args []any

	if filter.Start != "" {
		query += ` AND date >= ?`
		args = append(args, filter.Start)
	}
	if filter.End != "" {
		query += ` AND date <= ?`
		args = append(args, filter.End)
	}
	if filter.Company != "" {
		query += ` AND company = ?`
		args = append(args, filter.Company)
	}
	query += ` ORDER BY date DESC, created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list signals")
	}
	defer rows.Close()
	return collectSignals(rows)
}

func (s *SQLiteStore) LatestSignalPerCompany(ctx context.Context, start, end string) ([]model.Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company, date, headline, url, url_hash, source_label, land_flag, sector_guess, lat, lon, summary, created_at
		FROM signals
		WHERE date BETWEEN ? AND ?
		  AND id IN (
			SELECT id FROM signals s2
			WHERE s2.company = signals.company AND s2.date BETWEEN ? AND ?
			ORDER BY s2.date DESC, s2.created_at DESC LIMIT 1
		  )
		ORDER BY company`,
		start, end, start, end,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest signal per company")
	}
	defer rows.Close()
	return collectSignals(rows)
}

func (s *SQLiteStore) SignalsMissingLocation(ctx context.Context, limit int) ([]model.Signal, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company, date, headline, url, url_hash, source_label, land_flag, sector_guess, lat, lon, summary, created_at
		FROM signals WHERE lat IS NULL OR lon IS NULL
		ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: signals missing location")
	}
	defer rows.Close()
	return collectSignals(rows)
}

func (s *SQLiteStore) SetSignalLocation(ctx context.Context, id string, lat, lon float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE signals SET lat = ?, lon = ? WHERE id = ?`, lat, lon, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set signal location %s", id)
	}
	return checkRowsAffected(res, "signal", id)
}

func (s *SQLiteStore) SetSignalSummary(ctx context.Context, id string, summary string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE signals SET summary = ? WHERE id = ?`, summary, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set signal summary %s", id)
	}
	return checkRowsAffected(res, "signal", id)
}

func (s *SQLiteStore) GetKeywordCache(ctx context.Context) (*model.KeywordCache, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT keywords, updated_at FROM keyword_cache WHERE id = 1`)

	var keywordsJSON, updated string
	err := row.Scan(&keywordsJSON, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get keyword cache")
	}

	kc := &model.KeywordCache{}
	if kc.Updated, err = time.Parse(time.RFC3339, updated); err != nil {
		return nil, eris.Wrap(err, "sqlite: parse keyword cache timestamp")
	}
	if err := json.Unmarshal([]byte(keywordsJSON), &kc.Keywords); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal keywords")
	}
	return kc, nil
}

func (s *SQLiteStore) PutKeywordCache(ctx context.Context, keywords []string, updated time.Time) error {
	keywordsJSON, err := json.Marshal(keywords)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal keywords")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO keyword_cache (id, keywords, updated_at) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET keywords = excluded.keywords, updated_at = excluded.updated_at`,
		string(keywordsJSON), updated.UTC().Format(time.RFC3339),
	)
	return eris.Wrap(err, "sqlite: put keyword cache")
}

func (s *SQLiteStore) GetCachedSummary(ctx context.Context, urlHash string) (string, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT summary FROM summary_cache WHERE url_hash = ?`, urlHash)

	var summary string
	err := row.Scan(&summary)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrap(err, "sqlite: get cached summary")
	}
	return summary, true, nil
}

func (s *SQLiteStore) PutCachedSummary(ctx context.Context, urlHash, summary string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO summary_cache (url_hash, summary, cached_at) VALUES (?, ?, ?)
		ON CONFLICT (url_hash) DO UPDATE SET summary = excluded.summary, cached_at = excluded.cached_at`,
		urlHash, summary, time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: put cached summary")
}

// helpers

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func marshalLeadJSON(lead model.Lead) (tags, facilities, contacts string, err error) {
	tagsB, err := json.Marshal(orEmpty(lead.SectorTags))
	if err != nil {
		return "", "", "", eris.Wrap(err, "marshal sector tags")
	}
	facB, err := json.Marshal(orEmpty(lead.Facilities))
	if err != nil {
		return "", "", "", eris.Wrap(err, "marshal facilities")
	}
	if lead.Contacts == nil {
		lead.Contacts = []model.Contact{}
	}
	conB, err := json.Marshal(lead.Contacts)
	if err != nil {
		return "", "", "", eris.Wrap(err, "marshal contacts")
	}
	return string(tagsB), string(facB), string(conB), nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLead(row scannable) (*model.Lead, error) {
	var l model.Lead
	var status, tagsJSON, facJSON, conJSON string

	err := row.Scan(&l.Name, &l.Summary, &tagsJSON, &status, &l.HQAddress, &l.Phone,
		&l.Website, &l.LogoURL, &facJSON, &conJSON, &l.NextTouch, &l.Notes,
		&l.CreatedAt, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "lead")
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan lead")
	}

	l.Status = model.LeadStatus(status)
	if err := json.Unmarshal([]byte(tagsJSON), &l.SectorTags); err != nil {
		return nil, eris.Wrap(err, "unmarshal sector tags")
	}
	if err := json.Unmarshal([]byte(facJSON), &l.Facilities); err != nil {
		return nil, eris.Wrap(err, "unmarshal facilities")
	}
	if err := json.Unmarshal([]byte(conJSON), &l.Contacts); err != nil {
		return nil, eris.Wrap(err, "unmarshal contacts")
	}
	return &l, nil
}

func scanSignal(row scannable) (*model.Signal, error) {
	var sig model.Signal
	var source string
	var landFlag bool
	var lat, lon sql.NullFloat64

	err := row.Scan(&sig.ID, &sig.Company, &sig.Date, &sig.Headline, &sig.URL,
		&sig.URLHash, &source, &landFlag, &sig.SectorGuess, &lat, &lon,
		&sig.Summary, &sig.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "signal")
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan signal")
	}

	sig.SourceLabel = model.SignalSource(source)
	sig.LandFlag = landFlag
	if lat.Valid {
		sig.Latitude = &lat.Float64
	}
	if lon.Valid {
		sig.Longitude = &lon.Float64
	}
	return &sig, nil
}

func collectSignals(rows *sql.Rows) ([]model.Signal, error) {
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
