package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-master/internal/model"
)

// ErrNotFound is returned when a requested lead or signal does not exist.
var ErrNotFound = eris.New("not found")

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	Sector string           `json:"sector,omitempty"`
	Status model.LeadStatus `json:"status,omitempty"`
	Limit  int              `json:"limit,omitempty"`
	Offset int              `json:"offset,omitempty"`
}

// SignalFilter specifies criteria for listing signals. Start and End are
// inclusive yyyymmdd date bounds.
type SignalFilter struct {
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
	Company string `json:"company,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for leads, signals, and the
// keyword/summary caches the scan pipeline maintains.
type Store interface {
	// Leads
	UpsertLead(ctx context.Context, lead model.Lead) error
	GetLead(ctx context.Context, name string) (*model.Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)

	// Signals
	InsertSignal(ctx context.Context, sig model.Signal) (inserted bool, err error)
	ListSignals(ctx context.Context, filter SignalFilter) ([]model.Signal, error)
	LatestSignalPerCompany(ctx context.Context, start, end string) ([]model.Signal, error)
	SignalsMissingLocation(ctx context.Context, limit int) ([]model.Signal, error)
	SetSignalLocation(ctx context.Context, id string, lat, lon float64) error
	SetSignalSummary(ctx context.Context, id string, summary string) error

	// Keyword cache (single row, refreshed weekly)
	GetKeywordCache(ctx context.Context) (*model.KeywordCache, error)
	PutKeywordCache(ctx context.Context, keywords []string, updated time.Time) error

	// Summary cache, keyed by sha256 of the article URL
	GetCachedSummary(ctx context.Context, urlHash string) (string, bool, error)
	PutCachedSummary(ctx context.Context, urlHash, summary string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
