package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-master/internal/keywords"
	"github.com/sells-group/lead-master/internal/llm"
	"github.com/sells-group/lead-master/internal/permits"
	"github.com/sells-group/lead-master/internal/scan"
	"github.com/sells-group/lead-master/internal/store"
	"github.com/sells-group/lead-master/internal/summarize"
	"github.com/sells-group/lead-master/pkg/gdelt"
	"github.com/sells-group/lead-master/pkg/geocode"
	"github.com/sells-group/lead-master/pkg/googlenews"
)

// appEnv holds the wired application components a command needs.
type appEnv struct {
	Store    store.Store
	Provider llm.Provider
}

// openStore opens and migrates the configured store backend.
func openStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "", "sqlite":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.MaxConns, cfg.Store.MinConns)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initEnv opens the store and the LLM provider. A missing API key
// downgrades to no provider rather than failing; scans then run with
// seed keywords and raw headlines.
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	provider, err := llm.NewProvider(llm.Config(cfg.LLM))
	if err != nil {
		zap.L().Warn("llm provider unavailable, continuing without", zap.Error(err))
		provider = nil
	}

	return &appEnv{Store: st, Provider: provider}, nil
}

func (e *appEnv) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

func (e *appEnv) gdeltClient() *gdelt.Client {
	return gdelt.NewClient(
		gdelt.WithBaseURL(cfg.GDELT.BaseURL),
		gdelt.WithRateLimit(cfg.GDELT.RateLimit),
	)
}

func (e *appEnv) newsClient() *googlenews.Client {
	return googlenews.NewClient(
		googlenews.WithBaseURL(cfg.GoogleNews.BaseURL),
		googlenews.WithRateLimit(cfg.GoogleNews.RateLimit),
	)
}

func (e *appEnv) geocoder() geocode.Client {
	return geocode.NewClient(
		geocode.WithUserAgent(cfg.Geocode.UserAgent),
		geocode.WithNominatimURL(cfg.Geocode.NominatimURL),
		geocode.WithNominatimRPS(cfg.Geocode.NominatimRPS),
		geocode.WithCensusFallback(cfg.Geocode.CensusFallback),
		geocode.WithCacheTTL(time.Duration(cfg.Geocode.CacheTTLHours)*time.Hour),
	)
}

func (e *appEnv) expander() *keywords.Expander {
	return keywords.NewExpander(e.Store, e.Provider, cfg.Scan.KeywordTTLDays, cfg.Scan.MaxKeywords)
}

func (e *appEnv) scanPipeline() *scan.Pipeline {
	var summarizer scan.HeadlineSummarizer
	if e.Provider != nil {
		summarizer = summarize.New(e.Store, e.Provider)
	}
	return scan.NewPipeline(e.Store, e.gdeltClient(), e.expander(), summarizer, scan.Options{
		MaxProspects:      cfg.Scan.MaxProspects,
		KeywordFanOut:     cfg.Scan.KeywordFanOut,
		PerKeywordRecords: cfg.Scan.PerKeywordRecords,
		Concurrency:       cfg.Scan.Concurrency,
	})
}

func (e *appEnv) permitFetcher() (*permits.Fetcher, error) {
	counties, err := permits.LoadRegistry(cfg.Permits.CountiesFile)
	if err != nil {
		return nil, err
	}
	return permits.NewFetcher(e.newsClient(), counties, cfg.Permits.MaxPerFeed), nil
}
