// Package scan implements the national news scan: expand keywords, fan
// out GDELT article searches, match headlines, and persist deduplicated
// signals with summaries.
package scan

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-master/internal/model"
	"github.com/sells-group/lead-master/internal/store"
	"github.com/sells-group/lead-master/pkg/gdelt"
	"github.com/sells-group/lead-master/pkg/geocode"
)

// ArticleSearcher is the slice of the GDELT client the pipeline needs.
type ArticleSearcher interface {
	Search(ctx context.Context, query string, maxRecords int) ([]gdelt.Article, error)
}

// KeywordSource provides the current keyword list.
type KeywordSource interface {
	Keywords(ctx context.Context) ([]string, error)
}

// HeadlineSummarizer produces a one-line summary for an article.
type HeadlineSummarizer interface {
	Summarize(ctx context.Context, url, headline string) (string, error)
}

// Options bound the scan's fan-out and volume.
type Options struct {
	MaxProspects      int // cap on signals per run
	KeywordFanOut     int // how many keywords to query
	PerKeywordRecords int // maxrecords per GDELT query
	Concurrency       int // parallel GDELT queries
}

func (o *Options) applyDefaults() {
	if o.MaxProspects <= 0 {
		o.MaxProspects = 50
	}
	if o.KeywordFanOut <= 0 {
		o.KeywordFanOut = 10
	}
	if o.PerKeywordRecords <= 0 {
		o.PerKeywordRecords = 5
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
}

// Result reports what a scan run did.
type Result struct {
	Keywords   int `json:"keywords"`
	Prospects  int `json:"prospects"`
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
}

// Pipeline runs the national scan.
type Pipeline struct {
	store      store.Store
	searcher   ArticleSearcher
	keywords   KeywordSource
	summarizer HeadlineSummarizer
	opts       Options
}

// NewPipeline wires a scan pipeline. The summarizer may be nil, in which
// case signals keep their raw headlines.
func NewPipeline(st store.Store, searcher ArticleSearcher, kws KeywordSource, sum HeadlineSummarizer, opts Options) *Pipeline {
	opts.applyDefaults()
	return &Pipeline{
		store:      st,
		searcher:   searcher,
		keywords:   kws,
		summarizer: sum,
		opts:       opts,
	}
}

// Run executes one scan: keyword expansion, GDELT fan-out, headline
// matching, dedup, and signal insertion. Per-keyword fetch failures are
// logged and skipped so one bad query never sinks the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	kws, err := p.keywords.Keywords(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "scan: keywords")
	}

	fanOut := min(p.opts.KeywordFanOut, len(kws))
	queried := kws[:fanOut]

	// one slot per keyword keeps result order stable across runs
	batches := make([][]gdelt.Article, fanOut)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for i, kw := range queried {
		g.Go(func() error {
			articles, err := p.searcher.Search(gctx, kw, p.opts.PerKeywordRecords)
			if err != nil {
				zap.L().Warn("keyword fetch failed, skipping",
					zap.String("keyword", kw),
					zap.Error(err),
				)
				return nil
			}
			batches[i] = articles
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "scan: fetch")
	}

	result := &Result{Keywords: fanOut}

	var prospects []gdelt.Article
	seen := make(map[string]struct{})
	for _, batch := range batches {
		for _, a := range batch {
			if !HeadlineMatches(a.Title, kws) {
				continue
			}
			if _, dup := seen[a.URL]; dup {
				continue
			}
			seen[a.URL] = struct{}{}
			prospects = append(prospects, a)
		}
	}
	if len(prospects) > p.opts.MaxProspects {
		prospects = prospects[:p.opts.MaxProspects]
	}
	result.Prospects = len(prospects)

	for _, a := range prospects {
		sig := p.buildSignal(ctx, a)
		inserted, err := p.store.InsertSignal(ctx, sig)
		if err != nil {
			return nil, eris.Wrapf(err, "scan: insert signal %s", a.URL)
		}
		if inserted {
			result.Inserted++
		} else {
			result.Duplicates++
		}
	}

	zap.L().Info("scan complete",
		zap.Int("keywords", result.Keywords),
		zap.Int("prospects", result.Prospects),
		zap.Int("inserted", result.Inserted),
		zap.Int("duplicates", result.Duplicates),
	)
	return result, nil
}

func (p *Pipeline) buildSignal(ctx context.Context, a gdelt.Article) model.Signal {
	summary := a.Title
	if p.summarizer != nil {
		s, err := p.summarizer.Summarize(ctx, a.URL, a.Title)
		if err != nil {
			zap.L().Warn("summarize failed, keeping headline",
				zap.String("url", a.URL),
				zap.Error(err),
			)
		} else {
			summary = s
		}
	}

	return model.Signal{
		ID:          uuid.NewString(),
		Company:     a.Domain,
		Date:        a.Date(),
		Headline:    a.Title,
		URL:         a.URL,
		URLHash:     model.HashURL(a.URL),
		SourceLabel: model.SignalSourceScan,
		LandFlag:    LandFlag(a.Title),
		SectorGuess: GuessSector(a.Title),
		Summary:     summary,
		CreatedAt:   time.Now().UTC(),
	}
}

// GeocodeBackfill resolves coordinates for signals that have none,
// geocoding the company string with up to concurrency parallel lookups.
// Signals the geocoder cannot place are left untouched for the next
// pass.
func GeocodeBackfill(ctx context.Context, st store.Store, gc geocode.Client, limit, concurrency int) (int, error) {
	if concurrency <= 0 {
		concurrency = 2
	}

	signals, err := st.SignalsMissingLocation(ctx, limit)
	if err != nil {
		return 0, eris.Wrap(err, "scan: signals missing location")
	}

	var mu sync.Mutex
	updated := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, sig := range signals {
		g.Go(func() error {
			res, err := gc.Geocode(gctx, sig.Company)
			if err != nil {
				zap.L().Warn("geocode failed, skipping",
					zap.String("company", sig.Company),
					zap.Error(err),
				)
				return nil
			}
			if !res.Matched {
				return nil
			}
			if err := st.SetSignalLocation(gctx, sig.ID, res.Latitude, res.Longitude); err != nil {
				return eris.Wrapf(err, "scan: set location %s", sig.ID)
			}
			mu.Lock()
			updated++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return updated, err
	}

	zap.L().Info("geocode backfill complete",
		zap.Int("candidates", len(signals)),
		zap.Int("updated", updated),
	)
	return updated, nil
}
