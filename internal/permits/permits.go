// Package permits fetches building-permit headlines from a hybrid of
// the national Google News feed and per-county feeds from the registry.
package permits

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-master/internal/model"
	"github.com/sells-group/lead-master/internal/store"
	"github.com/sells-group/lead-master/pkg/googlenews"
)

const nationalQuery = `"building permit" site:gov`

// FeedSearcher is the slice of the Google News client the fetcher needs.
type FeedSearcher interface {
	Search(ctx context.Context, query string, max int) ([]googlenews.Item, error)
}

// Fetcher assembles the hybrid permit-alert list.
type Fetcher struct {
	searcher   FeedSearcher
	counties   []County
	maxPerFeed int
}

// NewFetcher wires a permit fetcher over the given feed client and
// county registry.
func NewFetcher(searcher FeedSearcher, counties []County, maxPerFeed int) *Fetcher {
	if maxPerFeed <= 0 {
		maxPerFeed = 10
	}
	return &Fetcher{
		searcher:   searcher,
		counties:   counties,
		maxPerFeed: maxPerFeed,
	}
}

// Fetch returns permit alerts from the national feed plus every county
// feed, with awarded-work notices (headlines mentioning a contractor)
// filtered out and duplicate URLs dropped. Per-feed failures are logged
// and skipped.
func (f *Fetcher) Fetch(ctx context.Context) ([]model.PermitAlert, error) {
	// one slot for national plus one per county, stable order
	batches := make([][]model.PermitAlert, 1+len(f.counties))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	g.Go(func() error {
		items, err := f.searcher.Search(gctx, nationalQuery, f.maxPerFeed)
		if err != nil {
			zap.L().Warn("national permit feed failed, skipping", zap.Error(err))
			return nil
		}
		batches[0] = toAlerts(items, "national")
		return nil
	})

	for i, county := range f.counties {
		g.Go(func() error {
			query := fmt.Sprintf(`"building permit" site:%s`, county.Domain)
			items, err := f.searcher.Search(gctx, query, f.maxPerFeed)
			if err != nil {
				zap.L().Warn("county permit feed failed, skipping",
					zap.String("domain", county.Domain),
					zap.Error(err),
				)
				return nil
			}
			batches[i+1] = toAlerts(items, county.Domain)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "permits: fetch feeds")
	}

	seen := make(map[string]struct{})
	var alerts []model.PermitAlert
	for _, batch := range batches {
		for _, a := range batch {
			if strings.Contains(strings.ToLower(a.Title), "contractor") {
				continue
			}
			if _, dup := seen[a.URL]; dup {
				continue
			}
			seen[a.URL] = struct{}{}
			alerts = append(alerts, a)
		}
	}
	return alerts, nil
}

func toAlerts(items []googlenews.Item, src string) []model.PermitAlert {
	alerts := make([]model.PermitAlert, 0, len(items))
	for _, item := range items {
		alerts = append(alerts, model.PermitAlert{
			Title: item.Title,
			URL:   item.Link,
			Date:  item.Date(),
			Src:   src,
		})
	}
	return alerts
}

// Record persists permit alerts as signals so they show up alongside
// scan results. Returns how many were new.
func Record(ctx context.Context, st store.Store, alerts []model.PermitAlert) (int, error) {
	inserted := 0
	for _, a := range alerts {
		sig := model.Signal{
			ID:          uuid.NewString(),
			Company:     a.Src,
			Date:        a.Date,
			Headline:    a.Title,
			URL:         a.URL,
			URLHash:     model.HashURL(a.URL),
			SourceLabel: model.SignalSourcePermit,
			Summary:     a.Title,
			CreatedAt:   time.Now().UTC(),
		}
		ok, err := st.InsertSignal(ctx, sig)
		if err != nil {
			return inserted, eris.Wrapf(err, "permits: insert signal %s", a.URL)
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}
