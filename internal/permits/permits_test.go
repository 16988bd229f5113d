package permits

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-master/internal/model"
	"github.com/sells-group/lead-master/internal/store"
	"github.com/sells-group/lead-master/pkg/googlenews"
)

type fakeFeed struct {
	mu      sync.Mutex
	results map[string][]googlenews.Item
	errs    map[string]error
	queries []string
}

func (f *fakeFeed) Search(ctx context.Context, query string, max int) ([]googlenews.Item, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	items := f.results[query]
	if len(items) > max {
		items = items[:max]
	}
	return items, nil
}

func item(title, link string) googlenews.Item {
	return googlenews.Item{Title: title, Link: link, PubDate: "Sat, 15 Aug 2026 12:00:00 GMT"}
}

func TestFetchHybrid(t *testing.T) {
	feed := &fakeFeed{results: map[string][]googlenews.Item{
		`"building permit" site:gov`: {
			item("County issues building permit for cold storage", "https://n.example.com/1"),
		},
		`"building permit" site:maricopa.gov`: {
			item("Permit filed for warehouse annex", "https://n.example.com/2"),
		},
	}}
	counties := []County{{Name: "Maricopa County, AZ", Domain: "maricopa.gov"}}

	f := NewFetcher(feed, counties, 10)

	alerts, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "national", alerts[0].Src)
	assert.Equal(t, "20260815", alerts[0].Date)
	assert.Equal(t, "maricopa.gov", alerts[1].Src)
}

func TestFetchFiltersContractorNotices(t *testing.T) {
	feed := &fakeFeed{results: map[string][]googlenews.Item{
		`"building permit" site:gov`: {
			item("Contractor awarded downtown renovation", "https://n.example.com/1"),
			item("Permit issued for new plant", "https://n.example.com/2"),
		},
	}}

	f := NewFetcher(feed, nil, 10)

	alerts, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Permit issued for new plant", alerts[0].Title)
}

func TestFetchDedupsAcrossFeeds(t *testing.T) {
	shared := item("Permit issued for new plant", "https://n.example.com/1")
	feed := &fakeFeed{results: map[string][]googlenews.Item{
		`"building permit" site:gov`:          {shared},
		`"building permit" site:maricopa.gov`: {shared},
	}}

	f := NewFetcher(feed, []County{{Domain: "maricopa.gov"}}, 10)

	alerts, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "national", alerts[0].Src)
}

func TestFetchSkipsFailedFeed(t *testing.T) {
	feed := &fakeFeed{
		results: map[string][]googlenews.Item{
			`"building permit" site:maricopa.gov`: {
				item("Permit issued for new plant", "https://n.example.com/1"),
			},
		},
		errs: map[string]error{`"building permit" site:gov`: eris.New("feed down")},
	}

	f := NewFetcher(feed, []County{{Domain: "maricopa.gov"}}, 10)

	alerts, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

type recordStore struct {
	store.Store
	signals []model.Signal
}

func (r *recordStore) InsertSignal(ctx context.Context, sig model.Signal) (bool, error) {
	for _, s := range r.signals {
		if s.URLHash == sig.URLHash {
			return false, nil
		}
	}
	r.signals = append(r.signals, sig)
	return true, nil
}

func TestRecord(t *testing.T) {
	st := &recordStore{}
	alerts := []model.PermitAlert{
		{Title: "Permit issued", URL: "https://n.example.com/1", Date: "20260815", Src: "national"},
		{Title: "Permit issued", URL: "https://n.example.com/1", Date: "20260815", Src: "national"},
	}

	inserted, err := Record(context.Background(), st, alerts)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	require.Len(t, st.signals, 1)
	assert.Equal(t, model.SignalSourcePermit, st.signals[0].SourceLabel)
	assert.Equal(t, model.HashURL("https://n.example.com/1"), st.signals[0].URLHash)
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "counties.yaml")
	content := `counties:
  - name: Maricopa County, AZ
    domain: maricopa.gov
  - name: Harris County, TX
    domain: harriscountytx.gov
  - name: broken entry
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	counties, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, counties, 2)
	assert.Equal(t, "maricopa.gov", counties[0].Domain)
}

func TestLoadRegistryMissingFile(t *testing.T) {
	counties, err := LoadRegistry(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Nil(t, counties)
}

func TestLoadRegistryInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counties.yaml")
	require.NoError(t, os.WriteFile(path, []byte("counties: [unclosed"), 0o644))

	_, err := LoadRegistry(path)
	require.Error(t, err)
}
