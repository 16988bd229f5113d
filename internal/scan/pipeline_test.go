package scan

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-master/internal/model"
	"github.com/sells-group/lead-master/internal/store"
	"github.com/sells-group/lead-master/pkg/gdelt"
	"github.com/sells-group/lead-master/pkg/geocode"
)

type fakeStore struct {
	store.Store

	mu      sync.Mutex
	signals []model.Signal
	located map[string][2]float64
	missing []model.Signal
}

func newFakeStore() *fakeStore {
	return &fakeStore{located: make(map[string][2]float64)}
}

func (f *fakeStore) InsertSignal(ctx context.Context, sig model.Signal) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.signals {
		if s.URLHash == sig.URLHash {
			return false, nil
		}
	}
	f.signals = append(f.signals, sig)
	return true, nil
}

func (f *fakeStore) SignalsMissingLocation(ctx context.Context, limit int) ([]model.Signal, error) {
	return f.missing, nil
}

func (f *fakeStore) SetSignalLocation(ctx context.Context, id string, lat, lon float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.located[id] = [2]float64{lat, lon}
	return nil
}

type fakeSearcher struct {
	mu      sync.Mutex
	results map[string][]gdelt.Article
	errs    map[string]error
	queries []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string, maxRecords int) ([]gdelt.Article, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	return f.results[query], nil
}

type staticKeywords []string

func (s staticKeywords) Keywords(ctx context.Context) ([]string, error) { return s, nil }

func article(url, title string) gdelt.Article {
	return gdelt.Article{
		URL:      url,
		Title:    title,
		SeenDate: "20260815T120000Z",
		Domain:   "news.example.com",
	}
}

func TestPipelineRun(t *testing.T) {
	st := newFakeStore()
	searcher := &fakeSearcher{results: map[string][]gdelt.Article{
		"plant expansion": {
			article("https://a.example.com/1", "Acme announces plant expansion"),
			article("https://a.example.com/2", "Quarterly earnings beat estimates"), // no keyword
		},
		"warehouse": {
			article("https://a.example.com/3", "Beta buys land for new warehouse"),
		},
	}}

	p := NewPipeline(st, searcher, staticKeywords{"plant expansion", "warehouse"}, nil, Options{})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Keywords)
	assert.Equal(t, 2, res.Prospects)
	assert.Equal(t, 2, res.Inserted)
	assert.Zero(t, res.Duplicates)

	require.Len(t, st.signals, 2)
	first := st.signals[0]
	assert.Equal(t, "Acme announces plant expansion", first.Headline)
	assert.Equal(t, "20260815", first.Date)
	assert.Equal(t, model.SignalSourceScan, first.SourceLabel)
	assert.Equal(t, model.HashURL(first.URL), first.URLHash)
	assert.NotEmpty(t, first.ID)

	second := st.signals[1]
	assert.True(t, second.LandFlag)
	assert.Equal(t, "logistics", second.SectorGuess)
}

func TestPipelineDedupsAcrossKeywords(t *testing.T) {
	shared := article("https://a.example.com/1", "Acme announces warehouse and plant expansion")
	st := newFakeStore()
	searcher := &fakeSearcher{results: map[string][]gdelt.Article{
		"plant expansion": {shared},
		"warehouse":       {shared},
	}}

	p := NewPipeline(st, searcher, staticKeywords{"plant expansion", "warehouse"}, nil, Options{})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Prospects)
	assert.Equal(t, 1, res.Inserted)
}

func TestPipelineReRunCountsDuplicates(t *testing.T) {
	st := newFakeStore()
	searcher := &fakeSearcher{results: map[string][]gdelt.Article{
		"warehouse": {article("https://a.example.com/1", "New warehouse breaks ground")},
	}}

	p := NewPipeline(st, searcher, staticKeywords{"warehouse"}, nil, Options{})

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Inserted)
	assert.Equal(t, 1, res.Duplicates)
}

func TestPipelineCapsProspects(t *testing.T) {
	articles := []gdelt.Article{
		article("https://a.example.com/1", "warehouse one"),
		article("https://a.example.com/2", "warehouse two"),
		article("https://a.example.com/3", "warehouse three"),
	}
	st := newFakeStore()
	searcher := &fakeSearcher{results: map[string][]gdelt.Article{"warehouse": articles}}

	p := NewPipeline(st, searcher, staticKeywords{"warehouse"}, nil, Options{MaxProspects: 2})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Prospects)
	assert.Len(t, st.signals, 2)
}

func TestPipelineKeywordFanOutLimit(t *testing.T) {
	st := newFakeStore()
	searcher := &fakeSearcher{}

	kws := staticKeywords{"one", "two", "three", "four"}
	p := NewPipeline(st, searcher, kws, nil, Options{KeywordFanOut: 2})

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, searcher.queries, 2)
}

func TestPipelineSkipsFailedKeyword(t *testing.T) {
	st := newFakeStore()
	searcher := &fakeSearcher{
		results: map[string][]gdelt.Article{
			"warehouse": {article("https://a.example.com/1", "warehouse opens")},
		},
		errs: map[string]error{"plant expansion": eris.New("gdelt down")},
	}

	p := NewPipeline(st, searcher, staticKeywords{"plant expansion", "warehouse"}, nil, Options{})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
}

type fakeSummarizer struct{}

func (fakeSummarizer) Summarize(ctx context.Context, url, headline string) (string, error) {
	return "summary of " + headline, nil
}

func TestPipelineAttachesSummaries(t *testing.T) {
	st := newFakeStore()
	searcher := &fakeSearcher{results: map[string][]gdelt.Article{
		"warehouse": {article("https://a.example.com/1", "warehouse opens")},
	}}

	p := NewPipeline(st, searcher, staticKeywords{"warehouse"}, fakeSummarizer{}, Options{})

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, st.signals, 1)
	assert.Equal(t, "summary of warehouse opens", st.signals[0].Summary)
}

type fakeGeocoder struct {
	results map[string]*geocode.Result
}

func (f *fakeGeocoder) Geocode(ctx context.Context, query string) (*geocode.Result, error) {
	if r, ok := f.results[query]; ok {
		return r, nil
	}
	return &geocode.Result{Matched: false}, nil
}

func TestGeocodeBackfill(t *testing.T) {
	st := newFakeStore()
	st.missing = []model.Signal{
		{ID: "sig-1", Company: "Columbus, Ohio"},
		{ID: "sig-2", Company: "unknowable"},
	}
	gc := &fakeGeocoder{results: map[string]*geocode.Result{
		"Columbus, Ohio": {Latitude: 39.96, Longitude: -82.99, Matched: true},
	}}

	updated, err := GeocodeBackfill(context.Background(), st, gc, 100, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.Equal(t, [2]float64{39.96, -82.99}, st.located["sig-1"])
	_, ok := st.located["sig-2"]
	assert.False(t, ok)
}

type countingGeocoder struct {
	mu      sync.Mutex
	active  int
	maxSeen int
}

func (c *countingGeocoder) Geocode(ctx context.Context, query string) (*geocode.Result, error) {
	c.mu.Lock()
	c.active++
	if c.active > c.maxSeen {
		c.maxSeen = c.active
	}
	c.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	c.mu.Lock()
	c.active--
	c.mu.Unlock()
	return &geocode.Result{Matched: false}, nil
}

func TestGeocodeBackfillHonorsConcurrency(t *testing.T) {
	st := newFakeStore()
	for i := 0; i < 8; i++ {
		st.missing = append(st.missing, model.Signal{
			ID:      fmt.Sprintf("sig-%d", i),
			Company: fmt.Sprintf("company-%d", i),
		})
	}
	gc := &countingGeocoder{}

	_, err := GeocodeBackfill(context.Background(), st, gc, 100, 3)
	require.NoError(t, err)
	assert.LessOrEqual(t, gc.maxSeen, 3)
}

func TestHeadlineMatches(t *testing.T) {
	kws := []string{"Plant Expansion", "warehouse"}
	assert.True(t, HeadlineMatches("Acme announces plant expansion", kws))
	assert.True(t, HeadlineMatches("NEW WAREHOUSE COMING", kws))
	assert.False(t, HeadlineMatches("Quarterly earnings beat estimates", kws))
}

func TestLandFlag(t *testing.T) {
	assert.True(t, LandFlag("Beta buys land for facility"))
	assert.True(t, LandFlag("Gamma acquires 40 acres"))
	assert.False(t, LandFlag("Delta opens new office"))
}

func TestGuessSector(t *testing.T) {
	assert.Equal(t, "food & beverage", GuessSector("Cold storage hub planned"))
	assert.Equal(t, "logistics", GuessSector("New distribution center announced"))
	assert.Equal(t, "", GuessSector("Company holds annual meeting"))
}
