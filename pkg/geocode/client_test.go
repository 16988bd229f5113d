package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nominatimHit = `[
	{
		"lat": "39.9612",
		"lon": "-82.9988",
		"display_name": "Columbus, Franklin County, Ohio, United States"
	}
]`

const censusHit = `{
	"result": {
		"addressMatches": [
			{
				"matchedAddress": "100 MAIN ST, COLUMBUS, OH, 43215",
				"coordinates": {"x": -82.9988, "y": 39.9612}
			}
		]
	}
}`

func TestNominatimGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Columbus, Ohio", r.URL.Query().Get("q"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "lead-master-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(nominatimHit))
	}))
	defer srv.Close()

	c := NewClient(
		WithNominatimURL(srv.URL),
		WithNominatimRPS(100),
		WithUserAgent("lead-master-test"),
		WithCensusFallback(false),
	)

	result, err := c.Geocode(context.Background(), "Columbus, Ohio")
	require.NoError(t, err)
	require.True(t, result.Matched)
	assert.InDelta(t, 39.9612, result.Latitude, 1e-6)
	assert.InDelta(t, -82.9988, result.Longitude, 1e-6)
	assert.Equal(t, "nominatim", result.Source)
}

func TestCensusFallback(t *testing.T) {
	nominatim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer nominatim.Close()

	census := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100 Main St, Columbus, OH", r.URL.Query().Get("address"))
		_, _ = w.Write([]byte(censusHit))
	}))
	defer census.Close()

	nom := newNominatim(&cascadeConfig{
		nominatimURL: nominatim.URL,
		nominatimRPS: 100,
		userAgent:    "test",
		httpClient:   http.DefaultClient,
	})
	cen := NewCensusProvider(census.URL, http.DefaultClient)

	c := NewCascade(time.Minute, nom, cen)

	result, err := c.Geocode(context.Background(), "100 Main St, Columbus, OH")
	require.NoError(t, err)
	require.True(t, result.Matched)
	assert.Equal(t, "census", result.Source)
	assert.InDelta(t, 39.9612, result.Latitude, 1e-6)
}

func TestGeocodeCachesResults(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(nominatimHit))
	}))
	defer srv.Close()

	c := NewClient(
		WithNominatimURL(srv.URL),
		WithNominatimRPS(100),
		WithCensusFallback(false),
	)

	for range 3 {
		result, err := c.Geocode(context.Background(), "Columbus, Ohio")
		require.NoError(t, err)
		assert.True(t, result.Matched)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestGeocodeCachesMisses(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(
		WithNominatimURL(srv.URL),
		WithNominatimRPS(100),
		WithCensusFallback(false),
	)

	for range 2 {
		result, err := c.Geocode(context.Background(), "Nowhere At All")
		require.NoError(t, err)
		assert.False(t, result.Matched)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestGeocodeProviderErrorFallsThrough(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	census := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(censusHit))
	}))
	defer census.Close()

	nom := newNominatim(&cascadeConfig{
		nominatimURL: broken.URL,
		nominatimRPS: 100,
		userAgent:    "test",
		httpClient:   http.DefaultClient,
	})
	cen := NewCensusProvider(census.URL, http.DefaultClient)

	c := NewCascade(time.Minute, nom, cen)

	result, err := c.Geocode(context.Background(), "100 Main St, Columbus, OH")
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, "census", result.Source)
}
