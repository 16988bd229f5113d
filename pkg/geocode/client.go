// Package geocode provides free-text geocoding via Nominatim (primary)
// and the US Census Geocoder (fallback), with an in-memory TTL cache.
package geocode

import (
	"context"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Result holds the geocoding output for a query.
type Result struct {
	Latitude    float64
	Longitude   float64
	Source      string // "nominatim" or "census"
	DisplayName string
	Matched     bool
}

// Client geocodes free-text place queries.
type Client interface {
	Geocode(ctx context.Context, query string) (*Result, error)
}

// Provider is a single geocoding backend.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, query string) (*Result, error)
}

// CascadeClient tries providers in order until one matches, caching
// outcomes (including misses) for the configured TTL.
type CascadeClient struct {
	providers []Provider
	cache     *gocache.Cache
}

// Option configures the cascade.
type Option func(*cascadeConfig)

type cascadeConfig struct {
	userAgent    string
	nominatimURL string
	nominatimRPS float64
	census       bool
	cacheTTL     time.Duration
	httpClient   *http.Client
}

// WithUserAgent sets the User-Agent sent to Nominatim (its usage policy
// requires an identifying agent).
func WithUserAgent(ua string) Option {
	return func(c *cascadeConfig) { c.userAgent = ua }
}

// WithNominatimURL overrides the Nominatim endpoint. Used by tests.
func WithNominatimURL(u string) Option {
	return func(c *cascadeConfig) { c.nominatimURL = u }
}

// WithNominatimRPS sets the Nominatim request rate.
func WithNominatimRPS(rps float64) Option {
	return func(c *cascadeConfig) { c.nominatimRPS = rps }
}

// WithCensusFallback enables or disables the Census fallback provider.
func WithCensusFallback(enabled bool) Option {
	return func(c *cascadeConfig) { c.census = enabled }
}

// WithCacheTTL sets how long results are cached in memory.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *cascadeConfig) { c.cacheTTL = ttl }
}

// WithHTTPClient sets a custom HTTP client for all providers.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *cascadeConfig) { c.httpClient = hc }
}

// NewClient creates a geocoding cascade with the given options.
func NewClient(opts ...Option) *CascadeClient {
	cfg := &cascadeConfig{
		userAgent:    "lead-master/1.0",
		nominatimURL: defaultNominatimURL,
		nominatimRPS: 1, // Nominatim usage policy
		census:       true,
		cacheTTL:     30 * 24 * time.Hour,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	providers := []Provider{newNominatim(cfg)}
	if cfg.census {
		providers = append(providers, newCensus(cfg))
	}

	return &CascadeClient{
		providers: providers,
		cache:     gocache.New(cfg.cacheTTL, cfg.cacheTTL/2),
	}
}

// NewCascade builds a cascade from explicit providers. Used by tests.
func NewCascade(ttl time.Duration, providers ...Provider) *CascadeClient {
	return &CascadeClient{
		providers: providers,
		cache:     gocache.New(ttl, ttl/2),
	}
}

// Geocode resolves a free-text query, trying each provider in order.
// An unmatched query is not an error.
func (c *CascadeClient) Geocode(ctx context.Context, query string) (*Result, error) {
	if cached, ok := c.cache.Get(query); ok {
		return cached.(*Result), nil
	}

	for _, p := range c.providers {
		result, err := p.Geocode(ctx, query)
		if err != nil {
			zap.L().Debug("geocode provider error, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			continue
		}
		if result != nil && result.Matched {
			c.cache.SetDefault(query, result)
			return result, nil
		}
	}

	// All providers missed. Cache the miss too.
	miss := &Result{Matched: false}
	c.cache.SetDefault(query, miss)
	return miss, nil
}
