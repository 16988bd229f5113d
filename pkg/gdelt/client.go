// Package gdelt provides a client for the GDELT DOC 2.0 article search API.
package gdelt

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.gdeltproject.org/api/v2/doc/doc"

// Article is a single result from the DOC API.
type Article struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	SeenDate      string `json:"seendate"` // e.g. 20260815T123000Z
	Domain        string `json:"domain"`
	Language      string `json:"language"`
	SourceCountry string `json:"sourcecountry"`
}

// Date returns the yyyymmdd prefix of the seen date.
func (a Article) Date() string {
	if len(a.SeenDate) < 8 {
		return a.SeenDate
	}
	return a.SeenDate[:8]
}

type searchResponse struct {
	Articles []Article `json:"articles"`
}

// Client queries the GDELT DOC API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint. Used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewClient creates a GDELT client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(2, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs an article-list query for the given phrase.
func (c *Client) Search(ctx context.Context, query string, maxRecords int) ([]Article, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "gdelt: rate limit")
	}

	if maxRecords <= 0 {
		maxRecords = 5
	}
	params := url.Values{
		"query":      {query},
		"mode":       {"artlist"},
		"maxrecords": {strconv.Itoa(maxRecords)},
		"format":     {"json"},
	}

	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "gdelt: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "gdelt: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("gdelt: returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "gdelt: read body")
	}

	var searchResp searchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, eris.Wrap(err, "gdelt: parse response")
	}

	return searchResp.Articles, nil
}
