// Package googlenews provides a client for the Google News RSS search feed.
package googlenews

import (
	"context"
	"encoding/xml"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://news.google.com/rss/search"

// Item is a single feed entry.
type Item struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
	Source  string `xml:"source"`
}

// Date returns the publication day in yyyymmdd form. Entries with an
// unparseable pubDate fall back to the current UTC day, matching how the
// county feeds were stamped originally.
func (i Item) Date() string {
	for _, layout := range []string{time.RFC1123, time.RFC1123Z} {
		if t, err := time.Parse(layout, i.PubDate); err == nil {
			return t.UTC().Format("20060102")
		}
	}
	return time.Now().UTC().Format("20060102")
}

type rssFeed struct {
	Channel struct {
		Items []Item `xml:"item"`
	} `xml:"channel"`
}

// Client fetches Google News RSS search results.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the feed endpoint. Used by tests.
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

// WithMaxRetries sets the attempt count for transient failures.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// NewClient creates a Google News client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(2, 1),
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search fetches feed items for the given query, capped at max entries.
// Queries may use search operators such as `site:`.
func (c *Client) Search(ctx context.Context, query string, max int) ([]Item, error) {
	params := url.Values{
		"q":    {query},
		"hl":   {"en-US"},
		"gl":   {"US"},
		"ceid": {"US:en"},
	}
	reqURL := c.baseURL + "?" + params.Encode()

	body, err := c.fetch(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	items, err := parseFeed(body)
	if err != nil {
		return nil, err
	}

	if max > 0 && len(items) > max {
		items = items[:max]
	}
	return items, nil
}

func (c *Client) fetch(ctx context.Context, reqURL string) (io.ReadCloser, error) {
	var lastErr error
	for attempt := range c.maxRetries {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "googlenews: rate limit")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "googlenews: build request")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("googlenews: status %d", resp.StatusCode)
			zap.L().Warn("feed fetch failed, retrying",
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			c.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, eris.Errorf("googlenews: unexpected status %d", resp.StatusCode)
		}

		return resp.Body, nil
	}
	return nil, eris.Wrap(lastErr, "googlenews: all retries exhausted")
}

func (c *Client) backoff(ctx context.Context, attempt int) {
	d := time.Duration(float64(500*time.Millisecond) * math.Pow(2, float64(attempt)))
	d += time.Duration(rand.Int64N(int64(d) / 2))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// parseFeed decodes an RSS document, handling non-UTF-8 charsets.
func parseFeed(r io.Reader) ([]Item, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "googlenews: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	var feed rssFeed
	if err := decoder.Decode(&feed); err != nil {
		return nil, eris.Wrap(err, "googlenews: decode feed")
	}
	return feed.Channel.Items, nil
}
