package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultNominatimURL = "https://nominatim.openstreetmap.org/search"

type nominatimProvider struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func newNominatim(cfg *cascadeConfig) *nominatimProvider {
	return &nominatimProvider{
		baseURL:    cfg.nominatimURL,
		userAgent:  cfg.userAgent,
		httpClient: cfg.httpClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.nominatimRPS), 1),
	}
}

func (p *nominatimProvider) Name() string { return "nominatim" }

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (p *nominatimProvider) Geocode(ctx context.Context, query string) (*Result, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "nominatim: rate limit")
	}

	params := url.Values{
		"q":      {query},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}
	reqURL := p.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: build request")
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("nominatim: returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: read body")
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, eris.Wrap(err, "nominatim: parse response")
	}
	if len(results) == 0 {
		return &Result{Matched: false}, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: parse latitude")
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: parse longitude")
	}

	return &Result{
		Latitude:    lat,
		Longitude:   lon,
		Source:      "nominatim",
		DisplayName: results[0].DisplayName,
		Matched:     true,
	}, nil
}
