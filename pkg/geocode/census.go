package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"
)

const defaultCensusURL = "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress"

// censusProvider uses the US Census Geocoder's one-line address endpoint.
// It only resolves US street addresses, so it runs after Nominatim.
type censusProvider struct {
	baseURL    string
	httpClient *http.Client
}

func newCensus(cfg *cascadeConfig) *censusProvider {
	return &censusProvider{
		baseURL:    defaultCensusURL,
		httpClient: cfg.httpClient,
	}
}

// NewCensusProvider creates a Census provider against a custom endpoint.
// Used by tests.
func NewCensusProvider(baseURL string, hc *http.Client) Provider {
	return &censusProvider{baseURL: baseURL, httpClient: hc}
}

func (p *censusProvider) Name() string { return "census" }

type censusResponse struct {
	Result struct {
		AddressMatches []struct {
			MatchedAddress string `json:"matchedAddress"`
			Coordinates    struct {
				X float64 `json:"x"` // longitude
				Y float64 `json:"y"` // latitude
			} `json:"coordinates"`
		} `json:"addressMatches"`
	} `json:"result"`
}

func (p *censusProvider) Geocode(ctx context.Context, query string) (*Result, error) {
	params := url.Values{
		"address":   {query},
		"benchmark": {"Public_AR_Current"},
		"format":    {"json"},
	}
	reqURL := p.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "census: build request")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "census: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("census: returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "census: read body")
	}

	var parsed censusResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "census: parse response")
	}

	matches := parsed.Result.AddressMatches
	if len(matches) == 0 {
		return &Result{Matched: false}, nil
	}

	return &Result{
		Latitude:    matches[0].Coordinates.Y,
		Longitude:   matches[0].Coordinates.X,
		Source:      "census",
		DisplayName: matches[0].MatchedAddress,
		Matched:     true,
	}, nil
}
