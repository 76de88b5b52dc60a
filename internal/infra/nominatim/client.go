package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/asase/envreport/internal/domain/geocoding"
)

const (
	defaultBaseURL   = "https://nominatim.openstreetmap.org/search"
	defaultUserAgent = "ASASE-Environmental-Platform/1.0"
)

// Client implements geocoding.PlaceSearcher against the Nominatim search API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewClient builds a Nominatim client. Nominatim rejects requests without a User-Agent.
func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	u := strings.TrimSpace(baseURL)
	if u == "" {
		u = defaultBaseURL
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = defaultUserAgent
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(u, "/"),
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Search returns the single best match for query.
func (c *Client) Search(ctx context.Context, query string) (geocoding.Place, bool, error) {
	params := url.Values{
		"q":      {query},
		"format": {"json"},
		"limit":  {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return geocoding.Place{}, false, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return geocoding.Place{}, false, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return geocoding.Place{}, false, fmt.Errorf("search request error: status=%d body=%s", resp.StatusCode, string(payload))
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return geocoding.Place{}, false, fmt.Errorf("decode search response: %w", err)
	}
	if len(results) == 0 {
		return geocoding.Place{}, false, nil
	}

	return results[0].toPlace()
}

// Nominatim returns coordinates as strings.
type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (r searchResult) toPlace() (geocoding.Place, bool, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(r.Lat), 64)
	if err != nil {
		return geocoding.Place{}, false, fmt.Errorf("parse lat %q: %w", r.Lat, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(r.Lon), 64)
	if err != nil {
		return geocoding.Place{}, false, fmt.Errorf("parse lon %q: %w", r.Lon, err)
	}
	return geocoding.Place{Lat: lat, Lon: lon, DisplayName: r.DisplayName}, true, nil
}

var _ geocoding.PlaceSearcher = (*Client)(nil)
