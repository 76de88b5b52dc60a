package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/asase/envreport/internal/domain/environment"
)

const defaultBaseURL = "https://api.open-meteo.com/v1/elevation"

var errNoElevation = errors.New("elevation response has no values")

// Client fetches ground elevation from the Open-Meteo elevation API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds an elevation client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	u := strings.TrimSpace(baseURL)
	if u == "" {
		u = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(u, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Elevation implements environment.ElevationProvider. Meters are truncated toward zero.
func (c *Client) Elevation(ctx context.Context, lat, lon float64) (int, error) {
	params := url.Values{
		"latitude":  {strconv.FormatFloat(lat, 'f', -1, 64)},
		"longitude": {strconv.FormatFloat(lon, 'f', -1, 64)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("build elevation request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("elevation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return 0, fmt.Errorf("elevation request error: status=%d body=%s", resp.StatusCode, string(payload))
	}

	var raw struct {
		Elevation *[]float64 `json:"elevation"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return 0, fmt.Errorf("decode elevation response: %w", err)
	}
	// A payload without the field reads as sea level.
	if raw.Elevation == nil {
		return 0, nil
	}
	if len(*raw.Elevation) == 0 {
		return 0, errNoElevation
	}
	return int((*raw.Elevation)[0]), nil
}

var _ environment.ElevationProvider = (*Client)(nil)
