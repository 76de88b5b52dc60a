package openweather

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

const defaultBaseURL = "https://api.openweathermap.org/data/3.0/onecall"

// ErrMissingAPIKey is returned by Forecast when no credential is configured.
var ErrMissingAPIKey = errors.New("openweather api key not configured")

// Client fetches precipitation forecasts from the One Call API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a One Call client. An empty apiKey is accepted; every
// Forecast call then fails with ErrMissingAPIKey.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	u := strings.TrimSpace(baseURL)
	if u == "" {
		u = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(u, "/"),
		apiKey:  strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Forecast implements environment.WeatherProvider.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (environment.Weather, error) {
	if c.apiKey == "" {
		return environment.Weather{}, ErrMissingAPIKey
	}

	params := url.Values{
		"lat":   {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(lon, 'f', -1, 64)},
		"appid": {c.apiKey},
		"units": {"metric"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return environment.Weather{}, fmt.Errorf("build weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return environment.Weather{}, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return environment.Weather{}, fmt.Errorf("weather request error: status=%d body=%s", resp.StatusCode, string(payload))
	}

	var raw oneCallResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return environment.Weather{}, fmt.Errorf("decode weather response: %w", err)
	}

	return raw.toWeather(), nil
}

type oneCallResponse struct {
	Hourly []hourlyForecast `json:"hourly"`
	Daily  []dailyForecast  `json:"daily"`
}

type hourlyForecast struct {
	POP float64 `json:"pop"`
}

type dailyForecast struct {
	// Rain is omitted by the API on dry days.
	Rain float64 `json:"rain"`
}

func (r oneCallResponse) toWeather() environment.Weather {
	pops := make([]float64, 0, len(r.Hourly))
	for _, h := range r.Hourly {
		pops = append(pops, h.POP)
	}
	var recent float64
	if len(r.Daily) > 0 {
		recent = r.Daily[0].Rain
	}
	return environment.WeatherFromForecast(pops, recent)
}

var _ environment.WeatherProvider = (*Client)(nil)
