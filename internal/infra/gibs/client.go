package gibs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/asase/envreport/internal/domain/environment"
)

// DefaultTileURL is a MODIS Terra 8-day NDVI tile used as the availability probe.
const DefaultTileURL = "https://gibs.earthdata.nasa.gov/wmts/epsg4326/best/MODIS_Terra_NDVI_8Day/default/2025-10-01/250m/4/8/5.png"

// Client probes the NASA GIBS tile service.
type Client struct {
	tileURL    string
	httpClient *http.Client
}

// NewClient builds a tile probe for tileURL.
func NewClient(tileURL string, timeout time.Duration) *Client {
	u := strings.TrimSpace(tileURL)
	if u == "" {
		u = DefaultTileURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{tileURL: u, httpClient: &http.Client{Timeout: timeout}}
}

// TileAvailable implements environment.VegetationProbe. Only HTTP 200 counts as available.
func (c *Client) TileAvailable(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tileURL, nil)
	if err != nil {
		return false, fmt.Errorf("build tile request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("tile request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	return resp.StatusCode == http.StatusOK, nil
}

var _ environment.VegetationProbe = (*Client)(nil)
