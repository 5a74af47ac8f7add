// Package ndvi implements domain.VegetationProvider against the satellite
// NDVI micro-service.
package ndvi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/smart-irrigation-service/internal/adapter/upstream"
	"github.com/couchcryptid/smart-irrigation-service/internal/observability"
)

const source = "ndvi"

// Client queries GET {base}/ndvi?lat=&lon= and expects {"ndvi": x}.
type Client struct {
	baseURL string
	caller  *upstream.Caller
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates an NDVI service client.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		caller:  upstream.New(source, timeout),
		metrics: metrics,
		logger:  logger,
	}
}

type response struct {
	NDVI *float64 `json:"ndvi"`
}

// NDVI returns the canopy index at the coordinate.
func (c *Client) NDVI(ctx context.Context, lat, lon float64) (float64, error) {
	start := time.Now()
	v, err := c.fetch(ctx, lat, lon)
	c.metrics.UpstreamDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(source, "error").Inc()
		return 0, err
	}
	c.metrics.UpstreamRequests.WithLabelValues(source, "success").Inc()
	return v, nil
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) (float64, error) {
	params := url.Values{
		"lat": {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon": {strconv.FormatFloat(lon, 'f', -1, 64)},
	}
	body, err := c.caller.Get(ctx, c.baseURL+"/ndvi?"+params.Encode())
	if err != nil {
		return 0, fmt.Errorf("ndvi request: %w", err)
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if resp.NDVI == nil {
		return 0, errors.New("ndvi response missing value")
	}
	if *resp.NDVI < -1 || *resp.NDVI > 1 {
		return 0, fmt.Errorf("ndvi response %.3f outside [-1, 1]", *resp.NDVI)
	}
	return *resp.NDVI, nil
}
