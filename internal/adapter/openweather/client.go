// Package openweather implements domain.WeatherProvider on the OpenWeather
// 2.5 current-conditions and 5-day/3-hour forecast APIs.
package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/smart-irrigation-service/internal/adapter/upstream"
	"github.com/couchcryptid/smart-irrigation-service/internal/domain"
	"github.com/couchcryptid/smart-irrigation-service/internal/observability"
)

const (
	source = "openweather"

	// forecastSteps is five days of 3-hour entries.
	forecastSteps = 40
	// stepsPerDay samples one 3-hour entry per 24 hours.
	stepsPerDay     = 8
	maxForecastDays = 7
)

// Client fetches weather from OpenWeather.
type Client struct {
	apiKey  string
	baseURL string
	caller  *upstream.Caller
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates an OpenWeather client. baseURL is the API root, e.g.
// https://api.openweathermap.org/data/2.5.
func NewClient(apiKey, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		caller:  upstream.New(source, timeout),
		metrics: metrics,
		logger:  logger,
	}
}

// Weather returns current conditions and a daily forecast for the coordinate.
func (c *Client) Weather(ctx context.Context, lat, lon float64) (domain.WeatherReport, error) {
	start := time.Now()
	report, err := c.fetch(ctx, lat, lon)
	c.metrics.UpstreamDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(source, "error").Inc()
		c.logger.Warn("weather fetch failed", "lat", lat, "lon", lon, "error", err)
		return domain.WeatherReport{}, err
	}
	c.metrics.UpstreamRequests.WithLabelValues(source, "success").Inc()
	return report, nil
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) (domain.WeatherReport, error) {
	var cur currentResponse
	if err := c.getJSON(ctx, "weather", lat, lon, nil, &cur); err != nil {
		return domain.WeatherReport{}, fmt.Errorf("openweather current request: %w", err)
	}

	var fc forecastResponse
	extra := url.Values{"cnt": {strconv.Itoa(forecastSteps)}}
	if err := c.getJSON(ctx, "forecast", lat, lon, extra, &fc); err != nil {
		return domain.WeatherReport{}, fmt.Errorf("openweather forecast request: %w", err)
	}

	return domain.WeatherReport{
		Current:  cur.toDomain(),
		Forecast: fc.daily(),
	}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, lat, lon float64, extra url.Values, dst any) error {
	params := url.Values{
		"lat":   {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(lon, 'f', -1, 64)},
		"appid": {c.apiKey},
		"units": {"metric"},
	}
	for k, v := range extra {
		params[k] = v
	}

	body, err := c.caller.Get(ctx, c.baseURL+"/"+path+"?"+params.Encode())
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// OpenWeather API response types.

type condition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type currentResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []condition `json:"weather"`
}

func (r currentResponse) toDomain() domain.CurrentConditions {
	cc := domain.CurrentConditions{
		Temperature: r.Main.Temp,
		Humidity:    r.Main.Humidity,
		WindSpeed:   r.Wind.Speed,
	}
	if len(r.Weather) > 0 {
		cc.Weather = r.Weather[0].Main
		cc.Description = r.Weather[0].Description
	}
	return cc
}

type forecastResponse struct {
	List []forecastItem `json:"list"`
}

type forecastItem struct {
	DtTxt string `json:"dt_txt"` // "2006-01-02 15:04:05"
	Main  struct {
		Temp     float64  `json:"temp"`
		TempMin  *float64 `json:"temp_min"`
		TempMax  *float64 `json:"temp_max"`
		Humidity float64  `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []condition `json:"weather"`
	Pop     float64     `json:"pop"` // probability of precipitation, 0–1
}

// daily samples every eighth 3-hour entry as that day's forecast.
func (r forecastResponse) daily() []domain.ForecastDay {
	days := make([]domain.ForecastDay, 0, maxForecastDays)
	for i := 0; i < len(r.List) && len(days) < maxForecastDays; i += stepsPerDay {
		it := r.List[i]
		date, _, _ := strings.Cut(it.DtTxt, " ")
		d := domain.ForecastDay{
			Date:            date,
			TempMax:         it.Main.Temp,
			TempMin:         it.Main.Temp,
			Humidity:        it.Main.Humidity,
			WindSpeed:       it.Wind.Speed,
			RainProbability: it.Pop * 100,
		}
		if it.Main.TempMax != nil {
			d.TempMax = *it.Main.TempMax
		}
		if it.Main.TempMin != nil {
			d.TempMin = *it.Main.TempMin
		}
		if len(it.Weather) > 0 {
			d.Weather = it.Weather[0].Main
		}
		days = append(days, d)
	}
	return days
}
