package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/smart-irrigation-service/internal/domain"
	"github.com/couchcryptid/smart-irrigation-service/internal/farm"
	"github.com/couchcryptid/smart-irrigation-service/internal/observability"
)

// ErrNoWeather is returned when no weather source is configured.
var ErrNoWeather = errors.New("no weather source configured")

// PlanView is the rounded plan plus its schedule label.
type PlanView struct {
	domain.IrrigationPlan
	Schedule string `json:"schedule"`
}

// TreeHealth summarizes the canopy state behind a recommendation.
type TreeHealth struct {
	NDVI            float64 `json:"ndvi_score"`
	Status          string  `json:"status"`
	CropCoefficient float64 `json:"kc_coefficient"`
}

// WeatherAnalysis summarizes the forecast window used.
type WeatherAnalysis struct {
	DailyET0MM      []float64 `json:"daily_et0_mm"`
	TotalET0MM      float64   `json:"total_et0_mm"`
	ExpectedRainMM  float64   `json:"expected_rain_mm"`
	CurrentTemp     float64   `json:"current_temp"`
	ForecastSummary string    `json:"forecast_summary"`
}

// Comparison contrasts the smart volume with the traditional practice.
type Comparison struct {
	TraditionalM3         float64 `json:"traditional_method_m3"`
	SmartM3               float64 `json:"smart_method_m3"`
	EfficiencyImprovement string  `json:"efficiency_improvement"`
}

// Advice is the complete, display-rounded answer to a Request.
type Advice struct {
	ID              string               `json:"id"`
	RequestID       string               `json:"request_id,omitempty"`
	FarmID          string               `json:"farm_id,omitempty"`
	Latitude        float64              `json:"latitude"`
	Longitude       float64              `json:"longitude"`
	ComputedAt      time.Time            `json:"computed_at"`
	Recommendation  PlanView             `json:"recommendation"`
	TreeHealth      TreeHealth           `json:"tree_health"`
	WeatherAnalysis WeatherAnalysis      `json:"weather_analysis"`
	Savings         domain.SavingsReport `json:"savings"`
	Comparison      Comparison           `json:"comparison"`
	WeatherFallback bool                 `json:"weather_fallback"`
	WeatherError    string               `json:"weather_error,omitempty"`
}

// Key is the partition key for the recommendation topic.
func (a Advice) Key() string {
	if a.FarmID != "" {
		return a.FarmID
	}
	if a.RequestID != "" {
		return a.RequestID
	}
	return a.ID
}

// Advisor resolves a Request into engine inputs, fetches weather and NDVI
// concurrently, and runs the engine.
type Advisor struct {
	engine     domain.Engine
	farms      *farm.Registry
	weather    domain.WeatherProvider
	fallback   domain.WeatherProvider
	vegetation domain.VegetationProvider
	clock      clockwork.Clock
	days       int
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// AdvisorOption configures an Advisor.
type AdvisorOption func(*Advisor)

// WithWeatherFallback substitutes fallback when the primary weather
// provider fails or is nil.
func WithWeatherFallback(fallback domain.WeatherProvider) AdvisorOption {
	return func(a *Advisor) { a.fallback = fallback }
}

// WithClock overrides the real clock.
func WithClock(c clockwork.Clock) AdvisorOption {
	return func(a *Advisor) { a.clock = c }
}

// NewAdvisor creates an Advisor over a window of days forecast days.
// weather may be nil when a fallback is configured.
func NewAdvisor(engine domain.Engine, farms *farm.Registry, weather domain.WeatherProvider, vegetation domain.VegetationProvider, days int, metrics *observability.Metrics, logger *slog.Logger, opts ...AdvisorOption) *Advisor {
	a := &Advisor{
		engine:     engine,
		farms:      farms,
		weather:    weather,
		vegetation: vegetation,
		clock:      clockwork.NewRealClock(),
		days:       days,
		metrics:    metrics,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// site is a Request resolved against the registry and defaults.
type site struct {
	farmID string
	lat    float64
	lon    float64
	plot   domain.PlotGeometry
	ndvi   *float64
	stage  domain.GrowthStage
}

func (a *Advisor) resolve(req Request) (site, error) {
	s := site{stage: domain.ParseGrowthStage(req.GrowthStage)}
	if req.FarmID != "" {
		f, err := a.farms.Get(req.FarmID)
		if err != nil {
			return site{}, err
		}
		score := f.NDVIScore
		s.farmID = f.ID
		s.lat, s.lon = f.Location.Lat, f.Location.Lon
		s.plot = f.Plot()
		s.ndvi = &score
		return s, nil
	}

	s.lat = floatOr(req.Latitude, defaultLatitude)
	s.lon = floatOr(req.Longitude, defaultLongitude)
	s.plot = domain.PlotGeometry{AreaHectares: floatOr(req.SizeHectares, defaultSizeHectares), PlantCount: defaultTreeCount}
	if req.TreeCount != nil {
		s.plot.PlantCount = *req.TreeCount
	}
	s.ndvi = req.NDVIScore
	return s, nil
}

// Advise produces a recommendation for req.
func (a *Advisor) Advise(ctx context.Context, req Request) (Advice, error) {
	if err := req.Validate(); err != nil {
		return Advice{}, err
	}
	s, err := a.resolve(req)
	if err != nil {
		return Advice{}, err
	}

	var (
		report      domain.WeatherReport
		usedDemo    bool
		weatherNote string
		ndvi        float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		report, usedDemo, weatherNote, err = a.fetchWeather(gctx, s.lat, s.lon)
		return err
	})
	if s.ndvi != nil {
		ndvi = *s.ndvi
	} else {
		g.Go(func() error {
			v, err := a.vegetation.NDVI(gctx, s.lat, s.lon)
			if err != nil {
				return fmt.Errorf("fetch ndvi: %w", err)
			}
			ndvi = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Advice{}, err
	}

	days := min(a.days, len(report.Forecast))
	if days == 0 {
		return Advice{}, fmt.Errorf("%w: weather forecast is empty", domain.ErrUpstreamUnavailable)
	}
	now := a.clock.Now()
	window, rain, err := domain.BuildWindow(report.Forecast, s.lat, now, days)
	if err != nil {
		return Advice{}, err
	}

	rec, err := a.engine.Recommend(domain.RecommendationInput{
		Window:          window,
		RainProbability: rain,
		NDVI:            ndvi,
		Stage:           s.stage,
		Plot:            s.plot,
	})
	if err != nil {
		return Advice{}, err
	}
	a.metrics.Recommendations.WithLabelValues(string(rec.Plan.Urgency)).Inc()

	r := rec.Rounded()
	labels := make([]string, days)
	for i := range labels {
		labels[i] = report.Forecast[i].Weather
	}

	return Advice{
		ID:         uuid.NewString(),
		RequestID:  req.RequestID,
		FarmID:     s.farmID,
		Latitude:   s.lat,
		Longitude:  s.lon,
		ComputedAt: now.UTC(),
		Recommendation: PlanView{
			IrrigationPlan: r.Plan,
			Schedule:       fmt.Sprintf("Next %d days", days),
		},
		TreeHealth: TreeHealth{
			NDVI:            domain.Round(ndvi, 3),
			Status:          r.Health.Status,
			CropCoefficient: r.CropCoefficient,
		},
		WeatherAnalysis: WeatherAnalysis{
			DailyET0MM:      r.DailyET0MM,
			TotalET0MM:      r.TotalET0MM,
			ExpectedRainMM:  r.ExpectedRainMM,
			CurrentTemp:     report.Current.Temperature,
			ForecastSummary: strings.Join(labels, " → "),
		},
		Savings: r.Savings,
		Comparison: Comparison{
			TraditionalM3:         r.TraditionalM3,
			SmartM3:               r.Plan.VolumeM3,
			EfficiencyImprovement: formatPercent(r.Savings.PercentageSaved),
		},
		WeatherFallback: usedDemo,
		WeatherError:    weatherNote,
	}, nil
}

// Weather returns the report for a coordinate, substituting the fallback
// when the primary source fails. The bool reports a substitution.
func (a *Advisor) Weather(ctx context.Context, lat, lon float64) (domain.WeatherReport, bool, error) {
	report, used, _, err := a.fetchWeather(ctx, lat, lon)
	return report, used, err
}

func (a *Advisor) fetchWeather(ctx context.Context, lat, lon float64) (domain.WeatherReport, bool, string, error) {
	if a.weather == nil {
		if a.fallback == nil {
			return domain.WeatherReport{}, false, "", ErrNoWeather
		}
		r, err := a.fallback.Weather(ctx, lat, lon)
		return r, true, "", err
	}

	r, err := a.weather.Weather(ctx, lat, lon)
	if err == nil {
		return r, false, "", nil
	}
	if a.fallback == nil || ctx.Err() != nil {
		return domain.WeatherReport{}, false, "", fmt.Errorf("fetch weather: %w", err)
	}

	a.metrics.FallbacksUsed.WithLabelValues("weather").Inc()
	a.logger.Warn("weather unavailable, using fallback forecast", "lat", lat, "lon", lon, "error", err)
	fr, ferr := a.fallback.Weather(ctx, lat, lon)
	if ferr != nil {
		return domain.WeatherReport{}, false, "", fmt.Errorf("fetch fallback weather: %w", ferr)
	}
	return fr, true, err.Error(), nil
}

func formatPercent(p float64) string {
	if p == math.Trunc(p) {
		return fmt.Sprintf("%.1f%%", p)
	}
	return fmt.Sprintf("%g%%", p)
}
