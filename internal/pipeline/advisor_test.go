package pipeline_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/smart-irrigation-service/internal/domain"
	"github.com/couchcryptid/smart-irrigation-service/internal/farm"
	"github.com/couchcryptid/smart-irrigation-service/internal/observability"
	"github.com/couchcryptid/smart-irrigation-service/internal/pipeline"
)

// --- stubs ---

type stubWeather struct {
	report domain.WeatherReport
	err    error
	calls  atomic.Int32
}

func (s *stubWeather) Weather(context.Context, float64, float64) (domain.WeatherReport, error) {
	s.calls.Add(1)
	return s.report, s.err
}

type stubVegetation struct {
	value float64
	err   error
	calls atomic.Int32
}

func (s *stubVegetation) NDVI(context.Context, float64, float64) (float64, error) {
	s.calls.Add(1)
	return s.value, s.err
}

func sahelReport() domain.WeatherReport {
	return domain.WeatherReport{
		Current: domain.CurrentConditions{Temperature: 28, Weather: "Clear"},
		Forecast: []domain.ForecastDay{
			{Date: "2024-10-26", TempMax: 30, TempMin: 20, Humidity: 60, WindSpeed: 3.2, Weather: "Clear", RainProbability: 5},
			{Date: "2024-10-27", TempMax: 29, TempMin: 19, Humidity: 65, WindSpeed: 3.5, Weather: "Clear", RainProbability: 10},
			{Date: "2024-10-28", TempMax: 27, TempMin: 18, Humidity: 70, WindSpeed: 4.0, Weather: "Clouds", RainProbability: 30},
		},
	}
}

// autumnClock sits on 26 Oct 2024, day 300 of a leap year.
func autumnClock() *clockwork.FakeClock {
	return clockwork.NewFakeClockAt(time.Date(2024, 10, 26, 6, 0, 0, 0, time.FixedZone("CET", 3600)))
}

type advisorFixture struct {
	weather    *stubWeather
	vegetation *stubVegetation
	metrics    *observability.Metrics
	advisor    *pipeline.Advisor
}

func newFixture(days int, opts ...pipeline.AdvisorOption) *advisorFixture {
	f := &advisorFixture{
		weather:    &stubWeather{report: sahelReport()},
		vegetation: &stubVegetation{value: 0.6},
		metrics:    observability.NewMetricsForTesting(),
	}
	opts = append([]pipeline.AdvisorOption{pipeline.WithClock(autumnClock())}, opts...)
	f.advisor = pipeline.NewAdvisor(domain.DefaultEngine(), farm.NewDemoRegistry(), f.weather, f.vegetation,
		days, f.metrics, discardLogger(), opts...)
	return f
}

func ptr[T any](v T) *T { return &v }

// --- tests ---

func TestAdvisor_Advise_RegisteredFarm(t *testing.T) {
	f := newFixture(3)

	a, err := f.advisor.Advise(context.Background(), pipeline.Request{FarmID: "farm_001"})
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "farm_001", a.FarmID)
	assert.Equal(t, 35.8256, a.Latitude)
	assert.Equal(t, time.Date(2024, 10, 26, 5, 0, 0, 0, time.UTC), a.ComputedAt)

	assert.Equal(t, 13.63, a.Recommendation.NetDepthMM)
	assert.Equal(t, 272.623, a.Recommendation.VolumeM3)
	assert.Equal(t, 681.56, a.Recommendation.LitersPerPlant)
	assert.Equal(t, 170.39, a.Recommendation.HoursPerPlant)
	assert.Equal(t, domain.UrgencyHigh, a.Recommendation.Urgency)
	assert.Equal(t, "Next 3 days", a.Recommendation.Schedule)

	assert.Equal(t, 0.45, a.TreeHealth.NDVI)
	assert.Equal(t, "Moderate Stress", a.TreeHealth.Status)
	assert.Equal(t, 0.75, a.TreeHealth.CropCoefficient)

	assert.Equal(t, []float64{7.91, 7.09, 6.17}, a.WeatherAnalysis.DailyET0MM)
	assert.Equal(t, 21.17, a.WeatherAnalysis.TotalET0MM)
	assert.Equal(t, 2.25, a.WeatherAnalysis.ExpectedRainMM)
	assert.Equal(t, 28.0, a.WeatherAnalysis.CurrentTemp)
	assert.Equal(t, "Clear → Clear → Clouds", a.WeatherAnalysis.ForecastSummary)

	assert.Equal(t, 33.33, a.Savings.PercentageSaved)
	assert.InDelta(t, 408.935, a.Comparison.TraditionalM3, 1e-3)
	assert.Equal(t, 272.623, a.Comparison.SmartM3)
	assert.Equal(t, "33.33%", a.Comparison.EfficiencyImprovement)
	assert.False(t, a.WeatherFallback)

	assert.Zero(t, f.vegetation.calls.Load(), "registry NDVI takes precedence")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Recommendations.WithLabelValues("high")))
}

func TestAdvisor_Advise_UnknownFarm(t *testing.T) {
	f := newFixture(3)

	_, err := f.advisor.Advise(context.Background(), pipeline.Request{FarmID: "farm_404"})
	assert.ErrorIs(t, err, farm.ErrNotFound)
	assert.Zero(t, f.weather.calls.Load())
}

func TestAdvisor_Advise_AdHocUsesVegetationProvider(t *testing.T) {
	f := newFixture(3)
	f.vegetation.value = 0.2

	a, err := f.advisor.Advise(context.Background(), pipeline.Request{
		Latitude:     ptr(35.0),
		Longitude:    ptr(10.0),
		SizeHectares: ptr(1.0),
		TreeCount:    ptr(0),
	})
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.vegetation.calls.Load())
	assert.Equal(t, domain.UrgencyUrgent, a.Recommendation.Urgency)
	assert.Equal(t, "Critical", a.TreeHealth.Status)
	assert.Zero(t, a.Recommendation.LitersPerPlant)
	assert.Empty(t, a.FarmID)
}

func TestAdvisor_Advise_AdHocNDVISkipsProvider(t *testing.T) {
	f := newFixture(3)

	a, err := f.advisor.Advise(context.Background(), pipeline.Request{NDVIScore: ptr(0.8), GrowthStage: "late"})
	require.NoError(t, err)

	assert.Zero(t, f.vegetation.calls.Load())
	assert.Equal(t, domain.UrgencyLow, a.Recommendation.Urgency)
	assert.Equal(t, 0.6, a.TreeHealth.CropCoefficient)
	assert.Equal(t, 35.8, a.Latitude)
	assert.Equal(t, 10.6, a.Longitude)
}

func TestAdvisor_Advise_UnknownStageUsesMidBase(t *testing.T) {
	f := newFixture(3)

	// NDVI 0.8 adds nothing, so Kc is the stage base.
	a, err := f.advisor.Advise(context.Background(), pipeline.Request{NDVIScore: ptr(0.8), GrowthStage: "flowering"})
	require.NoError(t, err)
	assert.Equal(t, 0.65, a.TreeHealth.CropCoefficient)

	a, err = f.advisor.Advise(context.Background(), pipeline.Request{NDVIScore: ptr(0.8), GrowthStage: "Initial"})
	require.NoError(t, err)
	assert.Equal(t, 0.5, a.TreeHealth.CropCoefficient)
}

func TestAdvisor_Advise_VegetationFailure(t *testing.T) {
	f := newFixture(3)
	f.vegetation.err = errors.New("gee offline")

	_, err := f.advisor.Advise(context.Background(), pipeline.Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch ndvi")
}

func TestAdvisor_Advise_WeatherFallback(t *testing.T) {
	fallback := &stubWeather{report: sahelReport()}
	f := newFixture(3, pipeline.WithWeatherFallback(fallback))
	f.weather.err = errors.New("openweather down")

	a, err := f.advisor.Advise(context.Background(), pipeline.Request{FarmID: "farm_002"})
	require.NoError(t, err)

	assert.True(t, a.WeatherFallback)
	assert.Equal(t, "openweather down", a.WeatherError)
	assert.Equal(t, int32(1), fallback.calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.FallbacksUsed.WithLabelValues("weather")))
	assert.Equal(t, domain.UrgencyLow, a.Recommendation.Urgency)
}

func TestAdvisor_Advise_WeatherFailureWithoutFallback(t *testing.T) {
	f := newFixture(3)
	boom := errors.New("openweather down")
	f.weather.err = boom

	_, err := f.advisor.Advise(context.Background(), pipeline.Request{FarmID: "farm_002"})
	assert.ErrorIs(t, err, boom)
}

func TestAdvisor_Advise_NoWeatherSource(t *testing.T) {
	a := pipeline.NewAdvisor(domain.DefaultEngine(), farm.NewDemoRegistry(), nil, &stubVegetation{value: 0.5},
		3, observability.NewMetricsForTesting(), discardLogger())

	_, err := a.Advise(context.Background(), pipeline.Request{FarmID: "farm_001"})
	assert.ErrorIs(t, err, pipeline.ErrNoWeather)
}

func TestAdvisor_Advise_DemoModeFlagsFallback(t *testing.T) {
	demo := &stubWeather{report: sahelReport()}
	a := pipeline.NewAdvisor(domain.DefaultEngine(), farm.NewDemoRegistry(), nil, &stubVegetation{value: 0.5},
		3, observability.NewMetricsForTesting(), discardLogger(),
		pipeline.WithClock(autumnClock()), pipeline.WithWeatherFallback(demo))

	adv, err := a.Advise(context.Background(), pipeline.Request{FarmID: "farm_001"})
	require.NoError(t, err)
	assert.True(t, adv.WeatherFallback)
	assert.Empty(t, adv.WeatherError)
}

func TestAdvisor_Advise_ShortForecastShrinksWindow(t *testing.T) {
	f := newFixture(5)

	a, err := f.advisor.Advise(context.Background(), pipeline.Request{FarmID: "farm_003"})
	require.NoError(t, err)

	assert.Equal(t, "Next 3 days", a.Recommendation.Schedule)
	assert.Len(t, a.WeatherAnalysis.DailyET0MM, 3)
}

func TestAdvisor_Advise_EmptyForecast(t *testing.T) {
	f := newFixture(3)
	f.weather.report.Forecast = nil

	_, err := f.advisor.Advise(context.Background(), pipeline.Request{FarmID: "farm_001"})
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestAdvisor_Advise_InvalidRequest(t *testing.T) {
	f := newFixture(3)

	cases := map[string]pipeline.Request{
		"latitude out of range": {Latitude: ptr(95.0)},
		"size not positive":     {SizeHectares: ptr(0.0)},
		"ndvi above one":        {NDVIScore: ptr(1.4)},
		"negative tree count":   {TreeCount: ptr(-3)},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.advisor.Advise(context.Background(), req)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
	assert.Zero(t, f.weather.calls.Load())
}

func TestAdvisor_Weather(t *testing.T) {
	fallback := &stubWeather{report: sahelReport()}
	f := newFixture(3, pipeline.WithWeatherFallback(fallback))

	r, used, err := f.advisor.Weather(context.Background(), 35.8, 10.6)
	require.NoError(t, err)
	assert.False(t, used)
	assert.Len(t, r.Forecast, 3)

	f.weather.err = errors.New("down")
	_, used, err = f.advisor.Weather(context.Background(), 35.8, 10.6)
	require.NoError(t, err)
	assert.True(t, used)
}

func TestAdvice_Key(t *testing.T) {
	assert.Equal(t, "farm_001", pipeline.Advice{ID: "x", RequestID: "r", FarmID: "farm_001"}.Key())
	assert.Equal(t, "r", pipeline.Advice{ID: "x", RequestID: "r"}.Key())
	assert.Equal(t, "x", pipeline.Advice{ID: "x"}.Key())
}
