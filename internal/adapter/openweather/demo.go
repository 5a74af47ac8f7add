package openweather

import (
	"context"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/smart-irrigation-service/internal/domain"
)

// DemoProvider serves a fixed three-day autumn forecast for the Sahel,
// dated from the clock's current day. It never fails.
type DemoProvider struct {
	clock clockwork.Clock
}

// NewDemoProvider creates a demo weather source.
func NewDemoProvider(clock clockwork.Clock) *DemoProvider {
	return &DemoProvider{clock: clock}
}

var demoDays = []domain.ForecastDay{
	{TempMax: 30, TempMin: 20, Humidity: 60, WindSpeed: 3.2, Weather: "Clear", RainProbability: 5},
	{TempMax: 29, TempMin: 19, Humidity: 65, WindSpeed: 3.5, Weather: "Clear", RainProbability: 10},
	{TempMax: 27, TempMin: 18, Humidity: 70, WindSpeed: 4.0, Weather: "Clouds", RainProbability: 30},
}

func (d *DemoProvider) Weather(_ context.Context, _, _ float64) (domain.WeatherReport, error) {
	today := d.clock.Now()
	forecast := make([]domain.ForecastDay, len(demoDays))
	for i, day := range demoDays {
		day.Date = today.AddDate(0, 0, i).Format("2006-01-02")
		forecast[i] = day
	}
	return domain.WeatherReport{
		Current: domain.CurrentConditions{
			Temperature: 28,
			Humidity:    65,
			WindSpeed:   3.5,
			Weather:     "Clear",
			Description: "clear sky",
		},
		Forecast: forecast,
	}, nil
}
