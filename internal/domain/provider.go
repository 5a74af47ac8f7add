package domain

import (
	"context"
	"fmt"
	"time"
)

// CurrentConditions is the latest observed weather at a location.
type CurrentConditions struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
	Weather     string  `json:"weather"`
	Description string  `json:"description"`
}

// ForecastDay is one day of a provider forecast.
type ForecastDay struct {
	Date            string  `json:"date"`
	TempMax         float64 `json:"temp_max"`
	TempMin         float64 `json:"temp_min"`
	Humidity        float64 `json:"humidity"`
	WindSpeed       float64 `json:"wind_speed"`
	Weather         string  `json:"weather"`
	RainProbability float64 `json:"rain_probability"` // percent
}

// WeatherReport is current conditions plus a daily forecast.
type WeatherReport struct {
	Current  CurrentConditions `json:"current"`
	Forecast []ForecastDay     `json:"forecast"`
}

// WeatherProvider fetches weather for a coordinate.
type WeatherProvider interface {
	Weather(ctx context.Context, lat, lon float64) (WeatherReport, error)
}

// VegetationProvider fetches the current NDVI for a coordinate.
type VegetationProvider interface {
	NDVI(ctx context.Context, lat, lon float64) (float64, error)
}

// BuildWindow turns the first days of a provider forecast into a forecast
// window and its aligned rain probabilities. Day-of-year is taken from start
// and advances one calendar day per entry.
func BuildWindow(forecast []ForecastDay, latitude float64, start time.Time, days int) (ForecastWindow, []float64, error) {
	if days <= 0 {
		return nil, nil, fmt.Errorf("%w: window length %d must be positive", ErrInvalidInput, days)
	}
	if len(forecast) < days {
		return nil, nil, fmt.Errorf("%w: forecast has %d days, need %d", ErrInvalidInput, len(forecast), days)
	}

	window := make(ForecastWindow, days)
	rain := make([]float64, days)
	for i := 0; i < days; i++ {
		d := forecast[i]
		window[i] = DailyWeatherObservation{
			TempMax:          d.TempMax,
			TempMin:          d.TempMin,
			RelativeHumidity: d.Humidity,
			WindSpeed:        d.WindSpeed,
			Latitude:         latitude,
			DayOfYear:        start.AddDate(0, 0, i).YearDay(),
		}
		rain[i] = d.RainProbability
	}
	return window, rain, nil
}
