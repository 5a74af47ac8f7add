package domain

import (
	"fmt"
	"math"
)

// Engine runs the full decision chain for one plot. The zero value is not
// usable; start from DefaultEngine. Engine holds no mutable state and is safe
// for concurrent use.
type Engine struct {
	ET0                ET0Model
	Rates              CostRates
	EmitterRateLPH     float64
	BaselineMultiplier float64
}

// DefaultEngine returns an engine with the canonical constants.
func DefaultEngine() Engine {
	return Engine{
		ET0:                DefaultET0Model(),
		Rates:              DefaultCostRates(),
		EmitterRateLPH:     DefaultEmitterRateLPH,
		BaselineMultiplier: DefaultBaselineMultiplier,
	}
}

// Balance aggregates the window's crop water demand with the engine's ET0
// model and emitter rate.
func (e Engine) Balance(window ForecastWindow, rainProbability []float64, kc float64, plot PlotGeometry) (WaterBalance, error) {
	return AggregateWindow(e.ET0, window, rainProbability, kc, plot, e.EmitterRateLPH)
}

// Recommend validates the input and produces an irrigation plan, savings
// report, and health classification. Invalid input is rejected with
// ErrInvalidInput; no partial result is returned.
func (e Engine) Recommend(in RecommendationInput) (Recommendation, error) {
	if err := validateInput(in); err != nil {
		return Recommendation{}, err
	}

	kc := CropCoefficient(in.NDVI, in.Stage)
	balance, err := e.Balance(in.Window, in.RainProbability, kc, in.Plot)
	if err != nil {
		return Recommendation{}, err
	}

	health := ClassifyHealth(in.NDVI)
	plan := balance.Plan
	plan.Urgency = health.Urgency
	plan.Message = health.Message

	traditional := TraditionalBaseline(plan.VolumeM3, e.BaselineMultiplier)

	return Recommendation{
		Plan:            plan,
		Savings:         ComputeSavings(traditional, plan.VolumeM3, e.Rates),
		Health:          health,
		NDVI:            in.NDVI,
		CropCoefficient: kc,
		DailyET0MM:      balance.DailyET0MM,
		TotalET0MM:      balance.TotalET0MM,
		CropWaterMM:     balance.CropWaterMM,
		ExpectedRainMM:  balance.ExpectedRainMM,
		TraditionalM3:   traditional,
	}, nil
}

func validateInput(in RecommendationInput) error {
	if len(in.Window) == 0 {
		return fmt.Errorf("%w: forecast window is empty", ErrInvalidInput)
	}
	if len(in.RainProbability) != len(in.Window) {
		return fmt.Errorf("%w: %d rain probabilities for %d forecast days",
			ErrInvalidInput, len(in.RainProbability), len(in.Window))
	}
	for i, obs := range in.Window {
		if err := ValidateObservation(obs); err != nil {
			return fmt.Errorf("day %d: %w", i+1, err)
		}
		if i > 0 && obs.DayOfYear != in.Window[i-1].DayOfYear+1 && !yearRollover(in.Window[i-1].DayOfYear, obs.DayOfYear) {
			return fmt.Errorf("%w: day %d is not consecutive (%d after %d)",
				ErrInvalidInput, i+1, obs.DayOfYear, in.Window[i-1].DayOfYear)
		}
	}
	for i, p := range in.RainProbability {
		if math.IsNaN(p) || p < 0 || p > 100 {
			return fmt.Errorf("%w: day %d rain probability %.2f outside [0, 100]", ErrInvalidInput, i+1, p)
		}
	}
	if math.IsNaN(in.NDVI) || in.NDVI < -1 || in.NDVI > 1 {
		return fmt.Errorf("%w: ndvi %.3f outside [-1, 1]", ErrInvalidInput, in.NDVI)
	}
	if math.IsNaN(in.Plot.AreaHectares) || in.Plot.AreaHectares <= 0 {
		return fmt.Errorf("%w: area %.4f ha must be positive", ErrInvalidInput, in.Plot.AreaHectares)
	}
	if in.Plot.PlantCount < 0 {
		return fmt.Errorf("%w: plant count %d is negative", ErrInvalidInput, in.Plot.PlantCount)
	}
	return nil
}

// yearRollover accepts Dec 31 → Jan 1 in both common and leap years.
func yearRollover(prev, next int) bool {
	return next == 1 && (prev == 365 || prev == 366)
}
