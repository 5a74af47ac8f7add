package domain

import (
	"fmt"
	"math"
)

const (
	// nominalRainEventMM is the rainfall credited for a day with 100% rain probability.
	nominalRainEventMM = 5.0

	squareMetersPerHectare = 10000.0
	litersPerCubicMeter    = 1000.0

	// DefaultEmitterRateLPH is the drip emitter flow per plant.
	DefaultEmitterRateLPH = 4.0
)

// WaterBalance is the aggregated crop water demand over a forecast window.
type WaterBalance struct {
	DailyET0MM     []float64
	TotalET0MM     float64
	CropWaterMM    float64
	ExpectedRainMM float64
	Plan           IrrigationPlan
}

// ExpectedRainMM credits a nominal 5 mm event per day, weighted by the
// forecast probability (percent).
func ExpectedRainMM(rainProbability []float64) float64 {
	var total float64
	for _, p := range rainProbability {
		total += p / 100 * nominalRainEventMM
	}
	return total
}

// NetIrrigationMM subtracts the rainfall credit from crop demand, floored at 0.
func NetIrrigationMM(cropWaterMM, expectedRainMM float64) float64 {
	return math.Max(0, cropWaterMM-expectedRainMM)
}

// VolumePlan converts a net depth over a plot into volumes and drip run time.
// Urgency and Message are left for classification.
func VolumePlan(netMM float64, plot PlotGeometry, emitterRateLPH float64) IrrigationPlan {
	areaM2 := plot.AreaHectares * squareMetersPerHectare
	volumeM3 := netMM / 1000 * areaM2
	volumeLiters := volumeM3 * litersPerCubicMeter

	var perPlant float64
	if plot.PlantCount > 0 {
		perPlant = volumeLiters / float64(plot.PlantCount)
	}
	var hours float64
	if perPlant > 0 && emitterRateLPH > 0 {
		hours = perPlant / emitterRateLPH
	}

	return IrrigationPlan{
		NetDepthMM:     netMM,
		VolumeM3:       volumeM3,
		VolumeLiters:   volumeLiters,
		LitersPerPlant: perPlant,
		HoursPerPlant:  hours,
	}
}

// AggregateWindow sums ET0 over the window, applies Kc and the rainfall
// credit, and converts the net depth to a plan. rainProbability must be
// aligned with window.
func AggregateWindow(model ET0Model, window ForecastWindow, rainProbability []float64, kc float64, plot PlotGeometry, emitterRateLPH float64) (WaterBalance, error) {
	if len(window) == 0 {
		return WaterBalance{}, fmt.Errorf("%w: forecast window is empty", ErrInvalidInput)
	}
	if len(rainProbability) != len(window) {
		return WaterBalance{}, fmt.Errorf("%w: %d rain probabilities for %d forecast days",
			ErrInvalidInput, len(rainProbability), len(window))
	}

	daily := make([]float64, len(window))
	var total float64
	for i, obs := range window {
		et0, err := model.Compute(obs)
		if err != nil {
			return WaterBalance{}, fmt.Errorf("day %d: %w", i+1, err)
		}
		daily[i] = et0
		total += et0
	}

	cropWater := total * kc
	rain := ExpectedRainMM(rainProbability)
	net := NetIrrigationMM(cropWater, rain)

	return WaterBalance{
		DailyET0MM:     daily,
		TotalET0MM:     total,
		CropWaterMM:    cropWater,
		ExpectedRainMM: rain,
		Plan:           VolumePlan(net, plot, emitterRateLPH),
	}, nil
}
