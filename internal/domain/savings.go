package domain

import "math"

const (
	// DefaultBaselineMultiplier scales smart volume to the unoptimized practice.
	DefaultBaselineMultiplier = 1.5

	// DefaultCostPerM3 is the water price in local currency per cubic metre.
	DefaultCostPerM3 = 0.5

	// DefaultUSDRate converts local currency to USD.
	DefaultUSDRate = 0.32

	// legacyCostPerLiter records the per-liter rate older deployments applied
	// to cubic-metre savings, a unit mix-up. It is not a selectable rate;
	// it equals DefaultCostPerM3 only when applied to liters.
	legacyCostPerLiter = 0.0005
)

// CostRates prices water savings.
type CostRates struct {
	LocalPerM3 float64
	USDRate    float64
}

// DefaultCostRates returns the 0.5/m³, 0.32 USD rates.
func DefaultCostRates() CostRates {
	return CostRates{LocalPerM3: DefaultCostPerM3, USDRate: DefaultUSDRate}
}

// TraditionalBaseline is the volume an unoptimized schedule would apply.
func TraditionalBaseline(smartM3, multiplier float64) float64 {
	return smartM3 * multiplier
}

// ComputeSavings compares the smart volume against the traditional baseline.
// A non-positive baseline or negative smart volume yields an all-zero report.
func ComputeSavings(traditionalM3, smartM3 float64, rates CostRates) SavingsReport {
	if traditionalM3 <= 0 || smartM3 < 0 {
		return SavingsReport{}
	}

	saved := math.Max(0, traditionalM3-smartM3)
	cost := saved * rates.LocalPerM3
	return SavingsReport{
		WaterSavedLiters: saved * litersPerCubicMeter,
		WaterSavedM3:     saved,
		PercentageSaved:  saved / traditionalM3 * 100,
		CostSavedLocal:   cost,
		CostSavedUSD:     cost * rates.USDRate,
	}
}

// ClassifyHealth buckets NDVI into four urgency bands, lowest first.
func ClassifyHealth(ndvi float64) HealthAssessment {
	switch {
	case ndvi < 0.3:
		return HealthAssessment{
			Status:  "Critical",
			Urgency: UrgencyUrgent,
			Message: "Your trees show severe drought stress. Immediate irrigation recommended!",
		}
	case ndvi < 0.5:
		return HealthAssessment{
			Status:  "Moderate Stress",
			Urgency: UrgencyHigh,
			Message: "Your trees are showing stress. Irrigation needed soon.",
		}
	case ndvi < 0.7:
		return HealthAssessment{
			Status:  "Healthy",
			Urgency: UrgencyNormal,
			Message: "Your trees are healthy. Follow recommended schedule.",
		}
	default:
		return HealthAssessment{
			Status:  "Excellent",
			Urgency: UrgencyLow,
			Message: "Your trees are in excellent condition!",
		}
	}
}
