package domain

import "math"

const (
	traditionalSeasonM3PerHa = 5000.0
	smartSeasonM3PerHa       = 3200.0

	// co2KgPerM3 is the pumping energy footprint per cubic metre saved.
	co2KgPerM3 = 0.5

	// m3PerTreeEquivalent converts saved water into a "trees watered" figure.
	m3PerTreeEquivalent = 100.0
)

// seasonMonths lists the reported months and the share of traditional usage
// saved in each.
var seasonMonths = []struct {
	label string
	share float64
}{
	{"Nov 2024", 0.08},
	{"Dec 2024", 0.06},
	{"Jan 2025", 0.05},
}

// EnvironmentalImpact translates saved water into aquifer, energy, and tree terms.
type EnvironmentalImpact struct {
	AquiferPreservationM3 float64 `json:"aquifer_preservation_m3"`
	CO2SavedKg            float64 `json:"co2_saved_kg"`
	TreesEquivalent       float64 `json:"trees_equivalent"`
}

// MonthlySaving is one row of the seasonal breakdown.
type MonthlySaving struct {
	Month      string  `json:"month"`
	SavedM3    float64 `json:"saved_m3"`
	SavedLocal float64 `json:"saved_tnd"`
}

// SeasonalReport summarizes a season of smart irrigation for a farm.
type SeasonalReport struct {
	Period           string              `json:"period"`
	TraditionalM3    float64             `json:"traditional_usage_m3"`
	SmartM3          float64             `json:"smart_usage_m3"`
	Savings          SavingsReport       `json:"savings"`
	Impact           EnvironmentalImpact `json:"environmental_impact"`
	MonthlyBreakdown []MonthlySaving     `json:"monthly_breakdown"`
}

// SeasonalSavings estimates a season's usage from per-hectare norms.
// Negative areas are treated as zero.
func SeasonalSavings(areaHectares float64, rates CostRates) SeasonalReport {
	area := math.Max(0, areaHectares)
	traditional := area * traditionalSeasonM3PerHa
	smart := area * smartSeasonM3PerHa

	savings := ComputeSavings(traditional, smart, rates).Rounded()

	months := make([]MonthlySaving, len(seasonMonths))
	for i, m := range seasonMonths {
		saved := traditional * m.share
		months[i] = MonthlySaving{
			Month:      m.label,
			SavedM3:    Round(saved, 1),
			SavedLocal: Round(saved*rates.LocalPerM3, 2),
		}
	}

	return SeasonalReport{
		Period:        "Current Season (Oct 2024 - Oct 2025)",
		TraditionalM3: traditional,
		SmartM3:       smart,
		Savings:       savings,
		Impact: EnvironmentalImpact{
			AquiferPreservationM3: savings.WaterSavedM3,
			CO2SavedKg:            Round(savings.WaterSavedM3*co2KgPerM3, 2),
			TreesEquivalent:       math.Round(savings.WaterSavedM3 / m3PerTreeEquivalent),
		},
		MonthlyBreakdown: months,
	}
}
