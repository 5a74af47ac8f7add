package domain

// DailyWeatherObservation is one forecast day as consumed by the ET0 model.
// WindSpeed is measured at the standard 10 m anemometer height.
type DailyWeatherObservation struct {
	TempMax          float64 `json:"temp_max"`          // °C
	TempMin          float64 `json:"temp_min"`          // °C
	RelativeHumidity float64 `json:"relative_humidity"` // percent, 0–100
	WindSpeed        float64 `json:"wind_speed"`        // m/s at 10 m
	Latitude         float64 `json:"latitude"`          // degrees, −90–90
	DayOfYear        int     `json:"day_of_year"`       // 1–366
}

// ForecastWindow is a chronological run of daily observations. DayOfYear
// advances by one per entry.
type ForecastWindow []DailyWeatherObservation

// GrowthStage selects the base crop coefficient.
type GrowthStage string

const (
	StageInitial GrowthStage = "initial"
	StageMid     GrowthStage = "mid"
	StageLate    GrowthStage = "late"
)

// PlotGeometry describes the irrigated area.
type PlotGeometry struct {
	AreaHectares float64 `json:"area_hectares"`
	PlantCount   int     `json:"plant_count"`
}

// Urgency ranks how soon irrigation is needed.
type Urgency string

const (
	UrgencyUrgent Urgency = "urgent"
	UrgencyHigh   Urgency = "high"
	UrgencyNormal Urgency = "normal"
	UrgencyLow    Urgency = "low"
)

// IrrigationPlan is the volumetric outcome of the water balance.
type IrrigationPlan struct {
	NetDepthMM     float64 `json:"irrigation_needed_mm"`
	VolumeM3       float64 `json:"irrigation_needed_m3"`
	VolumeLiters   float64 `json:"irrigation_needed_liters"`
	LitersPerPlant float64 `json:"liters_per_tree"`
	HoursPerPlant  float64 `json:"duration_hours_per_tree"`
	Urgency        Urgency `json:"urgency"`
	Message        string  `json:"message"`
}

// SavingsReport compares smart irrigation against the traditional baseline.
type SavingsReport struct {
	WaterSavedLiters float64 `json:"water_saved_liters"`
	WaterSavedM3     float64 `json:"water_saved_cubic_meters"`
	PercentageSaved  float64 `json:"percentage_saved"`
	CostSavedLocal   float64 `json:"cost_saved_tnd"`
	CostSavedUSD     float64 `json:"cost_saved_usd"`
}

// HealthAssessment is the canopy-health classification derived from NDVI.
type HealthAssessment struct {
	Status  string  `json:"status"`
	Urgency Urgency `json:"urgency"`
	Message string  `json:"message"`
}

// RecommendationInput bundles everything the engine needs for one plot.
// RainProbability is aligned with Window, in percent per day.
type RecommendationInput struct {
	Window          ForecastWindow
	RainProbability []float64
	NDVI            float64
	Stage           GrowthStage
	Plot            PlotGeometry
}

// Recommendation is the full engine output for one plot.
type Recommendation struct {
	Plan            IrrigationPlan   `json:"plan"`
	Savings         SavingsReport    `json:"savings"`
	Health          HealthAssessment `json:"health"`
	NDVI            float64          `json:"ndvi_score"`
	CropCoefficient float64          `json:"kc_coefficient"`
	DailyET0MM      []float64        `json:"daily_et0_mm"`
	TotalET0MM      float64          `json:"total_et0_mm"`
	CropWaterMM     float64          `json:"crop_water_mm"`
	ExpectedRainMM  float64          `json:"expected_rain_mm"`
	TraditionalM3   float64          `json:"traditional_method_m3"`
}

// Rounded returns a copy with display precision applied: volumes in m³ and
// the crop coefficient to 3 decimals, all other quantities to 2.
func (r Recommendation) Rounded() Recommendation {
	out := r
	out.Plan = r.Plan.Rounded()
	out.Savings = r.Savings.Rounded()
	out.CropCoefficient = Round(r.CropCoefficient, 3)
	out.TotalET0MM = Round(r.TotalET0MM, 2)
	out.CropWaterMM = Round(r.CropWaterMM, 2)
	out.ExpectedRainMM = Round(r.ExpectedRainMM, 2)
	out.TraditionalM3 = Round(r.TraditionalM3, 3)
	if r.DailyET0MM != nil {
		out.DailyET0MM = make([]float64, len(r.DailyET0MM))
		for i, v := range r.DailyET0MM {
			out.DailyET0MM[i] = Round(v, 2)
		}
	}
	return out
}

// Rounded applies display precision to the plan.
func (p IrrigationPlan) Rounded() IrrigationPlan {
	p.NetDepthMM = Round(p.NetDepthMM, 2)
	p.VolumeM3 = Round(p.VolumeM3, 3)
	p.VolumeLiters = Round(p.VolumeLiters, 2)
	p.LitersPerPlant = Round(p.LitersPerPlant, 2)
	p.HoursPerPlant = Round(p.HoursPerPlant, 2)
	return p
}

// Rounded applies display precision to the report.
func (s SavingsReport) Rounded() SavingsReport {
	s.WaterSavedLiters = Round(s.WaterSavedLiters, 2)
	s.WaterSavedM3 = Round(s.WaterSavedM3, 3)
	s.PercentageSaved = Round(s.PercentageSaved, 2)
	s.CostSavedLocal = Round(s.CostSavedLocal, 2)
	s.CostSavedUSD = Round(s.CostSavedUSD, 2)
	return s
}
