package domain

import "strings"

const (
	minCropCoefficient = 0.40
	maxCropCoefficient = 0.85
)

var stageBaseKc = map[GrowthStage]float64{
	StageInitial: 0.50,
	StageMid:     0.65,
	StageLate:    0.60,
}

// ParseGrowthStage normalizes a stage label. Unrecognized labels map to mid.
func ParseGrowthStage(label string) GrowthStage {
	stage := GrowthStage(strings.ToLower(strings.TrimSpace(label)))
	if _, ok := stageBaseKc[stage]; ok {
		return stage
	}
	return StageMid
}

// CropCoefficient maps a vegetation index and growth stage to Kc, clamped to
// [0.40, 0.85]. Stressed canopies (low NDVI) get a larger upward adjustment.
func CropCoefficient(ndvi float64, stage GrowthStage) float64 {
	base, ok := stageBaseKc[stage]
	if !ok {
		base = stageBaseKc[StageMid]
	}
	return clamp(base+ndviAdjustment(ndvi), minCropCoefficient, maxCropCoefficient)
}

// ndviAdjustment is the stress correction added to the stage base.
func ndviAdjustment(ndvi float64) float64 {
	switch {
	case ndvi < 0.3:
		return 0.15
	case ndvi < 0.5:
		return 0.10
	case ndvi < 0.7:
		return 0.05
	default:
		return 0.0
	}
}
