package domain

import "math"

// SolarPosition holds the day-of-year solar geometry for a latitude.
type SolarPosition struct {
	SunsetHourAngle           float64 // radians
	ExtraterrestrialRadiation float64 // MJ/m²/day
	Declination               float64 // radians
}

// SolarGeometry computes solar declination, sunset hour angle, and
// extraterrestrial radiation. dayOfYear is used as given; callers keep it in
// 1–366.
func SolarGeometry(latitude float64, dayOfYear int) SolarPosition {
	lat := degToRad(latitude)
	j := float64(dayOfYear)

	declination := 0.409 * math.Sin(2*math.Pi/365*j-1.39)
	sunset := math.Acos(clamp(-math.Tan(lat)*math.Tan(declination), -1, 1))

	// Inverse relative Earth-Sun distance.
	dr := 1 + 0.033*math.Cos(2*math.Pi*j/365)
	ra := 37.6 * dr * (sunset*math.Sin(lat)*math.Sin(declination) +
		math.Cos(lat)*math.Cos(declination)*math.Sin(sunset))

	return SolarPosition{
		SunsetHourAngle:           sunset,
		ExtraterrestrialRadiation: ra,
		Declination:               declination,
	}
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180.0 }

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
