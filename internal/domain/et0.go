package domain

import (
	"fmt"
	"math"
)

// WindLogVariant selects the additive constant inside the wind profile log
// term ln(67.8·z + offset).
type WindLogVariant int

const (
	// WindLogCanonical uses ln(67.8·z − 5.42), the FAO-56 profile.
	WindLogCanonical WindLogVariant = iota
	// WindLogAlternate uses ln(67.8·z + 5.42).
	WindLogAlternate
)

const (
	// windMeasurementHeightM is the anemometer height wind speeds are reported at.
	windMeasurementHeightM = 10.0

	// sunshineFraction converts Ra to Rs assuming moderate sunshine (0.25 + 0.5·1).
	sunshineFraction = 0.75

	// Surface air temperature bounds; the Tetens form diverges near −237.3 °C.
	minAirTempC = -90.0
	maxAirTempC = 70.0
)

// Offset returns the additive constant for the variant.
func (v WindLogVariant) Offset() float64 {
	if v == WindLogAlternate {
		return 5.42
	}
	return -5.42
}

func (v WindLogVariant) String() string {
	if v == WindLogAlternate {
		return "alternate"
	}
	return "canonical"
}

// ParseWindLogVariant maps "canonical" or "alternate" to a variant.
func ParseWindLogVariant(s string) (WindLogVariant, error) {
	switch s {
	case "", "canonical":
		return WindLogCanonical, nil
	case "alternate":
		return WindLogAlternate, nil
	default:
		return WindLogCanonical, fmt.Errorf("unknown wind log variant %q", s)
	}
}

// ET0Model computes reference evapotranspiration.
type ET0Model struct {
	Wind WindLogVariant

	// heightM overrides the measurement height; zero means the standard 10 m.
	heightM float64
}

// DefaultET0Model returns the canonical model.
func DefaultET0Model() ET0Model {
	return ET0Model{Wind: WindLogCanonical}
}

// ReferenceET computes ET0 (mm/day) for one observation with the canonical model.
func ReferenceET(obs DailyWeatherObservation) (float64, error) {
	return DefaultET0Model().Compute(obs)
}

// Compute returns ET0 in mm/day, never negative. It returns
// ErrComputationDegenerate when the wind profile log argument is not positive.
func (m ET0Model) Compute(obs DailyWeatherObservation) (float64, error) {
	u2, err := m.windAt2m(obs.WindSpeed)
	if err != nil {
		return 0, err
	}

	tmean := (obs.TempMax + obs.TempMin) / 2
	ra := SolarGeometry(obs.Latitude, obs.DayOfYear).ExtraterrestrialRadiation
	rs := sunshineFraction * ra
	rn := math.Max(0, 0.77*rs-0.9)

	es := (saturationVaporPressure(obs.TempMax) + saturationVaporPressure(obs.TempMin)) / 2
	ea := es * obs.RelativeHumidity / 100
	vpd := math.Max(0, es-ea)

	et0 := (0.408*rn + (900/(tmean+273))*u2*vpd) / (1 + 0.34*u2)
	return math.Max(0, et0), nil
}

// windAt2m converts a 10 m wind speed to the 2 m reference height.
func (m ET0Model) windAt2m(speed float64) (float64, error) {
	z := m.heightM
	if z == 0 {
		z = windMeasurementHeightM
	}
	arg := 67.8*z + m.Wind.Offset()
	if arg <= 0 || math.IsNaN(arg) {
		return 0, fmt.Errorf("%w: wind profile log argument %.4f is not positive", ErrComputationDegenerate, arg)
	}
	denom := math.Log(arg)
	if denom <= 0 {
		return 0, fmt.Errorf("%w: wind profile log term %.4f is not positive", ErrComputationDegenerate, denom)
	}
	return speed * 4.87 / denom, nil
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

// saturationVaporPressure is the Tetens form, kPa.
func saturationVaporPressure(t float64) float64 {
	return 0.6108 * math.Exp(17.27*t/(t+237.3))
}

// ValidateObservation rejects observations outside their physical ranges.
func ValidateObservation(obs DailyWeatherObservation) error {
	switch {
	case math.IsNaN(obs.Latitude) || obs.Latitude < -90 || obs.Latitude > 90:
		return fmt.Errorf("%w: latitude %.4f outside [-90, 90]", ErrInvalidInput, obs.Latitude)
	case obs.DayOfYear < 1 || obs.DayOfYear > 366:
		return fmt.Errorf("%w: day of year %d outside [1, 366]", ErrInvalidInput, obs.DayOfYear)
	case math.IsNaN(obs.RelativeHumidity) || obs.RelativeHumidity < 0 || obs.RelativeHumidity > 100:
		return fmt.Errorf("%w: relative humidity %.2f outside [0, 100]", ErrInvalidInput, obs.RelativeHumidity)
	case math.IsNaN(obs.WindSpeed) || obs.WindSpeed < 0:
		return fmt.Errorf("%w: wind speed %.2f is negative", ErrInvalidInput, obs.WindSpeed)
	case !inRange(obs.TempMax, minAirTempC, maxAirTempC) || !inRange(obs.TempMin, minAirTempC, maxAirTempC):
		return fmt.Errorf("%w: temperature outside [%.0f, %.0f] °C", ErrInvalidInput, minAirTempC, maxAirTempC)
	case obs.TempMax < obs.TempMin:
		return fmt.Errorf("%w: temp_max %.2f below temp_min %.2f", ErrInvalidInput, obs.TempMax, obs.TempMin)
	}
	return nil
}
