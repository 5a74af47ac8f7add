// Command checkmodel sweeps the irrigation engine over latitude, day-of-year,
// humidity, and NDVI grids and verifies the model's invariants along with a
// set of pinned scenarios. It prints pass/fail per phase and exits non-zero
// on any failure.
//
// Usage:
//
//	go run ./cmd/checkmodel [-wind canonical|alternate]
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/smart-irrigation-service/internal/domain"
	"github.com/couchcryptid/smart-irrigation-service/internal/farm"
)

// phase tracks pass/fail for a check phase.
type phase struct {
	name   string
	checks int
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

var stages = []domain.GrowthStage{domain.StageInitial, domain.StageMid, domain.StageLate}

func main() {
	wind := flag.String("wind", "canonical", "wind log variant: canonical, alternate")
	flag.Parse()

	variant, err := domain.ParseWindLogVariant(*wind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
	os.Exit(run(variant))
}

func run(variant domain.WindLogVariant) int {
	fmt.Println("=== Irrigation Model Check ===")
	fmt.Printf("wind log variant: %s\n", variant)

	engine := domain.DefaultEngine()
	engine.ET0 = domain.ET0Model{Wind: variant}

	phases := []*phase{
		checkET0Sweep(engine.ET0),
		checkCropCoefficientBand(),
		checkStressMonotonicity(),
		checkWaterBalance(),
		checkSavings(engine.Rates),
		checkScenarios(engine, variant),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %6d checks  %s\n", p.name, p.checks, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == 20 {
				fmt.Printf("  ... %d more\n", len(p.errors)-i)
				break
			}
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll checks passed.")
		return 0
	}
	fmt.Println("\nModel check FAILED.")
	return 1
}

// ── Phases ──

func checkET0Sweep(model domain.ET0Model) *phase {
	p := &phase{name: "ET0 finite and non-negative"}
	for lat := -89.0; lat <= 89.0; lat += 4.5 {
		for doy := 1; doy <= 366; doy += 5 {
			for _, rh := range []float64{0, 30, 60, 90, 100} {
				for _, ws := range []float64{0, 2, 8} {
					obs := domain.DailyWeatherObservation{
						TempMax: 34, TempMin: 12, RelativeHumidity: rh,
						WindSpeed: ws, Latitude: lat, DayOfYear: doy,
					}
					p.checks++
					et0, err := model.Compute(obs)
					switch {
					case err != nil:
						p.errorf("lat=%.1f doy=%d rh=%.0f ws=%.0f: %v", lat, doy, rh, ws, err)
					case math.IsNaN(et0) || math.IsInf(et0, 0):
						p.errorf("lat=%.1f doy=%d rh=%.0f ws=%.0f: not finite", lat, doy, rh, ws)
					case et0 < 0:
						p.errorf("lat=%.1f doy=%d rh=%.0f ws=%.0f: negative %.4f", lat, doy, rh, ws, et0)
					}
				}
			}
		}
	}
	return p
}

func checkCropCoefficientBand() *phase {
	p := &phase{name: "Kc within [0.40, 0.85]"}
	for i := -100; i <= 100; i++ {
		ndvi := float64(i) / 100
		for _, s := range stages {
			p.checks++
			if kc := domain.CropCoefficient(ndvi, s); kc < 0.40 || kc > 0.85 {
				p.errorf("ndvi=%.2f stage=%s: kc=%.3f", ndvi, s, kc)
			}
		}
	}
	return p
}

var urgencyRank = map[domain.Urgency]int{
	domain.UrgencyLow:    0,
	domain.UrgencyNormal: 1,
	domain.UrgencyHigh:   2,
	domain.UrgencyUrgent: 3,
}

func checkStressMonotonicity() *phase {
	p := &phase{name: "Lower NDVI never lowers Kc or urgency"}
	for _, s := range stages {
		prevKc := domain.CropCoefficient(1, s)
		prevRank := urgencyRank[domain.ClassifyHealth(1).Urgency]
		for i := 99; i >= -100; i-- {
			ndvi := float64(i) / 100
			kc := domain.CropCoefficient(ndvi, s)
			rank := urgencyRank[domain.ClassifyHealth(ndvi).Urgency]
			p.checks++
			if kc < prevKc {
				p.errorf("stage=%s ndvi=%.2f: kc fell %.3f -> %.3f", s, ndvi, prevKc, kc)
			}
			if rank < prevRank {
				p.errorf("ndvi=%.2f: urgency fell", ndvi)
			}
			prevKc, prevRank = kc, rank
		}
	}
	return p
}

func checkWaterBalance() *phase {
	p := &phase{name: "Net irrigation monotone and non-negative"}
	for rain := 0.0; rain <= 15; rain += 0.75 {
		prev := -1.0
		for etc := 0.0; etc <= 40; etc += 0.5 {
			net := domain.NetIrrigationMM(etc, rain)
			p.checks++
			if net < 0 || net < prev {
				p.errorf("etc=%.1f rain=%.2f: net=%.3f prev=%.3f", etc, rain, net, prev)
			}
			prev = net
		}
	}
	for _, probs := range [][]float64{{0, 0, 0}, {100, 100, 100}, {5, 10, 30}, {50}} {
		p.checks++
		got := domain.ExpectedRainMM(probs)
		if got < 0 || got > 5*float64(len(probs)) {
			p.errorf("rain probabilities %v: expected rain %.3f out of range", probs, got)
		}
	}
	return p
}

func checkSavings(rates domain.CostRates) *phase {
	p := &phase{name: "Savings bounded and consistent"}
	for _, smart := range []float64{0, 1, 10, 272.623, 5000} {
		trad := domain.TraditionalBaseline(smart, domain.DefaultBaselineMultiplier)
		s := domain.ComputeSavings(trad, smart, rates)
		p.checks++
		if s.PercentageSaved < 0 || s.PercentageSaved > 100 {
			p.errorf("smart=%.3f: percentage %.2f outside [0, 100]", smart, s.PercentageSaved)
		}
		if smart > 0 && math.Abs(s.PercentageSaved-100.0/3) > 1e-9 {
			p.errorf("smart=%.3f: 1.5x baseline should save a third, got %.4f", smart, s.PercentageSaved)
		}
		if math.Abs(s.WaterSavedLiters-s.WaterSavedM3*1000) > 1e-6 {
			p.errorf("smart=%.3f: liters and m3 disagree", smart)
		}
	}
	p.checks++
	if s := domain.ComputeSavings(0, 0, rates); s.PercentageSaved != 0 {
		p.errorf("zero baseline: percentage %.2f, want 0", s.PercentageSaved)
	}
	return p
}

func checkScenarios(engine domain.Engine, variant domain.WindLogVariant) *phase {
	p := &phase{name: "Pinned scenarios"}

	obs := domain.DailyWeatherObservation{TempMax: 30, TempMin: 20, RelativeHumidity: 60, WindSpeed: 3.2, Latitude: 35.8, DayOfYear: 300}
	wantET0 := 7.92
	if variant == domain.WindLogAlternate {
		wantET0 = 7.91
	}
	p.checks++
	if et0, err := engine.ET0.Compute(obs); err != nil || domain.Round(et0, 2) != wantET0 {
		p.errorf("sousse day 300: et0=%.4f err=%v, want %.2f", et0, err, wantET0)
	}

	farms := farm.NewDemoRegistry()
	f, err := farms.Get("farm_001")
	if err != nil {
		p.errorf("farm_001: %v", err)
		return p
	}
	window := domain.ForecastWindow{
		{TempMax: 30, TempMin: 20, RelativeHumidity: 60, WindSpeed: 3.2, Latitude: f.Location.Lat, DayOfYear: 300},
		{TempMax: 29, TempMin: 19, RelativeHumidity: 65, WindSpeed: 3.5, Latitude: f.Location.Lat, DayOfYear: 301},
		{TempMax: 27, TempMin: 18, RelativeHumidity: 70, WindSpeed: 4.0, Latitude: f.Location.Lat, DayOfYear: 302},
	}
	rec, err := engine.Recommend(domain.RecommendationInput{
		Window:          window,
		RainProbability: []float64{5, 10, 30},
		NDVI:            f.NDVIScore,
		Stage:           domain.StageMid,
		Plot:            f.Plot(),
	})
	p.checks++
	if err != nil {
		p.errorf("farm_001 demo window: %v", err)
		return p
	}
	r := rec.Rounded()
	pins := []struct {
		name      string
		got, want float64
	}{
		{"kc", r.CropCoefficient, 0.75},
		{"expected rain mm", r.ExpectedRainMM, 2.25},
		{"percentage saved", r.Savings.PercentageSaved, 33.33},
	}
	if variant == domain.WindLogCanonical {
		pins = append(pins, struct {
			name      string
			got, want float64
		}{"volume m3", r.Plan.VolumeM3, 272.623})
	}
	for _, pin := range pins {
		p.checks++
		if pin.got != pin.want {
			p.errorf("farm_001 %s: got %v, want %v", pin.name, pin.got, pin.want)
		}
	}
	p.checks++
	if r.Plan.Urgency != domain.UrgencyHigh {
		p.errorf("farm_001 urgency: got %s, want high", r.Plan.Urgency)
	}

	p.checks++
	if _, err := engine.Recommend(domain.RecommendationInput{Window: window, RainProbability: []float64{5}, NDVI: 0.5, Plot: f.Plot()}); err == nil {
		p.errorf("misaligned rain sequence accepted")
	}
	return p
}
