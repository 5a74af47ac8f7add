// Command advise prints one irrigation recommendation without touching the
// network. Weather comes from the fixed demo forecast dated from -date, and
// NDVI from the farm registry, -ndvi, or the fallback score.
//
// Usage:
//
//	go run ./cmd/advise -farm farm_001 -date 2024-10-26
//	go run ./cmd/advise -lat 35.5 -lon 11.0 -size 3 -trees 600 -ndvi 0.38 -stage late
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/smart-irrigation-service/internal/adapter/ndvi"
	"github.com/couchcryptid/smart-irrigation-service/internal/adapter/openweather"
	"github.com/couchcryptid/smart-irrigation-service/internal/domain"
	"github.com/couchcryptid/smart-irrigation-service/internal/farm"
	"github.com/couchcryptid/smart-irrigation-service/internal/observability"
	"github.com/couchcryptid/smart-irrigation-service/internal/pipeline"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("advise", flag.ContinueOnError)
	farmID := fs.String("farm", "", "registered farm id (overrides location, size, trees, ndvi)")
	lat := fs.Float64("lat", 35.8, "latitude in degrees")
	lon := fs.Float64("lon", 10.6, "longitude in degrees")
	size := fs.Float64("size", 2.0, "plot area in hectares")
	trees := fs.Int("trees", 400, "number of trees")
	score := fs.Float64("ndvi", 0, "NDVI score in [-1, 1]; omitted uses the fallback")
	fallbackNDVI := fs.Float64("ndvi-fallback", 0.6, "NDVI used when -ndvi is omitted")
	stage := fs.String("stage", "mid", "growth stage: initial, mid, late")
	days := fs.Int("days", 3, "forecast window length")
	date := fs.String("date", time.Now().Format(time.DateOnly), "first forecast day (YYYY-MM-DD)")
	wind := fs.String("wind", "canonical", "wind log variant: canonical, alternate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	start, err := time.Parse(time.DateOnly, *date)
	if err != nil {
		return fmt.Errorf("parse -date: %w", err)
	}
	variant, err := domain.ParseWindLogVariant(*wind)
	if err != nil {
		return err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	req := pipeline.Request{RequestID: "cli", FarmID: *farmID, GrowthStage: *stage}
	if set["lat"] {
		req.Latitude = lat
	}
	if set["lon"] {
		req.Longitude = lon
	}
	if set["size"] {
		req.SizeHectares = size
	}
	if set["trees"] {
		req.TreeCount = trees
	}
	if set["ndvi"] {
		req.NDVIScore = score
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	metrics := observability.NewMetricsForTesting()
	clock := clockwork.NewFakeClockAt(start)

	engine := domain.DefaultEngine()
	engine.ET0 = domain.ET0Model{Wind: variant}

	advisor := pipeline.NewAdvisor(
		engine,
		farm.NewDemoRegistry(),
		nil,
		ndvi.NewFallbackProvider(nil, *fallbackNDVI, metrics, logger),
		*days,
		metrics,
		logger,
		pipeline.WithClock(clock),
		pipeline.WithWeatherFallback(openweather.NewDemoProvider(clock)),
	)

	advice, err := advisor.Advise(context.Background(), req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(advice)
}
