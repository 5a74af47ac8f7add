package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/smart-irrigation-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/smart-irrigation-service/internal/adapter/kafka"
	"github.com/couchcryptid/smart-irrigation-service/internal/adapter/ndvi"
	"github.com/couchcryptid/smart-irrigation-service/internal/adapter/openweather"
	"github.com/couchcryptid/smart-irrigation-service/internal/config"
	"github.com/couchcryptid/smart-irrigation-service/internal/domain"
	"github.com/couchcryptid/smart-irrigation-service/internal/farm"
	"github.com/couchcryptid/smart-irrigation-service/internal/observability"
	"github.com/couchcryptid/smart-irrigation-service/internal/pipeline"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()
	engine := cfg.Engine()

	// Weather: live OpenWeather behind a TTL cache, with the demo forecast as
	// a fallback when enabled.
	var weather domain.WeatherProvider
	if cfg.OpenWeatherAPIKey != "" {
		client := openweather.NewClient(cfg.OpenWeatherAPIKey, cfg.OpenWeatherBaseURL, cfg.OpenWeatherTimeout, metrics, logger)
		weather = openweather.NewCachedProvider(client, cfg.WeatherCacheSize, cfg.WeatherCacheTTL, clock, metrics)
		logger.Info("openweather enabled", "cache_size", cfg.WeatherCacheSize, "cache_ttl", cfg.WeatherCacheTTL)
	} else {
		logger.Warn("openweather api key not set, serving demo forecast")
	}
	advisorOpts := []pipeline.AdvisorOption{pipeline.WithClock(clock)}
	if cfg.WeatherFallbackEnabled {
		advisorOpts = append(advisorOpts, pipeline.WithWeatherFallback(openweather.NewDemoProvider(clock)))
	}

	// Vegetation: optional NDVI service, always backed by the fixed fallback score.
	var primaryNDVI domain.VegetationProvider
	if cfg.NDVIServiceURL != "" {
		primaryNDVI = ndvi.NewClient(cfg.NDVIServiceURL, cfg.NDVITimeout, metrics, logger)
		logger.Info("ndvi service enabled", "url", cfg.NDVIServiceURL)
	}
	vegetation := ndvi.NewFallbackProvider(primaryNDVI, cfg.NDVIFallback, metrics, logger)

	farms := farm.NewDemoRegistry()
	advisor := pipeline.NewAdvisor(engine, farms, weather, vegetation, cfg.ForecastDays, metrics, logger, advisorOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		readiness sharedobs.ReadinessChecker = httpadapter.AlwaysReady{}
		reader    *kafkaadapter.Reader
		writer    *kafkaadapter.Writer
	)

	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		p := pipeline.New(reader, pipeline.NewTransformer(advisor), writer, logger, metrics, cfg.BatchSize,
			pipeline.WithConcurrency(cfg.BatchConcurrency),
			pipeline.WithRequestTimeout(cfg.RequestTimeout),
		)
		readiness = p

		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	} else {
		logger.Info("kafka pipeline disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Advisor:        advisor,
		Farms:          farms,
		Rates:          engine.Rates,
		Ready:          readiness,
		Metrics:        metrics,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
