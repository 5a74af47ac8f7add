package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/smart-irrigation-service/internal/domain"
)

// maxForecastDays is the longest window the 5-day/3-hour forecast can fill.
const maxForecastDays = 7

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr           string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string

	// OpenWeather configuration.
	OpenWeatherAPIKey      string
	OpenWeatherBaseURL     string
	OpenWeatherTimeout     time.Duration
	WeatherCacheSize       int
	WeatherCacheTTL        time.Duration
	WeatherFallbackEnabled bool

	// Vegetation index source.
	NDVIServiceURL string
	NDVITimeout    time.Duration
	NDVIFallback   float64

	// Engine parameters.
	ForecastDays       int
	WindLogVariant     domain.WindLogVariant
	CostPerM3          float64
	USDRate            float64
	EmitterRateLPH     float64
	BaselineMultiplier float64

	// Batch pipeline.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSinkTopic     string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration
	BatchConcurrency   int
	RequestTimeout     time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	concurrency, err := strconv.Atoi(sharedcfg.EnvOrDefault("BATCH_CONCURRENCY", "4"))
	if err != nil || concurrency < 1 {
		return nil, errors.New("invalid BATCH_CONCURRENCY: must be a positive integer")
	}
	requestTimeout, err := parsePositiveDuration("REQUEST_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}

	owTimeout, err := parsePositiveDuration("OPENWEATHER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	ndviTimeout, err := parsePositiveDuration("NDVI_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parsePositiveDuration("WEATHER_CACHE_TTL", "10m")
	if err != nil {
		return nil, err
	}

	forecastDays, err := strconv.Atoi(sharedcfg.EnvOrDefault("FORECAST_DAYS", "3"))
	if err != nil || forecastDays < 1 || forecastDays > maxForecastDays {
		return nil, fmt.Errorf("invalid FORECAST_DAYS: must be between 1 and %d", maxForecastDays)
	}

	variant, err := domain.ParseWindLogVariant(os.Getenv("WIND_LOG_VARIANT"))
	if err != nil {
		return nil, fmt.Errorf("invalid WIND_LOG_VARIANT: %w", err)
	}

	costPerM3, err := parseNonNegativeFloat("COST_PER_M3", domain.DefaultCostPerM3)
	if err != nil {
		return nil, err
	}
	usdRate, err := parseNonNegativeFloat("USD_RATE", domain.DefaultUSDRate)
	if err != nil {
		return nil, err
	}
	emitterRate, err := parseNonNegativeFloat("EMITTER_RATE_LPH", domain.DefaultEmitterRateLPH)
	if err != nil {
		return nil, err
	}
	baseline, err := parseNonNegativeFloat("BASELINE_MULTIPLIER", domain.DefaultBaselineMultiplier)
	if err != nil {
		return nil, err
	}

	ndviFallback, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("NDVI_FALLBACK", "0.6"), 64)
	if err != nil || ndviFallback < -1 || ndviFallback > 1 {
		return nil, errors.New("invalid NDVI_FALLBACK: must be between -1 and 1")
	}

	apiKey := os.Getenv("OPENWEATHER_API_KEY")
	// Without a key the service runs on demo weather unless told otherwise.
	fallbackEnabled := apiKey == ""
	if v := os.Getenv("WEATHER_FALLBACK_ENABLED"); v != "" {
		fallbackEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		CORSAllowedOrigins: parseList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),

		OpenWeatherAPIKey:      apiKey,
		OpenWeatherBaseURL:     strings.TrimRight(sharedcfg.EnvOrDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5"), "/"),
		OpenWeatherTimeout:     owTimeout,
		WeatherCacheSize:       parseCacheSize(),
		WeatherCacheTTL:        cacheTTL,
		WeatherFallbackEnabled: fallbackEnabled,

		NDVIServiceURL: strings.TrimRight(os.Getenv("NDVI_SERVICE_URL"), "/"),
		NDVITimeout:    ndviTimeout,
		NDVIFallback:   ndviFallback,

		ForecastDays:       forecastDays,
		WindLogVariant:     variant,
		CostPerM3:          costPerM3,
		USDRate:            usdRate,
		EmitterRateLPH:     emitterRate,
		BaselineMultiplier: baseline,

		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "irrigation-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "irrigation-recommendations"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "smart-irrigation"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
		BatchConcurrency:   concurrency,
		RequestTimeout:     requestTimeout,
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}
	if cfg.OpenWeatherAPIKey == "" && !cfg.WeatherFallbackEnabled {
		return nil, errors.New("OPENWEATHER_API_KEY is required when WEATHER_FALLBACK_ENABLED is false")
	}

	return cfg, nil
}

// Engine builds the decision engine from the configured parameters.
func (c *Config) Engine() domain.Engine {
	e := domain.DefaultEngine()
	e.ET0 = domain.ET0Model{Wind: c.WindLogVariant}
	e.Rates = domain.CostRates{LocalPerM3: c.CostPerM3, USDRate: c.USDRate}
	e.EmitterRateLPH = c.EmitterRateLPH
	e.BaselineMultiplier = c.BaselineMultiplier
	return e
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseNonNegativeFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s: must be a non-negative number", key)
	}
	return v, nil
}

func parseCacheSize() int {
	if s := os.Getenv("WEATHER_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 256
}

func parseList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
