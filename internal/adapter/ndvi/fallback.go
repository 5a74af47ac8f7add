package ndvi

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/smart-irrigation-service/internal/domain"
	"github.com/couchcryptid/smart-irrigation-service/internal/observability"
)

// FallbackProvider answers with a fixed NDVI whenever the primary provider
// is absent or fails.
type FallbackProvider struct {
	primary domain.VegetationProvider
	value   float64
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewFallbackProvider wraps primary, which may be nil.
func NewFallbackProvider(primary domain.VegetationProvider, value float64, metrics *observability.Metrics, logger *slog.Logger) *FallbackProvider {
	return &FallbackProvider{primary: primary, value: value, metrics: metrics, logger: logger}
}

func (f *FallbackProvider) NDVI(ctx context.Context, lat, lon float64) (float64, error) {
	if f.primary == nil {
		return f.value, nil
	}
	v, err := f.primary.NDVI(ctx, lat, lon)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		f.metrics.FallbacksUsed.WithLabelValues(source).Inc()
		f.logger.Warn("ndvi unavailable, using fallback", "lat", lat, "lon", lon, "fallback", f.value, "error", err)
		return f.value, nil
	}
	return v, nil
}
