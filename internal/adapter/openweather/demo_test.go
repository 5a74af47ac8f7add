package openweather

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoProvider_DatesFollowClock(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 12, 31, 8, 0, 0, 0, time.UTC))

	report, err := NewDemoProvider(clock).Weather(context.Background(), 0, 0)
	require.NoError(t, err)

	require.Len(t, report.Forecast, 3)
	assert.Equal(t, "2025-12-31", report.Forecast[0].Date)
	assert.Equal(t, "2026-01-01", report.Forecast[1].Date)
	assert.Equal(t, 30.0, report.Forecast[0].TempMax)
	assert.Equal(t, 30.0, report.Forecast[2].RainProbability)
	assert.Equal(t, "Clear", report.Current.Weather)
}

func TestDemoProvider_DoesNotShareState(t *testing.T) {
	d := NewDemoProvider(clockwork.NewFakeClock())

	r1, _ := d.Weather(context.Background(), 0, 0)
	r1.Forecast[0].TempMax = 99
	r2, _ := d.Weather(context.Background(), 0, 0)

	assert.Equal(t, 30.0, r2.Forecast[0].TempMax)
}
