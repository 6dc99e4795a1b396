package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "stockcast", cfg.Database.DBName)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, "month", cfg.Forecast.DefaultInterval)
	assert.Equal(t, 1, cfg.Forecast.PredictedPeriods)
	assert.Equal(t, "ar", cfg.Forecast.DefaultMethod)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoadRejectsNonPositivePeriods(t *testing.T) {
	viper.Reset()
	t.Setenv("FORECAST_PREDICTED_PERIODS", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadCacheTTL(t *testing.T) {
	viper.Reset()
	t.Setenv("FORECAST_CACHE_TTL", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestSeasonalPeriodTable(t *testing.T) {
	viper.Reset()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Forecast.SeasonalPeriod("day"))
	assert.Equal(t, 1, cfg.Forecast.SeasonalPeriod("week"))
	assert.Equal(t, 3, cfg.Forecast.SeasonalPeriod("month"))
	assert.Equal(t, 2, cfg.Forecast.SeasonalPeriod("quarter"))
	assert.Equal(t, 1, cfg.Forecast.SeasonalPeriod("year"))
	// Unknown intervals fall back to a single-bucket cycle.
	assert.Equal(t, 1, cfg.Forecast.SeasonalPeriod("hour"))
}

func TestCacheTTLDuration(t *testing.T) {
	f := ForecastConfig{CacheTTL: "30s"}
	assert.Equal(t, 30*time.Second, f.CacheTTLDuration())

	f = ForecastConfig{}
	assert.Equal(t, 10*time.Minute, f.CacheTTLDuration())
}
