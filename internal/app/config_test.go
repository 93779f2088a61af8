package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.ReportTimezone)
	assert.Equal(t, 10*time.Minute, cfg.ReportCacheTTL)
	assert.Equal(t, 6, cfg.ReportWarmupPeriods)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("REPORT_TIMEZONE", "UTC")
	t.Setenv("REPORT_CACHE_TTL", "90s")
	t.Setenv("EXPORT_LIMIT_PER_MINUTE", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 90*time.Second, cfg.ReportCacheTTL)
	assert.Equal(t, 3, cfg.ExportLimitPerMinute)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Run("timezone", func(t *testing.T) {
		t.Setenv("REPORT_TIMEZONE", "Mars/Olympus")
		_, err := LoadConfig()
		assert.Error(t, err)
	})
	t.Run("ttl", func(t *testing.T) {
		t.Setenv("REPORT_CACHE_TTL", "-1s")
		_, err := LoadConfig()
		assert.Error(t, err)
	})
	t.Run("warmup periods", func(t *testing.T) {
		t.Setenv("REPORT_WARMUP_PERIODS", "0")
		_, err := LoadConfig()
		assert.Error(t, err)
	})
	t.Run("malformed duration", func(t *testing.T) {
		t.Setenv("REPORT_CACHE_TTL", "soon")
		_, err := LoadConfig()
		assert.Error(t, err)
	})
}

func TestInTestMode(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
