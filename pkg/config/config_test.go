package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsAndEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BOOKING_IDEMPOTENCY_TTL", "2h")
	t.Setenv("COUNTRY_TIME_ZONES", "840=America/New_York, 392 = Asia/Tokyo,broken")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 2*time.Hour, cfg.Booking.IdempotencyTTL)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, map[string]string{"840": "America/New_York", "392": "Asia/Tokyo"}, cfg.TimeZones.CountryZones)
}

func TestParseDurationFallsBack(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 90*time.Second, parseDuration("90s", time.Minute))
}

func TestLoadAdminSeed(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD", "change-me-now")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "admin@tutoring.local", cfg.Admin.Email)
	assert.Equal(t, "change-me-now", cfg.Admin.Password)
}
