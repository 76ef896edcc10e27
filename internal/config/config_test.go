package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"room-staging-backend/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("EXPORT_BACKEND", "")
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("GEMINI_TIMEOUT", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-flash-image", cfg.GeminiModel)
	assert.Equal(t, 120*time.Second, cfg.GeminiTimeout)
	assert.Equal(t, config.ExportBackendNone, cfg.ExportBackend)
	assert.Equal(t, int64(20<<20), cfg.MaxImageBytes)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("GEMINI_TIMEOUT", "soon")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 120*time.Second, cfg.GeminiTimeout)
}

func TestValidate_ExportBackends(t *testing.T) {
	cfg := &config.Config{JWTSecret: "s", MaxImageBytes: 1, ExportBackend: config.ExportBackendSupabase}
	assert.Error(t, cfg.Validate())

	cfg.SupabaseURL = "https://example.supabase.co"
	cfg.SupabasePublishableKey = "key"
	assert.NoError(t, cfg.Validate())

	cfg.ExportBackend = config.ExportBackendMinio
	assert.Error(t, cfg.Validate())

	cfg.ExportBackend = "ftp"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RateLimitRequiresPositiveValues(t *testing.T) {
	cfg := &config.Config{
		JWTSecret:     "s",
		MaxImageBytes: 1,
		ExportBackend: config.ExportBackendNone,
		RedisAddr:     "localhost:6379",
	}
	assert.Error(t, cfg.Validate())

	cfg.StageRateLimit = 5
	cfg.StageRateWindow = time.Minute
	assert.NoError(t, cfg.Validate())
}
