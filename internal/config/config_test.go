package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"PORT", "ENV", "DATABASE_URL", "REDIS_URL", "PUBLIC_URL", "HEARTBEAT_INTERVAL", "MAX_UPLOAD_MB", "RENDER_WIDTH", "RATE_LIMIT_WHITELIST"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "http://localhost:8080", cfg.PublicURL)
	assert.Equal(t, 5*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, int64(50<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 1920, cfg.RenderWidth)
	assert.Empty(t, cfg.RateLimitWhitelist)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "staging")
	t.Setenv("PUBLIC_URL", "https://slidr.example/")
	t.Setenv("HEARTBEAT_INTERVAL", "750ms")
	t.Setenv("MAX_UPLOAD_MB", "5")
	t.Setenv("RENDER_WIDTH", "not-a-number")
	t.Setenv("RATE_LIMIT_WHITELIST", " 10.0.0.0/8, ,192.0.2.1 ")
	t.Setenv("AUTO_BLOCK_ENABLED", "true")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Port)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "https://slidr.example", cfg.PublicURL)
	assert.Equal(t, 750*time.Millisecond, cfg.HeartbeatInterval)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 1920, cfg.RenderWidth)
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.1"}, cfg.RateLimitWhitelist)
	assert.True(t, cfg.AutoBlockEnabled)
}

func TestLoadProductionRequiresBackends(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	assert.PanicsWithValue(t, "DATABASE_URL is required in production", func() { Load() })

	t.Setenv("DATABASE_URL", "postgres://localhost/slidr")
	assert.PanicsWithValue(t, "REDIS_URL is required in production", func() { Load() })

	t.Setenv("REDIS_URL", "redis://localhost:6379")
	assert.NotPanics(t, func() { Load() })
}
