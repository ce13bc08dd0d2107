package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load("testdata/does-not-exist.env")
	assert.Error(t, err)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/fit")
	t.Setenv("PORT", "8080")
	t.Setenv("LEADERBOARD_CACHE_TTL", "90s")
	t.Setenv("RATE_LIMIT_BURST", "12")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DB_MAX_CONNS", "not-a-number")

	cfg, err := Load("testdata/does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 90*time.Second, cfg.LeaderboardCacheTTL)
	assert.Equal(t, 12, cfg.RateLimitBurst)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.TrustedProxies)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, Defaults().DBMaxConns, cfg.DBMaxConns)
}
