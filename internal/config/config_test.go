package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Cash", cfg.CashMethodName)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.True(t, cfg.RunMigrations)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())
	assert.Equal(t, 1000, cfg.RateLimitPerMinute)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("APP_ENV", "Production")
	t.Setenv("DATABASE_URL", "sqlite:///tmp/gym.db")
	t.Setenv("CASH_METHOD_NAME", "Efectivo")
	t.Setenv("RUN_MIGRATIONS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "sqlite:///tmp/gym.db", cfg.DatabaseURL)
	assert.Equal(t, "Efectivo", cfg.CashMethodName)
	assert.False(t, cfg.RunMigrations)
}

func TestAllowedOrigins(t *testing.T) {
	cfg := &Config{CORSOrigins: " https://a.example , ,https://b.example"}
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins())
}
