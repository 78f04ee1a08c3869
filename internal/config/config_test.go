package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("SESSION_TTL_DAYS", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, _, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 36500*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 12*time.Hour, cfg.AdminTokenTTL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SESSION_TTL_DAYS", "30")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("AUTH_BASE_URL", "https://aprenderinglesfull.com/uploader/")
	t.Setenv("ADMIN_PASSWORD", "pw")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("APP_ENV", "production")

	cfg, _, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "https://aprenderinglesfull.com/uploader", cfg.BaseURL)
	assert.True(t, cfg.Production())
}

func TestValidateRequiresJWTSecretForAdmin(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD", "pw")
	t.Setenv("JWT_SECRET", "")

	_, _, err := Load()
	assert.Error(t, err)
}
