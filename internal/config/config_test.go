package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("SESSION_STORE", "")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, SessionMemory, cfg.SessionStore)
	assert.Equal(t, 100*time.Minute, cfg.SessionLifetime)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Len(t, cfg.JWTSecret, 64, "a random secret is generated")
	assert.False(t, cfg.SMTP.Enabled())
	assert.False(t, cfg.Google().Enabled())
	assert.Equal(t, "http://localhost:8080/auth/google/callback/", cfg.GoogleCallbackURL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("APPLICATION_HOST", "https://ninja.example/")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("SMTP_HOST", "smtp.ninja.example")
	t.Setenv("SMTP_SECURE", "true")
	t.Setenv("GITHUB_CLIENT_ID", "id")
	t.Setenv("GITHUB_CLIENT_SECRET", "secret")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "https://ninja.example", cfg.ApplicationHost)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.True(t, cfg.SMTP.Enabled())
	assert.True(t, cfg.SMTP.Secure)
	assert.Equal(t, 587, cfg.SMTP.Port)

	gh := cfg.Github()
	assert.True(t, gh.Enabled())
	assert.Equal(t, "https://ninja.example/auth/github/callback/", gh.CallbackURL)
	assert.Equal(t, "DEBUG", cfg.SlogLevel().String())
}

func TestLoadRejectsBadDrivers(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	_, err := Load(nil)
	assert.ErrorContains(t, err, "STORE_DRIVER")

	t.Setenv("STORE_DRIVER", StorePostgres)
	t.Setenv("DATABASE_DSN", "")
	_, err = Load(nil)
	assert.ErrorContains(t, err, "DATABASE_DSN")

	t.Setenv("STORE_DRIVER", StoreMemory)
	t.Setenv("SESSION_STORE", "memcached")
	_, err = Load(nil)
	assert.ErrorContains(t, err, "SESSION_STORE")
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	_, err := Load(nil)
	assert.ErrorContains(t, err, "parse env:")
}
