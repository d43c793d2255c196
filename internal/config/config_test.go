package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_TOKEN", "test-token")
	t.Setenv("DATABASE_DSN", "postgres://localhost/voicetime_test")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("COMMAND_PREFIX", "")
	t.Setenv("QUERY_TIMEOUT", "")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "test-token", cfg.DiscordToken)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "!activity", cfg.CommandPrefix)
	assert.Equal(t, 5*time.Second, cfg.QueryTimeout)
}

func TestLoadMissingToken(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DISCORD_TOKEN", "")

	_, err := Load()
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "DISCORD_TOKEN", cfgErr.Field)
}

func TestLoadMissingDSN(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_DSN", "")

	_, err := Load()
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "DATABASE_DSN", cfgErr.Field)
}

func TestLoadQueryTimeout(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("QUERY_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
}

func TestLoadInvalidQueryTimeout(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("QUERY_TIMEOUT", "soon")

	_, err := Load()
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "QUERY_TIMEOUT", cfgErr.Field)
}
