package config_test

import (
	"testing"
	"time"

	"github.com/ramenya/ordering-service/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "ordering")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)
	assert.Equal(t, "migrations", cfg.Postgres.MigrationsPath)
	assert.Equal(t, int32(10), cfg.Postgres.MaxConns)
	assert.Equal(t, int32(2), cfg.Postgres.MinConns)
	assert.Equal(t, 30*time.Minute, cfg.Postgres.MaxConnLifetime)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_PORT", "9000")
	t.Setenv("DB_SSLMODE", "require")
	t.Setenv("DB_MAX_CONNS", "50")
	t.Setenv("DB_MAX_CONN_LIFETIME_MINUTES", "5")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, "require", cfg.Postgres.SSLMode)
	assert.Equal(t, int32(50), cfg.Postgres.MaxConns)
	assert.Equal(t, 5*time.Minute, cfg.Postgres.MaxConnLifetime)
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_PASSWORD", "")

	_, err := config.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PASSWORD")
}

func TestLoad_RejectsNonIntegerPoolSize(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_MAX_CONNS", "many")

	_, err := config.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_MAX_CONNS")
}
