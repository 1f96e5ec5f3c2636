package database

import (
	"context"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/estatedesk/internal/config"
)

// getTestConfig points at a local PostgreSQL, overridable through the
// usual DB_* variables.
func getTestConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:     getEnvOrDefault("DB_HOST", "localhost"),
		Port:     getEnvOrDefault("DB_PORT", "5432"),
		Name:     getEnvOrDefault("DB_NAME", "estatedesk_test"),
		User:     getEnvOrDefault("DB_USER", "postgres"),
		Password: getEnvOrDefault("DB_PASSWORD", "postgres"),
		PoolMin:  2,
		PoolMax:  5,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func TestDSN(t *testing.T) {
	t.Run("escapes credentials", func(t *testing.T) {
		dsn := DSN(config.DatabaseConfig{
			Host: "db.internal", Port: "6432", Name: "estatedesk",
			User: "agent", Password: "p@ss:w/rd?#",
		})

		u, err := url.Parse(dsn)
		require.NoError(t, err)
		assert.Equal(t, "db.internal:6432", u.Host)
		assert.Equal(t, "/estatedesk", u.Path)
		password, _ := u.User.Password()
		assert.Equal(t, "p@ss:w/rd?#", password)
		assert.Equal(t, "disable", u.Query().Get("sslmode"))
		assert.Equal(t, applicationName, u.Query().Get("application_name"))
	})

	t.Run("keeps configured sslmode", func(t *testing.T) {
		cfg := getTestConfig()
		cfg.SSLMode = "verify-full"

		u, err := url.Parse(DSN(cfg))
		require.NoError(t, err)
		assert.Equal(t, "verify-full", u.Query().Get("sslmode"))
	})
}

func TestNewPoolConfig(t *testing.T) {
	cfg := getTestConfig()
	cfg.Password = "s3cr#t"

	poolConfig, err := newPoolConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, int32(2), poolConfig.MinConns)
	assert.Equal(t, int32(5), poolConfig.MaxConns)
	assert.Equal(t, connectTimeout, poolConfig.ConnConfig.ConnectTimeout)
	assert.Equal(t, maxConnLifetime, poolConfig.MaxConnLifetime)
	assert.Equal(t, "s3cr#t", poolConfig.ConnConfig.Password)
	assert.Equal(t, applicationName, poolConfig.ConnConfig.RuntimeParams["application_name"])
}

func TestPing_WithoutPool(t *testing.T) {
	db := &Database{}

	assert.ErrorIs(t, db.Ping(context.Background()), ErrPoolClosed)
	assert.NotPanics(t, db.Close)
}

func TestNewPostgresPool_Success(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	db, err := NewPostgresPool(ctx, getTestConfig())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Ping(ctx))
	assert.GreaterOrEqual(t, db.Pool.Stat().TotalConns(), int32(1))
	assert.LessOrEqual(t, db.Pool.Stat().MaxConns(), int32(5))

	var name string
	require.NoError(t, db.Pool.QueryRow(ctx, "SELECT current_setting('application_name')").Scan(&name))
	assert.Equal(t, applicationName, name)
}

func TestNewPostgresPool_Unreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := getTestConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = "1"

	db, err := NewPostgresPool(ctx, cfg)
	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestNewPostgresPool_BadCredentials(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := getTestConfig()
	cfg.Password = "definitely-not-the-password"

	_, err := NewPostgresPool(context.Background(), cfg)
	assert.Error(t, err)
}

func TestClose_Twice(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := NewPostgresPool(context.Background(), getTestConfig())
	require.NoError(t, err)

	db.Close()
	assert.NotPanics(t, db.Close)
	assert.Error(t, db.Ping(context.Background()))
}
