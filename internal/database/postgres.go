package database

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stwalsh4118/estatedesk/internal/config"
)

// applicationName tags our sessions in pg_stat_activity.
const applicationName = "estatedesk"

const (
	connectTimeout    = 5 * time.Second
	maxConnIdleTime   = 30 * time.Second
	maxConnLifetime   = time.Hour
	healthCheckPeriod = time.Minute
)

// ErrPoolClosed is returned by Ping on a Database without a pool.
var ErrPoolClosed = errors.New("database pool is not initialized")

// Database owns the pgx pool shared by the repositories and the change
// listener.
type Database struct {
	Pool *pgxpool.Pool
}

// DSN builds the connection URL for cfg. Credentials are escaped, so
// passwords may contain any character.
func DSN(cfg config.DatabaseConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, cfg.Port),
		Path:     "/" + cfg.Name,
		RawQuery: url.Values{"sslmode": {sslMode}, "application_name": {applicationName}}.Encode(),
	}
	return u.String()
}

func newPoolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MinConns = int32(cfg.PoolMin)
	poolConfig.MaxConns = int32(cfg.PoolMax)
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.HealthCheckPeriod = healthCheckPeriod
	return poolConfig, nil
}

// NewPostgresPool opens the pool and pings once so a bad DSN fails at
// startup instead of on the first request.
func NewPostgresPool(ctx context.Context, cfg config.DatabaseConfig) (*Database, error) {
	poolConfig, err := newPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{Pool: pool}, nil
}

// Ping backs the readiness check.
func (db *Database) Ping(ctx context.Context) error {
	if db.Pool == nil {
		return ErrPoolClosed
	}
	return db.Pool.Ping(ctx)
}

// Close waits for acquired connections to be released, then closes the
// pool. It is safe to call more than once.
func (db *Database) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}
