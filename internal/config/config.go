package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	CORS        CORSConfig
	Redis       RedisConfig
	Scoring     ScoringConfig
	Preferences PreferencesConfig
	Realtime    RealtimeConfig
	Feed        FeedConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	PoolMin  int
	PoolMax  int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// RedisConfig holds the dashboard cache connection. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// ScoringConfig holds the lead tier thresholds.
type ScoringConfig struct {
	HotThreshold  int
	WarmThreshold int
}

// PreferencesConfig selects the user preference backend.
type PreferencesConfig struct {
	Backend string // "file" or "sqlite"
	Path    string
}

// RealtimeConfig controls the Postgres change listener.
type RealtimeConfig struct {
	Enabled      bool
	Channel      string
	RetryBackoff time.Duration
}

// FeedConfig describes the published listing feed.
type FeedConfig struct {
	Title       string
	Description string
	BaseURL     string
}

// Preference backends
const (
	PreferencesBackendFile   = "file"
	PreferencesBackendSQLite = "sqlite"
)

// Load reads configuration from an optional .env file and environment variables.
// It uses viper to read values and provides sensible defaults for development.
func Load() (*Config, error) {
	// A missing .env is normal outside local development
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	v := viper.New()

	// Set defaults for development
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_HOST", "host.docker.internal")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "estatedesk")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_POOL_MIN", 2)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL", "60s")
	v.SetDefault("SCORING_HOT_THRESHOLD", 75)
	v.SetDefault("SCORING_WARM_THRESHOLD", 50)
	v.SetDefault("PREFERENCES_BACKEND", PreferencesBackendFile)
	v.SetDefault("PREFERENCES_PATH", "preferences.yaml")
	v.SetDefault("REALTIME_ENABLED", true)
	v.SetDefault("REALTIME_CHANNEL", "estate_changes")
	v.SetDefault("REALTIME_RETRY_BACKOFF", "5s")
	v.SetDefault("FEED_TITLE", "EstateDesk listings")
	v.SetDefault("FEED_DESCRIPTION", "")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:3000")

	// Bind environment variables
	v.AutomaticEnv()

	// Build configuration
	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			SSLMode:  strings.ToLower(v.GetString("DB_SSLMODE")),
			PoolMin:  v.GetInt("DB_POOL_MIN"),
			PoolMax:  v.GetInt("DB_POOL_MAX"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			CacheTTL: v.GetDuration("CACHE_TTL"),
		},
		Scoring: ScoringConfig{
			HotThreshold:  v.GetInt("SCORING_HOT_THRESHOLD"),
			WarmThreshold: v.GetInt("SCORING_WARM_THRESHOLD"),
		},
		Preferences: PreferencesConfig{
			Backend: strings.ToLower(v.GetString("PREFERENCES_BACKEND")),
			Path:    v.GetString("PREFERENCES_PATH"),
		},
		Realtime: RealtimeConfig{
			Enabled:      v.GetBool("REALTIME_ENABLED"),
			Channel:      v.GetString("REALTIME_CHANNEL"),
			RetryBackoff: v.GetDuration("REALTIME_RETRY_BACKOFF"),
		},
		Feed: FeedConfig{
			Title:       v.GetString("FEED_TITLE"),
			Description: v.GetString("FEED_DESCRIPTION"),
			BaseURL:     v.GetString("PUBLIC_BASE_URL"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

var validSSLModes = map[string]bool{
	"disable": true, "allow": true, "prefer": true,
	"require": true, "verify-ca": true, "verify-full": true,
}

// Validate checks each section and reports the first problem by its
// environment variable name.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	for _, validate := range []func() error{
		c.Database.validate,
		c.Redis.validate,
		c.Scoring.validate,
		c.Preferences.validate,
		c.Realtime.validate,
	} {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (d DatabaseConfig) validate() error {
	for _, required := range []struct{ key, value string }{
		{"DB_HOST", d.Host},
		{"DB_PORT", d.Port},
		{"DB_NAME", d.Name},
		{"DB_USER", d.User},
		{"DB_PASSWORD", d.Password},
	} {
		if required.value == "" {
			return fmt.Errorf("%s is required", required.key)
		}
	}

	switch {
	case !validSSLModes[d.SSLMode]:
		return fmt.Errorf("DB_SSLMODE %q is not a libpq sslmode", d.SSLMode)
	case d.PoolMin < 0:
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	case d.PoolMax < 1:
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	case d.PoolMin > d.PoolMax:
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}
	return nil
}

func (r RedisConfig) validate() error {
	if r.Enabled() && r.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive when REDIS_ADDR is set")
	}
	return nil
}

func (s ScoringConfig) validate() error {
	if s.WarmThreshold < 0 || s.HotThreshold > 100 {
		return fmt.Errorf("scoring thresholds must be within 0-100")
	}
	if s.WarmThreshold >= s.HotThreshold {
		return fmt.Errorf("SCORING_WARM_THRESHOLD must be less than SCORING_HOT_THRESHOLD")
	}
	return nil
}

func (p PreferencesConfig) validate() error {
	switch p.Backend {
	case PreferencesBackendFile, PreferencesBackendSQLite:
	default:
		return fmt.Errorf("PREFERENCES_BACKEND must be %q or %q", PreferencesBackendFile, PreferencesBackendSQLite)
	}
	if p.Path == "" {
		return fmt.Errorf("PREFERENCES_PATH is required")
	}
	return nil
}

func (r RealtimeConfig) validate() error {
	if !r.Enabled {
		return nil
	}
	if r.Channel == "" {
		return fmt.Errorf("REALTIME_CHANNEL is required when realtime is enabled")
	}
	if r.RetryBackoff <= 0 {
		return fmt.Errorf("REALTIME_RETRY_BACKOFF must be positive")
	}
	return nil
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
