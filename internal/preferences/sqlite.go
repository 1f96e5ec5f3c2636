package preferences

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/stwalsh4118/estatedesk/internal/models"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps preferences in a SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open preferences database %s: %w", path, err)
	}
	// SQLite serialises writers anyway
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStoreWithDB wraps an already opened handle.
func NewSQLiteStoreWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Init creates the table if needed.
func (s *SQLiteStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS user_preferences (
    user_id              TEXT PRIMARY KEY,
    onboarding_dismissed INTEGER NOT NULL DEFAULT 0,
    dashboard_range_days INTEGER NOT NULL,
    updated_at           TIMESTAMP NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("failed to create user_preferences table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, userID string) (models.Preferences, error) {
	if err := validateUserID(userID); err != nil {
		return models.Preferences{}, err
	}

	var prefs models.Preferences
	err := s.db.QueryRowContext(ctx,
		`SELECT onboarding_dismissed, dashboard_range_days FROM user_preferences WHERE user_id = ?`,
		userID,
	).Scan(&prefs.OnboardingDismissed, &prefs.DashboardRangeDays)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DefaultPreferences(), nil
		}
		return models.Preferences{}, fmt.Errorf("failed to load preferences for %s: %w", userID, err)
	}
	return prefs, nil
}

func (s *SQLiteStore) Save(ctx context.Context, userID string, prefs models.Preferences) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if err := Validate(prefs); err != nil {
		return err
	}

	if err := upsert(ctx, s.db, userID, prefs); err != nil {
		return fmt.Errorf("failed to save preferences for %s: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, userID string, fn func(*models.Preferences)) (models.Preferences, error) {
	if err := validateUserID(userID); err != nil {
		return models.Preferences{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Preferences{}, fmt.Errorf("failed to begin preferences transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	prefs := models.DefaultPreferences()
	err = tx.QueryRowContext(ctx,
		`SELECT onboarding_dismissed, dashboard_range_days FROM user_preferences WHERE user_id = ?`,
		userID,
	).Scan(&prefs.OnboardingDismissed, &prefs.DashboardRangeDays)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.Preferences{}, fmt.Errorf("failed to load preferences for %s: %w", userID, err)
	}

	fn(&prefs)
	if err := Validate(prefs); err != nil {
		return models.Preferences{}, err
	}

	if err := upsert(ctx, tx, userID, prefs); err != nil {
		return models.Preferences{}, fmt.Errorf("failed to save preferences for %s: %w", userID, err)
	}
	if err := tx.Commit(); err != nil {
		return models.Preferences{}, fmt.Errorf("failed to commit preferences for %s: %w", userID, err)
	}
	return prefs, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, userID string, prefs models.Preferences) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO user_preferences (user_id, onboarding_dismissed, dashboard_range_days, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
    onboarding_dismissed = excluded.onboarding_dismissed,
    dashboard_range_days = excluded.dashboard_range_days,
    updated_at = excluded.updated_at`,
		userID, prefs.OnboardingDismissed, prefs.DashboardRangeDays, time.Now().UTC(),
	)
	return err
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
