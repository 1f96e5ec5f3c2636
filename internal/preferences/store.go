package preferences

import (
	"context"
	"errors"
	"fmt"

	"github.com/stwalsh4118/estatedesk/internal/config"
	"github.com/stwalsh4118/estatedesk/internal/models"
)

// Longest accepted user identifier
const maxUserIDLength = 128

// Accepted dashboard window, in days
const (
	MinRangeDays = 1
	MaxRangeDays = 365
)

var (
	// ErrInvalidUserID is returned for empty or oversized user identifiers.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidPreferences is returned when a saved value is out of range.
	ErrInvalidPreferences = errors.New("invalid preferences")

	// ErrNotInitialized is returned when Load or Save runs before Init.
	ErrNotInitialized = errors.New("preference store not initialized")
)

// Store persists per-user preferences. Init must be called once before use.
// Loading a user that never saved returns models.DefaultPreferences.
type Store interface {
	Init(ctx context.Context) error
	Load(ctx context.Context, userID string) (models.Preferences, error)
	Save(ctx context.Context, userID string, prefs models.Preferences) error
	// Update applies fn to the current preferences and saves the result as
	// one step. Concurrent updates to the same user never lose a write.
	Update(ctx context.Context, userID string, fn func(*models.Preferences)) (models.Preferences, error)
	Close() error
}

// New builds the store selected by cfg. The caller still has to Init it.
func New(cfg config.PreferencesConfig) (Store, error) {
	switch cfg.Backend {
	case config.PreferencesBackendFile:
		return NewFileStore(cfg.Path), nil
	case config.PreferencesBackendSQLite:
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown preferences backend %q", cfg.Backend)
	}
}

// Validate checks prefs before they are saved.
func Validate(prefs models.Preferences) error {
	if prefs.DashboardRangeDays < MinRangeDays || prefs.DashboardRangeDays > MaxRangeDays {
		return fmt.Errorf("%w: dashboard_range_days must be between %d and %d, got %d",
			ErrInvalidPreferences, MinRangeDays, MaxRangeDays, prefs.DashboardRangeDays)
	}
	return nil
}

func validateUserID(userID string) error {
	if userID == "" || len(userID) > maxUserIDLength {
		return fmt.Errorf("%w: %q", ErrInvalidUserID, userID)
	}
	return nil
}
