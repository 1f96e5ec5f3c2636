package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/stwalsh4118/estatedesk/internal/database"
	"github.com/stwalsh4118/estatedesk/internal/models"
)

// ActivityRepository reads viewing and offer records for the pipeline series.
// Both methods return an empty slice when nothing falls in range.
type ActivityRepository interface {
	ListViewingsSince(ctx context.Context, since time.Time) ([]models.ActivityRecord, error)
	ListOffersSince(ctx context.Context, since time.Time) ([]models.ActivityRecord, error)
}

type activityRepository struct {
	db *database.Database
}

// NewActivityRepository creates a new instance of ActivityRepository.
func NewActivityRepository(db *database.Database) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) ListViewingsSince(ctx context.Context, since time.Time) ([]models.ActivityRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id::text, created_at, status
		FROM viewings
		WHERE created_at >= $1
		ORDER BY created_at
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query viewings since %s: %w", since.Format(time.RFC3339), err)
	}
	return collectActivity(rows)
}

func (r *activityRepository) ListOffersSince(ctx context.Context, since time.Time) ([]models.ActivityRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id::text, created_at, status
		FROM offers
		WHERE created_at >= $1
		ORDER BY created_at
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query offers since %s: %w", since.Format(time.RFC3339), err)
	}
	return collectActivity(rows)
}
