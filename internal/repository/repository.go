package repository

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/estatedesk/internal/analytics"
	"github.com/stwalsh4118/estatedesk/internal/models"
)

// Maximum page size for list queries
const maxListLimit = 200

// Page size used when the caller does not ask for one
const defaultListLimit = 50

// clampLimit normalizes a requested page size.
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// collectActivity scans (id, created_at, status) rows into activity records.
// An empty result is an empty slice, not nil.
func collectActivity(rows pgx.Rows) ([]models.ActivityRecord, error) {
	defer rows.Close()

	records := []models.ActivityRecord{}
	for rows.Next() {
		var (
			id        string
			createdAt time.Time
			status    *string
		)
		if err := rows.Scan(&id, &createdAt, &status); err != nil {
			return nil, fmt.Errorf("failed to scan activity row: %w", err)
		}
		rec := models.ActivityRecord{ID: id, CreatedAt: analytics.FormatTimestamp(createdAt)}
		if status != nil {
			rec.Status = *status
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}
	return records, nil
}
