package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/estatedesk/internal/database"
	"github.com/stwalsh4118/estatedesk/internal/models"
)

// PropertyRepository defines read access to listings.
type PropertyRepository interface {
	// ListPublished returns published listings, newest first.
	// Returns an empty slice if there are none.
	ListPublished(ctx context.Context, limit int) ([]models.Property, error)

	// FindByCode returns nil, nil when no listing has the code.
	FindByCode(ctx context.Context, code string) (*models.Property, error)
}

type propertyRepository struct {
	db *database.Database
}

// NewPropertyRepository creates a new instance of PropertyRepository.
func NewPropertyRepository(db *database.Database) PropertyRepository {
	return &propertyRepository{db: db}
}

const propertyColumns = `
	id,
	code,
	title,
	description,
	price::float8,
	currency,
	city,
	region,
	bedrooms,
	bathrooms,
	area_sqm::float8,
	status,
	created_at,
	updated_at`

func scanProperty(row pgx.Row) (*models.Property, error) {
	var p models.Property
	err := row.Scan(
		&p.ID,
		&p.Code,
		&p.Title,
		&p.Description,
		&p.Price,
		&p.Currency,
		&p.City,
		&p.Region,
		&p.Bedrooms,
		&p.Bathrooms,
		&p.AreaSqm,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *propertyRepository) ListPublished(ctx context.Context, limit int) ([]models.Property, error) {
	query := `SELECT` + propertyColumns + `
		FROM properties
		WHERE status = $1
		ORDER BY created_at DESC, code
		LIMIT $2`

	rows, err := r.db.Pool.Query(ctx, query, string(models.PropertyStatusPublished), clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list published properties: %w", err)
	}
	defer rows.Close()

	properties := []models.Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property row: %w", err)
		}
		properties = append(properties, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating property rows: %w", err)
	}
	return properties, nil
}

func (r *propertyRepository) FindByCode(ctx context.Context, code string) (*models.Property, error) {
	query := `SELECT` + propertyColumns + ` FROM properties WHERE code = $1`

	p, err := scanProperty(r.db.Pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query property %q: %w", code, err)
	}
	return p, nil
}
