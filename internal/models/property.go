package models

import (
	"time"

	"github.com/google/uuid"
)

// PropertyStatus is the publication state of a listing.
type PropertyStatus string

const (
	PropertyStatusDraft     PropertyStatus = "draft"
	PropertyStatusPublished PropertyStatus = "published"
	PropertyStatusSold      PropertyStatus = "sold"
	PropertyStatusArchived  PropertyStatus = "archived"
)

// Property represents a listing managed in the back-office.
// Nullable columns use pointers to distinguish between zero values and NULL.
type Property struct {
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Description *string        `json:"description,omitempty"`
	Bedrooms    *int           `json:"bedrooms,omitempty"`
	Bathrooms   *int           `json:"bathrooms,omitempty"`
	AreaSqm     *float64       `json:"area_sqm,omitempty"`
	Code        string         `json:"code"`
	Title       string         `json:"title"`
	Currency    string         `json:"currency"`
	City        string         `json:"city"`
	Region      string         `json:"region"`
	Status      PropertyStatus `json:"status"`
	Price       float64        `json:"price"`
	ID          uuid.UUID      `json:"id"`
}
