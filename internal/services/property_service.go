package services

import (
	"context"
	"fmt"

	"github.com/stwalsh4118/estatedesk/internal/logger"
	"github.com/stwalsh4118/estatedesk/internal/models"
	"github.com/stwalsh4118/estatedesk/internal/repository"
)

// Feed size limits
const (
	DefaultFeedLimit = 100
	MaxFeedLimit     = 200
)

// PropertyService exposes published listings.
type PropertyService interface {
	// ListPublished returns up to limit published listings; a non-positive
	// limit uses DefaultFeedLimit.
	ListPublished(ctx context.Context, limit int) ([]models.Property, error)
}

type propertyService struct {
	repo repository.PropertyRepository
	log  *logger.Logger
}

// NewPropertyService creates a new instance of PropertyService.
func NewPropertyService(repo repository.PropertyRepository, log *logger.Logger) PropertyService {
	return &propertyService{repo: repo, log: log}
}

func (s *propertyService) ListPublished(ctx context.Context, limit int) ([]models.Property, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	if limit > MaxFeedLimit {
		limit = MaxFeedLimit
	}

	properties, err := s.repo.ListPublished(ctx, limit)
	if err != nil {
		s.log.Error("Failed to list published properties", err, map[string]interface{}{
			"limit": limit,
		})
		return nil, fmt.Errorf("failed to list published properties: %w", err)
	}
	return properties, nil
}
