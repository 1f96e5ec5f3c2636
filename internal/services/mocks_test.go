package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stwalsh4118/estatedesk/internal/models"
)

// MockLeadRepository is a mock implementation of LeadRepository for testing
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *models.Lead) (*models.Lead, error) {
	args := m.Called(ctx, lead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}

func (m *MockLeadRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}

func (m *MockLeadRepository) List(ctx context.Context, filter models.LeadFilter) ([]models.Lead, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Lead), args.Error(1)
}

func (m *MockLeadRepository) Update(ctx context.Context, id uuid.UUID, update models.LeadUpdate) (*models.Lead, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}

func (m *MockLeadRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.LeadStatus) (*models.Lead, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lead), args.Error(1)
}

func (m *MockLeadRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockLeadRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockLeadRepository) CountByStatus(ctx context.Context, status models.LeadStatus) (int, error) {
	args := m.Called(ctx, status)
	return args.Int(0), args.Error(1)
}

func (m *MockLeadRepository) ListActivitySince(ctx context.Context, since time.Time) ([]models.ActivityRecord, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ActivityRecord), args.Error(1)
}

func (m *MockLeadRepository) ListOutcomesBetween(ctx context.Context, since, until time.Time) ([]models.LeadOutcome, error) {
	args := m.Called(ctx, since, until)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LeadOutcome), args.Error(1)
}

// MockActivityRepository is a mock implementation of ActivityRepository for testing
type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) ListViewingsSince(ctx context.Context, since time.Time) ([]models.ActivityRecord, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ActivityRecord), args.Error(1)
}

func (m *MockActivityRepository) ListOffersSince(ctx context.Context, since time.Time) ([]models.ActivityRecord, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ActivityRecord), args.Error(1)
}

// MockPropertyRepository is a mock implementation of PropertyRepository for testing
type MockPropertyRepository struct {
	mock.Mock
}

func (m *MockPropertyRepository) ListPublished(ctx context.Context, limit int) ([]models.Property, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Property), args.Error(1)
}

func (m *MockPropertyRepository) FindByCode(ctx context.Context, code string) (*models.Property, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}
