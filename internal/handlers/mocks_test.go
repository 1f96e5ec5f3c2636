package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stwalsh4118/estatedesk/internal/logger"
	"github.com/stwalsh4118/estatedesk/internal/middleware"
	"github.com/stwalsh4118/estatedesk/internal/models"
	"github.com/stwalsh4118/estatedesk/internal/scoring"
	"github.com/stwalsh4118/estatedesk/internal/services"
)

// MockLeadService is a mock implementation of services.LeadService for testing
type MockLeadService struct {
	mock.Mock
}

func (m *MockLeadService) Create(ctx context.Context, lead models.Lead) (*services.ScoredLead, error) {
	args := m.Called(ctx, lead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ScoredLead), args.Error(1)
}

func (m *MockLeadService) Get(ctx context.Context, id uuid.UUID) (*services.ScoredLead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ScoredLead), args.Error(1)
}

func (m *MockLeadService) List(ctx context.Context, filter models.LeadFilter) ([]services.ScoredLead, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.ScoredLead), args.Error(1)
}

func (m *MockLeadService) Update(ctx context.Context, id uuid.UUID, update models.LeadUpdate) (*services.ScoredLead, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ScoredLead), args.Error(1)
}

func (m *MockLeadService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.LeadStatus) (*services.ScoredLead, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ScoredLead), args.Error(1)
}

func (m *MockLeadService) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLeadService) Preview(signals scoring.Signals) scoring.Breakdown {
	args := m.Called(signals)
	return args.Get(0).(scoring.Breakdown)
}

// MockAnalyticsService is a mock implementation of services.AnalyticsService for testing
type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) Pipeline(ctx context.Context, days int) ([]models.TimeSeriesBucket, error) {
	args := m.Called(ctx, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TimeSeriesBucket), args.Error(1)
}

func (m *MockAnalyticsService) Funnel(ctx context.Context) ([]models.FunnelStage, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FunnelStage), args.Error(1)
}

func (m *MockAnalyticsService) Sources(ctx context.Context, days int) ([]models.SourceAttribution, error) {
	args := m.Called(ctx, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SourceAttribution), args.Error(1)
}

func (m *MockAnalyticsService) Conversions(ctx context.Context) (models.ConversionSummary, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.ConversionSummary), args.Error(1)
}

func (m *MockAnalyticsService) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockAnalyticsService) HandleChange(ctx context.Context, ev models.ChangeEvent) {
	m.Called(ctx, ev)
}

// MockPropertyService is a mock implementation of services.PropertyService for testing
type MockPropertyService struct {
	mock.Mock
}

func (m *MockPropertyService) ListPublished(ctx context.Context, limit int) ([]models.Property, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Property), args.Error(1)
}

// MockPreferenceStore is a mock implementation of PreferenceStore for testing
type MockPreferenceStore struct {
	mock.Mock
}

func (m *MockPreferenceStore) Load(ctx context.Context, userID string) (models.Preferences, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.Preferences), args.Error(1)
}

// Update runs fn against the preferences given to Return and hands back
// the result. fn itself is not matched.
func (m *MockPreferenceStore) Update(ctx context.Context, userID string, fn func(*models.Preferences)) (models.Preferences, error) {
	args := m.Called(ctx, userID)
	if err := args.Error(1); err != nil {
		return models.Preferences{}, err
	}
	prefs := args.Get(0).(models.Preferences)
	fn(&prefs)
	return prefs, nil
}

// newTestRouter creates a gin engine with the request-scoped middleware the
// error helpers rely on.
func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger.New("test")))
	return router
}

func floatPtr(v float64) *float64 { return &v }

func boolPtr(v bool) *bool { return &v }

func strPtr(v string) *string { return &v }

func intPtr(v int) *int { return &v }
