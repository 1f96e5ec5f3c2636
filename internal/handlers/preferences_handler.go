package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/stwalsh4118/estatedesk/internal/errors"
	"github.com/stwalsh4118/estatedesk/internal/models"
	"github.com/stwalsh4118/estatedesk/internal/preferences"
)

// PreferenceStore is the subset of preferences.Store the handler needs.
type PreferenceStore interface {
	Load(ctx context.Context, userID string) (models.Preferences, error)
	Update(ctx context.Context, userID string, fn func(*models.Preferences)) (models.Preferences, error)
}

// PreferencesHandler reads and writes per-user dashboard settings.
type PreferencesHandler struct {
	store PreferenceStore
}

// NewPreferencesHandler creates a new PreferencesHandler instance.
func NewPreferencesHandler(store PreferenceStore) *PreferencesHandler {
	return &PreferencesHandler{store: store}
}

// UpdatePreferencesRequest merges into the stored preferences; omitted fields
// keep their current value.
type UpdatePreferencesRequest struct {
	OnboardingDismissed *bool `json:"onboarding_dismissed"`
	DashboardRangeDays  *int  `json:"dashboard_range_days" binding:"omitempty,min=1,max=365"`
}

func (r UpdatePreferencesRequest) apply(prefs *models.Preferences) {
	if r.OnboardingDismissed != nil {
		prefs.OnboardingDismissed = *r.OnboardingDismissed
	}
	if r.DashboardRangeDays != nil {
		prefs.DashboardRangeDays = *r.DashboardRangeDays
	}
}

// Get handles GET /api/v1/preferences/:userId.
func (h *PreferencesHandler) Get(c *gin.Context) {
	userID := c.Param("userId")

	prefs, err := h.store.Load(c.Request.Context(), userID)
	if err != nil {
		handlePreferencesError(c, err, "Failed to load preferences")
		return
	}

	c.JSON(http.StatusOK, prefs)
}

// Update handles PUT /api/v1/preferences/:userId.
func (h *PreferencesHandler) Update(c *gin.Context) {
	userID := c.Param("userId")

	var req UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid request body")
		return
	}

	prefs, err := h.store.Update(c.Request.Context(), userID, req.apply)
	if err != nil {
		handlePreferencesError(c, err, "Failed to save preferences")
		return
	}

	c.JSON(http.StatusOK, prefs)
}

func handlePreferencesError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, preferences.ErrInvalidUserID),
		errors.Is(err, preferences.ErrInvalidPreferences):
		apierrors.BadRequest(c, err.Error(), nil)
	default:
		apierrors.InternalServerError(c, message, err)
	}
}
