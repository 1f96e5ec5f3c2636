package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/stwalsh4118/estatedesk/internal/errors"
	"github.com/stwalsh4118/estatedesk/internal/models"
	"github.com/stwalsh4118/estatedesk/internal/services"
)

// Window used when the caller does not pass ?days=
const defaultRangeDays = models.DefaultDashboardRangeDays

// AnalyticsHandler serves the back-office dashboard views.
type AnalyticsHandler struct {
	service services.AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler instance.
func NewAnalyticsHandler(service services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// RangeRequest represents the ?days= window parameter. Range checks live in
// the service so the CLI gets the same errors.
type RangeRequest struct {
	Days int `form:"days"`
}

// PipelineResponse is the daily activity series.
type PipelineResponse struct {
	Buckets []models.TimeSeriesBucket `json:"buckets"`
	Days    int                       `json:"days"`
}

// FunnelResponse lists the non-empty funnel stages in order.
type FunnelResponse struct {
	Stages []models.FunnelStage `json:"stages"`
}

// SourcesResponse is the per-source attribution for the window.
type SourcesResponse struct {
	Sources []models.SourceAttribution `json:"sources"`
	Days    int                        `json:"days"`
}

// Pipeline handles GET /api/v1/analytics/pipeline.
func (h *AnalyticsHandler) Pipeline(c *gin.Context) {
	days, ok := bindRange(c)
	if !ok {
		return
	}

	buckets, err := h.service.Pipeline(c.Request.Context(), days)
	if err != nil {
		handleAnalyticsError(c, err, "Failed to load pipeline")
		return
	}

	c.JSON(http.StatusOK, PipelineResponse{Buckets: buckets, Days: days})
}

// Funnel handles GET /api/v1/analytics/funnel.
func (h *AnalyticsHandler) Funnel(c *gin.Context) {
	stages, err := h.service.Funnel(c.Request.Context())
	if err != nil {
		handleAnalyticsError(c, err, "Failed to load funnel")
		return
	}

	if stages == nil {
		stages = []models.FunnelStage{}
	}
	c.JSON(http.StatusOK, FunnelResponse{Stages: stages})
}

// Sources handles GET /api/v1/analytics/sources.
func (h *AnalyticsHandler) Sources(c *gin.Context) {
	days, ok := bindRange(c)
	if !ok {
		return
	}

	sources, err := h.service.Sources(c.Request.Context(), days)
	if err != nil {
		handleAnalyticsError(c, err, "Failed to load lead sources")
		return
	}

	if sources == nil {
		sources = []models.SourceAttribution{}
	}
	c.JSON(http.StatusOK, SourcesResponse{Sources: sources, Days: days})
}

// Conversions handles GET /api/v1/analytics/conversions.
func (h *AnalyticsHandler) Conversions(c *gin.Context) {
	summary, err := h.service.Conversions(c.Request.Context())
	if err != nil {
		handleAnalyticsError(c, err, "Failed to load conversions")
		return
	}

	c.JSON(http.StatusOK, summary)
}

// bindRange reads ?days=, defaulting to the standard dashboard window.
func bindRange(c *gin.Context) (int, bool) {
	var req RangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err, "Invalid query parameters")
		return 0, false
	}
	if _, present := c.GetQuery("days"); !present {
		req.Days = defaultRangeDays
	}
	return req.Days, true
}

func handleAnalyticsError(c *gin.Context, err error, message string) {
	if errors.Is(err, services.ErrInvalidRange) {
		apierrors.BadRequest(c, err.Error(), nil)
		return
	}
	apierrors.InternalServerError(c, message, err)
}
