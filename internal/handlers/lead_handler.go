package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	apierrors "github.com/stwalsh4118/estatedesk/internal/errors"
	"github.com/stwalsh4118/estatedesk/internal/middleware"
	"github.com/stwalsh4118/estatedesk/internal/models"
	"github.com/stwalsh4118/estatedesk/internal/services"
)

// LeadHandler handles lead-related HTTP requests.
type LeadHandler struct {
	service services.LeadService
}

// NewLeadHandler creates a new LeadHandler instance.
func NewLeadHandler(service services.LeadService) *LeadHandler {
	return &LeadHandler{
		service: service,
	}
}

// CreateLeadRequest is the body of an inbound inquiry.
type CreateLeadRequest struct {
	BudgetFit    *float64 `json:"budget_fit" binding:"omitempty,min=0,max=100"`
	Readiness    *float64 `json:"readiness" binding:"omitempty,min=0,max=100"`
	RegionMatch  *bool    `json:"region_match"`
	PropertyCode *string  `json:"property_code" binding:"omitempty,max=64"`
	Name         string   `json:"name" binding:"required,max=200"`
	Email        string   `json:"email" binding:"required,email"`
	Phone        string   `json:"phone" binding:"max=50"`
	Message      string   `json:"message" binding:"max=5000"`
	Source       string   `json:"source" binding:"max=50"`
}

// UpdateLeadRequest is a partial lead update; omitted fields are untouched.
// Clear lists nullable fields to reset, and an empty property_code unlinks
// the property.
type UpdateLeadRequest struct {
	Name         *string  `json:"name" binding:"omitempty,max=200"`
	Email        *string  `json:"email" binding:"omitempty,email"`
	Phone        *string  `json:"phone" binding:"omitempty,max=50"`
	Message      *string  `json:"message" binding:"omitempty,max=5000"`
	Source       *string  `json:"source" binding:"omitempty,max=50"`
	BudgetFit    *float64 `json:"budget_fit" binding:"omitempty,min=0,max=100"`
	Readiness    *float64 `json:"readiness" binding:"omitempty,min=0,max=100"`
	RegionMatch  *bool    `json:"region_match"`
	PropertyCode *string  `json:"property_code" binding:"omitempty,max=64"`
	Clear        []string `json:"clear" binding:"omitempty,max=4,dive,oneof=budget_fit readiness region_match property"`
}

// UpdateStatusRequest moves a lead to another funnel stage.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListLeadsRequest represents the query parameters for the lead listing.
type ListLeadsRequest struct {
	Status string `form:"status"`
	Source string `form:"source"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
}

// LeadResponse wraps a single scored lead.
type LeadResponse struct {
	Lead services.ScoredLead `json:"lead"`
}

// ListLeadsResponse represents the response for the lead listing.
type ListLeadsResponse struct {
	Leads []services.ScoredLead `json:"leads"`
	Count int                   `json:"count"`
}

// Create handles POST /api/v1/leads.
func (h *LeadHandler) Create(c *gin.Context) {
	var req CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid request body")
		return
	}

	lead := models.Lead{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Message:      req.Message,
		Source:       models.LeadSource(req.Source),
		BudgetFit:    req.BudgetFit,
		Readiness:    req.Readiness,
		RegionMatch:  req.RegionMatch,
		PropertyCode: req.PropertyCode,
	}

	created, err := h.service.Create(c.Request.Context(), lead)
	if err != nil {
		handleLeadError(c, err, "Failed to create lead")
		return
	}

	c.JSON(http.StatusCreated, LeadResponse{Lead: *created})
}

// List handles GET /api/v1/leads.
func (h *LeadHandler) List(c *gin.Context) {
	var req ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err, "Invalid query parameters")
		return
	}

	leads, err := h.service.List(c.Request.Context(), models.LeadFilter{
		Status: models.LeadStatus(req.Status),
		Source: models.LeadSource(req.Source),
		Limit:  req.Limit,
		Offset: req.Offset,
	})
	if err != nil {
		handleLeadError(c, err, "Failed to list leads")
		return
	}

	c.JSON(http.StatusOK, ListLeadsResponse{
		Leads: leads,
		Count: len(leads),
	})
}

// Get handles GET /api/v1/leads/:id.
func (h *LeadHandler) Get(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	lead, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handleLeadError(c, err, "Failed to load lead")
		return
	}

	c.JSON(http.StatusOK, LeadResponse{Lead: *lead})
}

// Update handles PATCH /api/v1/leads/:id.
func (h *LeadHandler) Update(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	var req UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid request body")
		return
	}

	update := models.LeadUpdate{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Message:      req.Message,
		BudgetFit:    req.BudgetFit,
		Readiness:    req.Readiness,
		RegionMatch:  req.RegionMatch,
		PropertyCode: req.PropertyCode,
	}
	if req.Source != nil {
		source := models.LeadSource(*req.Source)
		update.Source = &source
	}
	for _, field := range req.Clear {
		update.Clear(field)
	}

	lead, err := h.service.Update(c.Request.Context(), id, update)
	if err != nil {
		handleLeadError(c, err, "Failed to update lead")
		return
	}

	c.JSON(http.StatusOK, LeadResponse{Lead: *lead})
}

// UpdateStatus handles PATCH /api/v1/leads/:id/status.
func (h *LeadHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid request body")
		return
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Info("Moving lead", map[string]interface{}{
			"lead_id": id.String(),
			"status":  req.Status,
		})
	}

	lead, err := h.service.UpdateStatus(c.Request.Context(), id, models.LeadStatus(req.Status))
	if err != nil {
		handleLeadError(c, err, "Failed to update lead status")
		return
	}

	c.JSON(http.StatusOK, LeadResponse{Lead: *lead})
}

// Delete handles DELETE /api/v1/leads/:id.
func (h *LeadHandler) Delete(c *gin.Context) {
	id, ok := parseLeadID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		handleLeadError(c, err, "Failed to delete lead")
		return
	}

	c.Status(http.StatusNoContent)
}

// parseLeadID reads the :id path parameter. On failure it writes a 400 and
// returns false.
func parseLeadID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		apierrors.BadRequest(c, "Invalid lead id", map[string]interface{}{
			"id": raw,
		})
		return uuid.Nil, false
	}
	return id, true
}

// handleLeadError maps service errors onto HTTP responses.
func handleLeadError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, services.ErrLeadNotFound):
		apierrors.NotFound(c, "Lead not found")
	case errors.Is(err, services.ErrInvalidLead),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrPropertyNotFound):
		apierrors.BadRequest(c, err.Error(), nil)
	default:
		apierrors.InternalServerError(c, message, err)
	}
}

// respondBindError writes the response for a failed ShouldBind call.
func respondBindError(c *gin.Context, err error, message string) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		apierrors.ValidationError(c, validationErrors)
		return
	}
	apierrors.BadRequest(c, message, nil)
}
