package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/estatedesk/internal/scoring"
)

// ScorePreviewer scores ad-hoc signals without persisting anything.
type ScorePreviewer interface {
	Preview(signals scoring.Signals) scoring.Breakdown
}

// ScoringHandler serves score previews for the lead intake form.
type ScoringHandler struct {
	previewer ScorePreviewer
}

// NewScoringHandler creates a new ScoringHandler instance.
func NewScoringHandler(previewer ScorePreviewer) *ScoringHandler {
	return &ScoringHandler{previewer: previewer}
}

// PreviewRequest carries the optional scoring signals.
type PreviewRequest struct {
	BudgetFit    *float64 `json:"budget_fit" binding:"omitempty,min=0,max=100"`
	Readiness    *float64 `json:"readiness" binding:"omitempty,min=0,max=100"`
	RegionMatch  *bool    `json:"region_match"`
	PropertyCode *string  `json:"property_code" binding:"omitempty,max=64"`
}

// Preview handles POST /api/v1/scoring/preview.
func (h *ScoringHandler) Preview(c *gin.Context) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Invalid request body")
		return
	}

	breakdown := h.previewer.Preview(scoring.Signals{
		BudgetFit:    req.BudgetFit,
		Readiness:    req.Readiness,
		RegionMatch:  req.RegionMatch,
		PropertyCode: req.PropertyCode,
	})

	c.JSON(http.StatusOK, breakdown)
}
