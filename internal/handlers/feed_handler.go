package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/stwalsh4118/estatedesk/internal/errors"
	"github.com/stwalsh4118/estatedesk/internal/feed"
	"github.com/stwalsh4118/estatedesk/internal/services"
)

// FeedHandler publishes the listing feed consumed by portals.
type FeedHandler struct {
	service services.PropertyService
	channel feed.Channel
}

// NewFeedHandler creates a new FeedHandler instance.
func NewFeedHandler(service services.PropertyService, channel feed.Channel) *FeedHandler {
	return &FeedHandler{service: service, channel: channel}
}

// FeedRequest represents the query parameters for the feed.
type FeedRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=200"`
}

// Properties handles GET /api/v1/feeds/properties.xml.
func (h *FeedHandler) Properties(c *gin.Context) {
	var req FeedRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err, "Invalid query parameters")
		return
	}

	properties, err := h.service.ListPublished(c.Request.Context(), req.Limit)
	if err != nil {
		apierrors.InternalServerError(c, "Failed to load listings", err)
		return
	}

	// Render to a buffer so an encoding failure can still become a 500
	var buf bytes.Buffer
	if err := feed.Render(&buf, h.channel, properties, time.Now()); err != nil {
		apierrors.InternalServerError(c, "Failed to render listing feed", err)
		return
	}

	c.Data(http.StatusOK, feed.ContentType, buf.Bytes())
}
