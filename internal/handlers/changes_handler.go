package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/stwalsh4118/estatedesk/internal/errors"
	"github.com/stwalsh4118/estatedesk/internal/middleware"
	"github.com/stwalsh4118/estatedesk/internal/models"
	"github.com/stwalsh4118/estatedesk/internal/realtime"
)

// DefaultHeartbeat keeps idle proxies from closing the stream.
const DefaultHeartbeat = 25 * time.Second

// SSE event names
const (
	eventChange = "change"
	eventPing   = "ping"
)

var streamableTables = map[string]struct{}{
	models.TableLeads:      {},
	models.TableViewings:   {},
	models.TableOffers:     {},
	models.TableProperties: {},
}

// ChangesHandler streams row-change notifications to dashboard clients.
type ChangesHandler struct {
	hub       *realtime.Hub
	heartbeat time.Duration
}

// NewChangesHandler creates a new ChangesHandler. A nil hub makes the stream
// respond 503. A non-positive heartbeat uses DefaultHeartbeat.
func NewChangesHandler(hub *realtime.Hub, heartbeat time.Duration) *ChangesHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &ChangesHandler{hub: hub, heartbeat: heartbeat}
}

// Stream handles GET /api/v1/changes. ?table= may be repeated or
// comma-separated; without it every table is streamed. The stream ends when
// the client disconnects or the hub shuts down.
func (h *ChangesHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		apierrors.ServiceUnavailable(c, "Change feed is disabled")
		return
	}

	tables, unknown := parseTables(c.QueryArray("table"))
	if len(unknown) > 0 {
		apierrors.BadRequest(c, "Unknown table", map[string]interface{}{
			"table": unknown,
		})
		return
	}

	sub := h.hub.Subscribe(realtime.ForTables(tables...))
	defer sub.Close()

	log := middleware.GetLogger(c)
	if log != nil {
		log.Info("Change stream opened", map[string]interface{}{
			"tables": tables,
		})
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			if log != nil {
				log.Debug("Change stream closed by client", nil)
			}
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			c.SSEvent(eventChange, ev)
		case now := <-ticker.C:
			c.SSEvent(eventPing, now.UTC().Format(time.RFC3339))
		}
		c.Writer.Flush()
	}
}

// parseTables splits repeated and comma-separated table parameters.
func parseTables(values []string) (tables, unknown []string) {
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if _, ok := streamableTables[t]; !ok {
				unknown = append(unknown, t)
				continue
			}
			tables = append(tables, t)
		}
	}
	return tables, unknown
}
