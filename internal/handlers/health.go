package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/estatedesk/internal/middleware"
	"golang.org/x/sync/errgroup"
)

const (
	// APIVersion is reported by /api/v1/info.
	APIVersion = "0.2.0"
	// HealthCheckTimeout bounds each dependency ping.
	HealthCheckTimeout = 2 * time.Second
)

// Readiness states
const (
	StatusReady    = "ready"
	StatusDegraded = "degraded"
	StatusNotReady = "not_ready"

	CheckUp   = "up"
	CheckDown = "down"
)

// Pinger is anything the readiness check can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependency is one backing service behind the readiness check. An optional
// dependency that is down degrades readiness without failing it.
type Dependency struct {
	Name     string
	Pinger   Pinger
	Optional bool
}

// HealthHandler serves the liveness, readiness and info endpoints.
type HealthHandler struct {
	deps      []Dependency
	features  map[string]bool
	startTime time.Time
	env       string
}

// NewHealthHandler creates a HealthHandler. features is echoed by Info so
// the dashboard knows whether to open the change stream.
func NewHealthHandler(env string, features map[string]bool, deps ...Dependency) *HealthHandler {
	return &HealthHandler{
		deps:      deps,
		features:  features,
		startTime: time.Now(),
		env:       env,
	}
}

// HealthResponse is returned by the liveness check.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse reports each dependency as up or down.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// InfoResponse describes the running API.
type InfoResponse struct {
	Version     string          `json:"version"`
	Environment string          `json:"environment"`
	Uptime      string          `json:"uptime"`
	Features    map[string]bool `json:"features"`
}

// Health handles GET /health. It never touches a dependency.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy"})
}

// Ready handles GET /health/ready. Dependencies are pinged concurrently;
// any required one being down answers 503.
func (h *HealthHandler) Ready(c *gin.Context) {
	errs := make([]error, len(h.deps))

	var g errgroup.Group
	for i, dep := range h.deps {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(c.Request.Context(), HealthCheckTimeout)
			defer cancel()
			errs[i] = dep.Pinger.Ping(ctx)
			return nil
		})
	}
	_ = g.Wait()

	resp := ReadyResponse{Status: StatusReady, Checks: make(map[string]string, len(h.deps))}
	for i, dep := range h.deps {
		if errs[i] == nil {
			resp.Checks[dep.Name] = CheckUp
			continue
		}

		resp.Checks[dep.Name] = CheckDown
		if log := middleware.GetLogger(c); log != nil {
			log.Error("Dependency health check failed", errs[i], map[string]interface{}{
				"dependency": dep.Name,
				"optional":   dep.Optional,
			})
		}
		switch {
		case !dep.Optional:
			resp.Status = StatusNotReady
		case resp.Status == StatusReady:
			resp.Status = StatusDegraded
		}
	}

	status := http.StatusOK
	if resp.Status == StatusNotReady {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// Info handles GET /api/v1/info.
func (h *HealthHandler) Info(c *gin.Context) {
	features := h.features
	if features == nil {
		features = map[string]bool{}
	}

	c.JSON(http.StatusOK, InfoResponse{
		Version:     APIVersion,
		Environment: h.env,
		Uptime:      formatUptime(time.Since(h.startTime)),
		Features:    features,
	})
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}
