package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/estatedesk/internal/logger"
)

const loggerKey = "logger"

// healthRoutes are scraped every few seconds; successful hits log at debug.
var healthRoutes = map[string]bool{
	"/health":       true,
	"/health/ready": true,
	"/metrics":      true,
}

// Logger stores a request-scoped logger in the context and writes one
// structured line per request once the handler returns.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestLogger := log.WithRequestID(GetRequestID(c))
		c.Set(loggerKey, requestLogger)

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		fields := map[string]interface{}{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       route,
			"status":      status,
			"duration_ms": time.Since(start).Milliseconds(),
			"bytes":       c.Writer.Size(),
			"ip":          c.ClientIP(),
		}
		if c.Request.URL.RawQuery != "" {
			fields["query"] = c.Request.URL.RawQuery
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch {
		case status >= 500:
			var err error
			if last := c.Errors.Last(); last != nil {
				err = last
			}
			requestLogger.Error("Request failed", err, fields)
		case status >= 400:
			requestLogger.Warn("Request rejected", fields)
		case isEventStream(c):
			requestLogger.Info("Change stream closed", fields)
		case healthRoutes[route]:
			requestLogger.Debug("Health check served", fields)
		default:
			requestLogger.Info("Request completed", fields)
		}
	}
}

func isEventStream(c *gin.Context) bool {
	return strings.HasPrefix(c.Writer.Header().Get("Content-Type"), "text/event-stream")
}

// GetLogger returns the request-scoped logger, or nil outside the
// middleware chain.
func GetLogger(c *gin.Context) *logger.Logger {
	if log, ok := c.Get(loggerKey); ok {
		if l, ok := log.(*logger.Logger); ok {
			return l
		}
	}
	return nil
}
