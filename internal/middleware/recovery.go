package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/estatedesk/internal/logger"
)

// Recovery turns a handler panic into a logged 500 with the standard error
// envelope. A panic after the response started (a change stream, say) can
// only abort the connection.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			requestLogger := GetLogger(c)
			if requestLogger == nil {
				requestLogger = log.WithRequestID(GetRequestID(c))
			}

			requestLogger.Error("Panic recovered", fmt.Errorf("panic: %v", rec), map[string]interface{}{
				"method":  c.Request.Method,
				"route":   c.FullPath(),
				"written": c.Writer.Written(),
				"stack":   string(debug.Stack()),
			})

			if c.Writer.Written() {
				c.Abort()
				return
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":       "INTERNAL_SERVER_ERROR",
					"message":    "An unexpected error occurred",
					"request_id": GetRequestID(c),
				},
			})
		}()

		c.Next()
	}
}
