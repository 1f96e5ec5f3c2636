package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDKey is the gin context key holding the request ID.
	RequestIDKey = "request_id"
	// RequestIDHeader carries the request ID in both directions.
	RequestIDHeader = "X-Request-ID"

	maxRequestIDLength = 64
)

// RequestID tags every request with an ID. An upstream ID is kept when it
// is short and made of safe characters, otherwise a UUID replaces it so
// arbitrary client input never reaches the logs.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if !validRequestID(requestID) {
			requestID = uuid.NewString()
		}

		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == ':':
		default:
			return false
		}
	}
	return true
}

// GetRequestID returns the request ID, or "" outside the middleware chain.
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}
