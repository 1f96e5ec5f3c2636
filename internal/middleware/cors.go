package middleware

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// wildcardOrigin in CORS_ALLOWED_ORIGINS opens the API to any origin.
const wildcardOrigin = "*"

// CORS allows the dashboard origins to call the API and hold the change
// stream open.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	return cors.New(corsConfig(allowedOrigins))
}

func corsConfig(allowedOrigins []string) cors.Config {
	config := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
			RequestIDHeader,
			// EventSource reconnects send these
			"Cache-Control", "Last-Event-ID",
		},
		ExposeHeaders: []string{RequestIDHeader, "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}

	// Browsers reject credentialed responses carrying a wildcard origin
	if slices.Contains(allowedOrigins, wildcardOrigin) {
		config.AllowAllOrigins = true
		return config
	}

	config.AllowOrigins = allowedOrigins
	config.AllowCredentials = true
	return config
}
