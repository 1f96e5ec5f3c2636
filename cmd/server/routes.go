package main

import (
	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/estatedesk/internal/handlers"
	"github.com/stwalsh4118/estatedesk/internal/logger"
	"github.com/stwalsh4118/estatedesk/internal/metrics"
	"github.com/stwalsh4118/estatedesk/internal/middleware"
)

// routerDeps collects everything the HTTP surface is built from.
type routerDeps struct {
	log         *logger.Logger
	metrics     *metrics.Metrics
	corsOrigins []string

	health      *handlers.HealthHandler
	leads       *handlers.LeadHandler
	scoring     *handlers.ScoringHandler
	analytics   *handlers.AnalyticsHandler
	changes     *handlers.ChangesHandler
	preferences *handlers.PreferencesHandler
	feed        *handlers.FeedHandler
}

// newRouter registers middleware and every route on a fresh engine.
func newRouter(d routerDeps) *gin.Engine {
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> Metrics -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(d.log))
	router.Use(middleware.Recovery(d.log))
	router.Use(middleware.Metrics(d.metrics))
	router.Use(middleware.CORS(d.corsOrigins))

	// Register health check routes
	router.GET("/health", d.health.Health)
	router.GET("/health/ready", d.health.Ready)
	router.GET("/metrics", gin.WrapH(d.metrics.Handler()))

	// Register API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/info", d.health.Info)

		leads := v1.Group("/leads")
		{
			leads.POST("", d.leads.Create)
			leads.GET("", d.leads.List)
			leads.GET("/:id", d.leads.Get)
			leads.PATCH("/:id", d.leads.Update)
			leads.PATCH("/:id/status", d.leads.UpdateStatus)
			leads.DELETE("/:id", d.leads.Delete)
		}

		v1.POST("/scoring/preview", d.scoring.Preview)

		analytics := v1.Group("/analytics")
		{
			analytics.GET("/pipeline", d.analytics.Pipeline)
			analytics.GET("/funnel", d.analytics.Funnel)
			analytics.GET("/sources", d.analytics.Sources)
			analytics.GET("/conversions", d.analytics.Conversions)
		}

		v1.GET("/changes", d.changes.Stream)

		preferences := v1.Group("/preferences")
		{
			preferences.GET("/:userId", d.preferences.Get)
			preferences.PUT("/:userId", d.preferences.Update)
		}

		v1.GET("/feeds/properties.xml", d.feed.Properties)
	}

	return router
}
