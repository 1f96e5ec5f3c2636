package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/estatedesk/internal/cache"
	"github.com/stwalsh4118/estatedesk/internal/config"
	"github.com/stwalsh4118/estatedesk/internal/database"
	"github.com/stwalsh4118/estatedesk/internal/feed"
	"github.com/stwalsh4118/estatedesk/internal/handlers"
	"github.com/stwalsh4118/estatedesk/internal/logger"
	"github.com/stwalsh4118/estatedesk/internal/metrics"
	"github.com/stwalsh4118/estatedesk/internal/models"
	"github.com/stwalsh4118/estatedesk/internal/preferences"
	"github.com/stwalsh4118/estatedesk/internal/realtime"
	"github.com/stwalsh4118/estatedesk/internal/repository"
	"github.com/stwalsh4118/estatedesk/internal/scoring"
	"github.com/stwalsh4118/estatedesk/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.Server.Env)
	log.Info("Starting EstateDesk API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
	})

	// Cancelled on SIGINT or SIGTERM; background workers stop with it
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create database connection pool
	db, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", err, map[string]interface{}{
			"host": cfg.Database.Host,
			"port": cfg.Database.Port,
			"name": cfg.Database.Name,
		})
	}
	defer db.Close()

	log.Info("Database connection established", map[string]interface{}{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Name,
		"pool_min": cfg.Database.PoolMin,
		"pool_max": cfg.Database.PoolMax,
	})

	applied, err := db.Migrate(ctx)
	if err != nil {
		log.Fatal("Failed to apply migrations", err, nil)
	}
	if len(applied) > 0 {
		log.Info("Migrations applied", map[string]interface{}{
			"migrations": applied,
		})
	}

	scorer, err := scoring.New(scoring.Thresholds{
		Hot:  cfg.Scoring.HotThreshold,
		Warm: cfg.Scoring.WarmThreshold,
	})
	if err != nil {
		log.Fatal("Invalid scoring thresholds", err, nil)
	}

	m := metrics.New()

	healthDeps := []handlers.Dependency{{Name: "database", Pinger: db}}

	// The dashboard cache is optional; an unreachable Redis only costs latency
	var dashboardCache services.DashboardCache
	if cfg.Redis.Enabled() {
		redisCache := cache.NewDashboardCache(cache.NewRedisClient(cfg.Redis), cfg.Redis.CacheTTL)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn("Redis unreachable, dashboard cache disabled", map[string]interface{}{
				"addr":  cfg.Redis.Addr,
				"error": err.Error(),
			})
			_ = redisCache.Close()
		} else {
			dashboardCache = redisCache
			healthDeps = append(healthDeps, handlers.Dependency{Name: "cache", Pinger: redisCache, Optional: true})
			defer redisCache.Close()
			log.Info("Dashboard cache enabled", map[string]interface{}{
				"addr": cfg.Redis.Addr,
				"ttl":  cfg.Redis.CacheTTL.String(),
			})
		}
	}

	prefStore, err := preferences.New(cfg.Preferences)
	if err != nil {
		log.Fatal("Failed to create preference store", err, nil)
	}
	if err := prefStore.Init(ctx); err != nil {
		log.Fatal("Failed to initialize preference store", err, map[string]interface{}{
			"backend": cfg.Preferences.Backend,
			"path":    cfg.Preferences.Path,
		})
	}
	defer prefStore.Close()

	// Initialize repository and service layers
	leadRepo := repository.NewLeadRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	propertyRepo := repository.NewPropertyRepository(db)

	leadService := services.NewLeadService(leadRepo, propertyRepo, scorer, m, log)
	analyticsService := services.NewAnalyticsService(services.AnalyticsDeps{
		Leads:    leadRepo,
		Activity: activityRepo,
		Cache:    dashboardCache,
		Metrics:  m,
	}, log)
	propertyService := services.NewPropertyService(propertyRepo, log)

	// Start the change feed
	var hub *realtime.Hub
	if cfg.Realtime.Enabled {
		hub = realtime.NewHub(realtime.DefaultBufferSize, m)
		listener := realtime.NewPGListener(db.Pool, hub, cfg.Realtime.Channel, cfg.Realtime.RetryBackoff, log)
		go func() {
			_ = listener.Run(ctx)
		}()

		invalidations := hub.Subscribe(realtime.ForTables(models.TableLeads, models.TableViewings, models.TableOffers))
		go realtime.Consume(ctx, invalidations, analyticsService.HandleChange)
	}

	features := map[string]bool{
		"cache":       dashboardCache != nil,
		"change_feed": hub != nil,
	}
	feedChannel := feed.Channel{
		Title:       cfg.Feed.Title,
		Description: cfg.Feed.Description,
		BaseURL:     cfg.Feed.BaseURL,
	}

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(routerDeps{
		log:         log,
		metrics:     m,
		corsOrigins: cfg.CORS.Origins,
		health:      handlers.NewHealthHandler(cfg.Server.Env, features, healthDeps...),
		leads:       handlers.NewLeadHandler(leadService),
		scoring:     handlers.NewScoringHandler(leadService),
		analytics:   handlers.NewAnalyticsHandler(analyticsService),
		changes:     handlers.NewChangesHandler(hub, handlers.DefaultHeartbeat),
		preferences: handlers.NewPreferencesHandler(prefStore),
		feed:        handlers.NewFeedHandler(propertyService, feedChannel),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	<-ctx.Done()

	// Graceful shutdown
	log.Info("Shutting down server...", nil)

	// Open change streams never go idle, so end them before Shutdown waits
	if hub != nil {
		hub.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}
