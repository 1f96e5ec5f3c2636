package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stwalsh4118/estatedesk/internal/analytics"
	"github.com/stwalsh4118/estatedesk/internal/cache"
	"github.com/stwalsh4118/estatedesk/internal/logger"
	"github.com/stwalsh4118/estatedesk/internal/metrics"
	"github.com/stwalsh4118/estatedesk/internal/models"
	"github.com/stwalsh4118/estatedesk/internal/repository"
	"golang.org/x/sync/errgroup"
)

// Dashboard window validation constants
const (
	MinRangeDays = 1
	MaxRangeDays = 365
)

// Cached dashboard views
const (
	ViewPipeline    = "pipeline"
	ViewFunnel      = "funnel"
	ViewSources     = "sources"
	ViewConversions = "conversions"
)

// ErrInvalidRange is returned when a dashboard window is out of bounds.
var ErrInvalidRange = errors.New("days must be between 1 and 365")

// DashboardCache is the read-through cache used for dashboard views.
// Get returns cache.ErrMiss for absent keys.
type DashboardCache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context) (int, error)
}

// AnalyticsService computes the back-office dashboard views.
type AnalyticsService interface {
	// Pipeline returns one bucket per day for the days before today.
	// Returns ErrInvalidRange unless 1 <= days <= 365.
	Pipeline(ctx context.Context, days int) ([]models.TimeSeriesBucket, error)

	// Funnel returns the non-empty funnel stages in fixed stage order.
	Funnel(ctx context.Context) ([]models.FunnelStage, error)

	// Sources attributes leads created in the window to their source.
	Sources(ctx context.Context, days int) ([]models.SourceAttribution, error)

	// Conversions summarises won/lost/open leads.
	Conversions(ctx context.Context) (models.ConversionSummary, error)

	// Invalidate drops every cached view.
	Invalidate(ctx context.Context) error

	// HandleChange reacts to a row change by dropping cached views.
	HandleChange(ctx context.Context, ev models.ChangeEvent)
}

// AnalyticsDeps wires an AnalyticsService. Cache, Metrics and Now are optional.
type AnalyticsDeps struct {
	Leads    repository.LeadRepository
	Activity repository.ActivityRepository
	Cache    DashboardCache
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

type analyticsService struct {
	leads    repository.LeadRepository
	activity repository.ActivityRepository
	cache    DashboardCache
	metrics  *metrics.Metrics
	now      func() time.Time
	log      *logger.Logger
}

// NewAnalyticsService creates a new instance of AnalyticsService.
func NewAnalyticsService(deps AnalyticsDeps, log *logger.Logger) AnalyticsService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &analyticsService{
		leads:    deps.Leads,
		activity: deps.Activity,
		cache:    deps.Cache,
		metrics:  deps.Metrics,
		now:      now,
		log:      log.WithComponent("analytics"),
	}
}

func validateRange(days int) error {
	if days < MinRangeDays || days > MaxRangeDays {
		return fmt.Errorf("%w: got %d", ErrInvalidRange, days)
	}
	return nil
}

func (s *analyticsService) Pipeline(ctx context.Context, days int) ([]models.TimeSeriesBucket, error) {
	if err := validateRange(days); err != nil {
		return nil, err
	}

	start := analytics.WindowStart(s.now().UTC(), days)
	key := cache.Key(ViewPipeline, days, start.Format(analytics.DateKeyLayout))

	return readThrough(ctx, s, ViewPipeline, key, func(ctx context.Context) ([]models.TimeSeriesBucket, error) {
		var leads, viewings, offers []models.ActivityRecord

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			leads, err = s.leads.ListActivitySince(gctx, start)
			return err
		})
		g.Go(func() error {
			var err error
			viewings, err = s.activity.ListViewingsSince(gctx, start)
			return err
		})
		g.Go(func() error {
			var err error
			offers, err = s.activity.ListOffersSince(gctx, start)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		return analytics.BuildPipelineSeries(start, days, leads, viewings, offers), nil
	})
}

func (s *analyticsService) Funnel(ctx context.Context) ([]models.FunnelStage, error) {
	return readThrough(ctx, s, ViewFunnel, cache.Key(ViewFunnel), func(ctx context.Context) ([]models.FunnelStage, error) {
		total, err := s.leads.Count(ctx)
		if err != nil {
			return nil, err
		}
		return analytics.FunnelByStage(ctx, s.leads, total)
	})
}

func (s *analyticsService) Sources(ctx context.Context, days int) ([]models.SourceAttribution, error) {
	if err := validateRange(days); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	start, end := analytics.WindowStart(now, days), analytics.WindowEnd(now)
	key := cache.Key(ViewSources, days, start.Format(analytics.DateKeyLayout))

	return readThrough(ctx, s, ViewSources, key, func(ctx context.Context) ([]models.SourceAttribution, error) {
		outcomes, err := s.leads.ListOutcomesBetween(ctx, start, end)
		if err != nil {
			return nil, err
		}
		return analytics.AttributeSources(outcomes), nil
	})
}

func (s *analyticsService) Conversions(ctx context.Context) (models.ConversionSummary, error) {
	return readThrough(ctx, s, ViewConversions, cache.Key(ViewConversions), func(ctx context.Context) (models.ConversionSummary, error) {
		counts, err := analytics.StatusCounts(ctx, s.leads)
		if err != nil {
			return models.ConversionSummary{}, err
		}
		return analytics.SummarizeConversions(counts), nil
	})
}

func (s *analyticsService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	removed, err := s.cache.Invalidate(ctx)
	if err != nil {
		s.log.Error("Failed to invalidate dashboard cache", err, nil)
		return fmt.Errorf("failed to invalidate dashboard cache: %w", err)
	}
	s.log.Debug("Dashboard cache invalidated", map[string]interface{}{
		"removed": removed,
	})
	return nil
}

func (s *analyticsService) HandleChange(ctx context.Context, ev models.ChangeEvent) {
	switch ev.Table {
	case models.TableLeads, models.TableViewings, models.TableOffers:
	default:
		return
	}
	// Errors are already logged; entries expire on their own
	_ = s.Invalidate(ctx)
}

// readThrough serves view from the cache when possible, otherwise loads it and
// stores the result. Cache failures degrade to a direct load; load failures
// are returned whole.
func readThrough[T any](
	ctx context.Context,
	s *analyticsService,
	view, key string,
	load func(context.Context) (T, error),
) (T, error) {
	if s.cache != nil {
		var cached T
		err := s.cache.Get(ctx, key, &cached)
		switch {
		case err == nil:
			s.metrics.ObserveCache(view, metrics.CacheHit)
			return cached, nil
		case !errors.Is(err, cache.ErrMiss):
			s.log.Warn("Dashboard cache read failed", map[string]interface{}{
				"view":  view,
				"error": err.Error(),
			})
		}
		s.metrics.ObserveCache(view, metrics.CacheMiss)
	}

	result, err := load(ctx)
	if err != nil {
		var zero T
		s.log.Error("Failed to load dashboard view", err, map[string]interface{}{
			"view": view,
		})
		return zero, fmt.Errorf("failed to load %s: %w", view, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result); err != nil {
			s.log.Warn("Dashboard cache write failed", map[string]interface{}{
				"view":  view,
				"error": err.Error(),
			})
		}
	}
	return result, nil
}
