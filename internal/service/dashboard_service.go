package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/teacher-reports-api/internal/models"
)

type statusCounter interface {
	CountByStatus(ctx context.Context) (map[string]int, error)
	RecentSubmissions(ctx context.Context, limit int) ([]models.Submission, error)
}

type categoryCounter interface {
	CountByCategory(ctx context.Context) (map[string]int, error)
}

type activeInstructorCounter interface {
	CountActive(ctx context.Context) (int, error)
}

// DashboardService assembles the cached admin dashboard summary.
type DashboardService struct {
	statuses    statusCounter
	categories  categoryCounter
	instructors activeInstructorCounter
	cache       *CacheService
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewDashboardService constructs a dashboard service.
func NewDashboardService(
	statuses statusCounter,
	categories categoryCounter,
	instructors activeInstructorCounter,
	cache *CacheService,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		statuses:    statuses,
		categories:  categories,
		instructors: instructors,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

const dashboardCacheKey = "dashboard:summary"

// Summary builds the dashboard payload, served from cache when warm.
func (s *DashboardService) Summary(ctx context.Context) (models.DashboardSummary, error) {
	var cached models.DashboardSummary
	if hit, _ := s.cache.Get(ctx, dashboardCacheKey, &cached); hit {
		return cached, nil
	}

	byStatus, err := s.statuses.CountByStatus(ctx)
	if err != nil {
		return models.DashboardSummary{}, err
	}
	activityTotals, err := s.categories.CountByCategory(ctx)
	if err != nil {
		return models.DashboardSummary{}, err
	}
	activeInstructors, err := s.instructors.CountActive(ctx)
	if err != nil {
		return models.DashboardSummary{}, err
	}
	recent, err := s.statuses.RecentSubmissions(ctx, 5)
	if err != nil {
		return models.DashboardSummary{}, err
	}

	total := 0
	for _, count := range byStatus {
		total += count
	}
	summary := models.DashboardSummary{
		TotalSubmissions:  total,
		ByStatus:          byStatus,
		PendingReview:     byStatus[string(models.StatusPending)],
		ActiveInstructors: activeInstructors,
		ActivityTotals:    activityTotals,
		RecentSubmissions: recent,
		GeneratedAt:       time.Now().UTC(),
	}

	if err := s.cache.Set(ctx, dashboardCacheKey, summary, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache dashboard summary", zap.Error(err))
	}
	return summary, nil
}

// Invalidate drops the cached summary after a write.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, dashboardCacheKey); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}
