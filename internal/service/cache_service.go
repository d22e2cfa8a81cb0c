package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/recurrence"
	"github.com/EduCollab-AI/EduCollab-Backend/pkg/cache"
	appErrors "github.com/EduCollab-AI/EduCollab-Backend/pkg/errors"
)

const (
	classScheduleCachePrefix = "class-schedules"
	summaryCachePrefix       = "summary"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService orchestrates cache operations and related metrics.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	s.metrics.RecordCacheOperation(true, duration)
	return true, nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate removes cached values for the provided pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// InvalidateStudent drops every projection and summary cached for the student.
func (s *CacheService) InvalidateStudent(ctx context.Context, studentID string) error {
	if err := s.Invalidate(ctx, cache.Key(classScheduleCachePrefix, studentID, "*")); err != nil {
		return err
	}
	return s.Invalidate(ctx, cache.Key(summaryCachePrefix, studentID, "*"))
}

// InvalidateProjections drops every cached projection and summary. Exceptions
// change a schedule shared by all students of the course.
func (s *CacheService) InvalidateProjections(ctx context.Context) error {
	if err := s.Invalidate(ctx, cache.Key(classScheduleCachePrefix, "*")); err != nil {
		return err
	}
	return s.Invalidate(ctx, cache.Key(summaryCachePrefix, "*"))
}

// ClassScheduleCacheKey keys a projection by student, window and cap.
func ClassScheduleCacheKey(studentID string, start, end time.Time, maxCount *int) string {
	limit := "all"
	if maxCount != nil {
		limit = strconv.Itoa(*maxCount)
	}
	return cache.Key(classScheduleCachePrefix, studentID, recurrence.FormatDate(start), recurrence.FormatDate(end), limit)
}

// SummaryCacheKey keys a summary by student and day.
func SummaryCacheKey(studentID string, day time.Time) string {
	return cache.Key(summaryCachePrefix, studentID, recurrence.FormatDate(day))
}
