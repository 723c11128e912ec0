package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/academic-engine/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Counter(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
}

// CacheService orchestrates cache operations and related metrics. Cache failures never
// fail the caller: reads fall through to the store and writes are logged.
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
		defaultTTL = 5 * time.Minute
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
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) bool {
	if !s.Enabled() {
		return false
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}
	return err == nil
}

// Set stores the value in cache using the default TTL when ttl is not positive.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if !s.Enabled() {
		return
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
}

// Invalidate removes the given keys.
func (s *CacheService) Invalidate(ctx context.Context, keys ...string) {
	if !s.Enabled() {
		return
	}
	if err := s.repo.Delete(ctx, keys...); err != nil {
		s.logger.Warn("cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// Generation returns the current value of a generation counter. ok is false when the cache is
// disabled or unreachable, in which case callers should bypass it.
func (s *CacheService) Generation(ctx context.Context, key string) (gen int64, ok bool) {
	if !s.Enabled() {
		return 0, false
	}
	gen, err := s.repo.Counter(ctx, key)
	if err != nil {
		s.logger.Warn("cache generation read failed", zap.String("key", key), zap.Error(err))
		return 0, false
	}
	return gen, true
}

// Bump advances a generation counter so entries stored under older generations are never read
// again. They expire with their TTL.
func (s *CacheService) Bump(ctx context.Context, key string) {
	if !s.Enabled() {
		return
	}
	if _, err := s.repo.Incr(ctx, key); err != nil {
		s.logger.Warn("cache generation bump failed", zap.String("key", key), zap.Error(err))
	}
}

// Section rosters are keyed by a per-section generation. A reader that loaded the roster before
// a write committed stores it under the generation it started with, which the write has
// already retired.
func sectionGradesGenerationKey(sectionID string) string {
	return "section_grades:" + sectionID + ":gen"
}

func sectionGradesCacheKey(sectionID string, gen int64) string {
	return fmt.Sprintf("section_grades:%s:v%d", sectionID, gen)
}
