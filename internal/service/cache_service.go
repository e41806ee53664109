package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

// Report cache key prefixes.
const (
	transcriptCachePrefix = "reports:transcript:"
	departmentCachePrefix = "reports:department:"
	generationPrefix      = "reports:gen:"
	departmentsGeneration = generationPrefix + "departments"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)
	DeleteByPattern(ctx context.Context, pattern string) error
}

// cacheInvalidator is the write-side view of the report cache used by mutating services.
type cacheInvalidator interface {
	InvalidateStudent(ctx context.Context, studentCode string)
	InvalidateDepartments(ctx context.Context)
}

// CacheService orchestrates report cache operations and related metrics.
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
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	duration := time.Since(start)
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			if s.metrics != nil {
				s.metrics.RecordCacheOperation(false, duration)
			}
			return false, nil
		}
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false, duration)
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(true, duration)
	}
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
	if s.metrics != nil {
		s.metrics.ObserveCacheWrite(time.Since(start))
	}
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

// Report keys carry the generation current when the read began. Writers bump
// the generation after committing, so a read that loaded pre-write rows can
// only fill a key no later read will look up.

// TranscriptKey returns the versioned cache key for a student's transcript.
// It returns "" when the generation cannot be read; callers skip the cache then.
func (s *CacheService) TranscriptKey(ctx context.Context, studentCode string) string {
	gen, ok := s.generation(ctx, generationPrefix+"transcript:"+studentCode)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s%s:v%d", transcriptCachePrefix, studentCode, gen)
}

// DepartmentKey returns the versioned cache key for a department's statistics.
func (s *CacheService) DepartmentKey(ctx context.Context, departmentCode string) string {
	gen, ok := s.generation(ctx, departmentsGeneration)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s%s:v%d", departmentCachePrefix, departmentCode, gen)
}

func (s *CacheService) generation(ctx context.Context, key string) (int64, bool) {
	if !s.Enabled() {
		return 0, false
	}
	var gen int64
	if err := s.repo.Get(ctx, key, &gen); err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return 0, true
		}
		s.logger.Warn("cache generation read failed", zap.String("key", key), zap.Error(err))
		return 0, false
	}
	return gen, true
}

// InvalidateStudent retires every cached transcript of one student. Failures are logged only.
func (s *CacheService) InvalidateStudent(ctx context.Context, studentCode string) {
	if !s.Enabled() {
		return
	}
	s.bump(ctx, generationPrefix+"transcript:"+studentCode)
	_ = s.Invalidate(ctx, transcriptCachePrefix+studentCode+":*")
}

// InvalidateDepartments retires every cached department statistic.
func (s *CacheService) InvalidateDepartments(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	s.bump(ctx, departmentsGeneration)
	_ = s.Invalidate(ctx, departmentCachePrefix+"*")
}

func (s *CacheService) bump(ctx context.Context, key string) {
	if _, err := s.repo.Incr(ctx, key); err != nil {
		s.logger.Warn("cache generation bump failed", zap.String("key", key), zap.Error(err))
	}
}
