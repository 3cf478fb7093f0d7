package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/practice-rules-api/pkg/errors"
	"github.com/noah-isme/practice-rules-api/pkg/jobs"
)

// JobTypeCacheInvalidate identifies deferred invalidation jobs.
const JobTypeCacheInvalidate = "cache.invalidate"

// CacheRepository is the key/value backend behind CacheService (Redis in production).
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// RulesCacheKey addresses the rule list of a saved rule set. Saved rule sets
// never change, so these entries only expire.
func RulesCacheKey(ruleSetID string) string {
	return fmt.Sprintf("rules:%s", ruleSetID)
}

// ActiveRuleSetCacheKey addresses the active rule set pointer of a practice.
func ActiveRuleSetCacheKey(practiceID string) string {
	return fmt.Sprintf("active:%s", practiceID)
}

// CacheService caches saved rule lists and active rule set pointers. A
// disabled service behaves as a permanent miss.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
	queue      *jobs.Queue
}

// NewCacheService constructs a CacheService; entries without a ttl live for defaultTTL.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// UseQueue routes failed invalidations to queue for retry.
func (s *CacheService) UseQueue(queue *jobs.Queue) {
	if s != nil {
		s.queue = queue
	}
}

// Enabled reports whether a backend is configured.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get decodes key into dest and reports a hit. Misses are not errors.
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

// Set writes value under key.
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

// InvalidateKeys deletes keys after a commit. A failed deletion is handed to
// the queue for retry.
func (s *CacheService) InvalidateKeys(ctx context.Context, keys ...string) {
	if !s.Enabled() || len(keys) == 0 {
		return
	}
	err := s.repo.Delete(ctx, keys...)
	if err == nil {
		s.metrics.RecordInvalidation("ok")
		return
	}
	s.logger.Warn("cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	if s.queue == nil {
		s.metrics.RecordInvalidation("dropped")
		return
	}
	job := jobs.Job{Type: JobTypeCacheInvalidate, Key: keys[0], Payload: append([]string(nil), keys...)}
	if qErr := s.queue.TryEnqueue(job); qErr != nil {
		s.logger.Error("cache invalidation not queued", zap.Strings("keys", keys), zap.Error(qErr))
		s.metrics.RecordInvalidation("dropped")
		return
	}
	s.metrics.RecordInvalidation("deferred")
}

// HandleInvalidation is the jobs.Handler for deferred invalidations.
func (s *CacheService) HandleInvalidation(ctx context.Context, job jobs.Job) error {
	keys, ok := job.Payload.([]string)
	if !ok {
		return fmt.Errorf("unexpected invalidation payload %T", job.Payload)
	}
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.Delete(ctx, keys...); err != nil {
		return err
	}
	s.metrics.RecordInvalidation("ok")
	return nil
}

// Invalidate deletes every key matching a glob pattern such as "active:*".
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
