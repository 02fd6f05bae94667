package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

var errCacheDisabled = errors.New("cache disabled")

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService wraps the cache store with an enable switch so callers
// never branch on configuration themselves.
type CacheService struct {
	store   cacheStore
	enabled bool
	ttl     time.Duration
	logger  *zap.Logger
	metrics *MetricsService
}

// WithMetrics attaches hit/miss instrumentation.
func (s *CacheService) WithMetrics(m *MetricsService) *CacheService {
	s.metrics = m
	return s
}

// NewCacheService constructs CacheService. A nil store disables caching.
func NewCacheService(store cacheStore, enabled bool, ttl time.Duration, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		enabled = false
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CacheService{store: store, enabled: enabled, ttl: ttl, logger: logger}
}

// Enabled reports whether caching is active.
func (s *CacheService) Enabled() bool { return s.enabled }

// Get loads a cached value into dest. Returns the store's miss error
// when absent or when caching is disabled.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	if !s.enabled {
		return errCacheDisabled
	}
	err := s.store.Get(ctx, key, dest)
	s.metrics.RecordCacheLookup(err == nil)
	return err
}

// Set stores a value under the configured TTL. Failures are logged,
// never surfaced.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) {
	if !s.enabled {
		return
	}
	if err := s.store.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops all keys matching the pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) {
	if !s.enabled {
		return
	}
	if err := s.store.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
	}
}
