package services

import (
	"context"
	"time"

	"swiftride/pkg/cache"
	"swiftride/pkg/logger"
)

// CacheService is the slice of redis the repositories and the presence
// register rely on. A nil CacheService is legal everywhere; every cache path
// degrades to the database.
type CacheService interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
}

type cacheService struct {
	redis  *cache.RedisCache
	logger *logger.Logger
}

func NewCacheService(redis *cache.RedisCache, logger *logger.Logger) CacheService {
	return &cacheService{
		redis:  redis,
		logger: logger,
	}
}

func (s *cacheService) Get(ctx context.Context, key string, dest interface{}) error {
	return s.redis.Get(ctx, key, dest)
}

func (s *cacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	err := s.redis.Set(ctx, key, value, expiration)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Cache set failed")
	}
	return err
}

func (s *cacheService) Delete(ctx context.Context, keys ...string) error {
	err := s.redis.Delete(ctx, keys...)
	if err != nil {
		s.logger.WithError(err).Warn("Cache delete failed")
	}
	return err
}

func (s *cacheService) Keys(ctx context.Context, pattern string) ([]string, error) {
	return s.redis.Keys(ctx, pattern)
}
