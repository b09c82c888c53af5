package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/fixora/servicebay/internal/infra/logger"
)

// Service counts requests per key in fixed windows
type Service interface {
	// Allow increments the counter for key and reports whether it is still within limit
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Config configures rate limiting
type Config struct {
	Enabled  bool
	Requests int
	Window   time.Duration
}

// redisService implements Service with Redis INCR/EXPIRE
type redisService struct {
	client redis.UniversalClient
	logger logger.Logger
}

// NewService returns a Redis-backed limiter, or a noop one when disabled or client is nil
func NewService(config Config, client redis.UniversalClient, log logger.Logger) Service {
	ctx := context.Background()
	if !config.Enabled || client == nil {
		log.Info(ctx, "Rate limiting disabled", nil)
		return &noopService{}
	}

	log.Info(ctx, "Rate limiting service initialized", map[string]interface{}{
		"requests": config.Requests,
		"window":   config.Window.String(),
	})

	return &redisService{
		client: client,
		logger: log,
	}
}

func (s *redisService) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	// first hit opens the window
	if count == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	allowed := count <= int64(limit)

	s.logger.Debug(ctx, "Rate limit check", map[string]interface{}{
		"key":     key,
		"current": count,
		"limit":   limit,
		"allowed": allowed,
	})

	return allowed, nil
}

// noopService allows everything
type noopService struct{}

func (n *noopService) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return true, nil
}
