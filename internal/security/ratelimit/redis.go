package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/bugtracker/internal/reliability/circuitbreaker"
)

// Counter is the subset of the Redis client the limiter needs
type Counter interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RedisLimiter is a fixed window limiter shared by every server instance.
// When Redis keeps failing the breaker opens and requests are let through.
type RedisLimiter struct {
	counter Counter
	breaker *circuitbreaker.CircuitBreaker
	maxReqs int
	window  time.Duration
	prefix  string
	logger  *slog.Logger
	now     func() time.Time
}

func NewRedisLimiter(counter Counter, breaker *circuitbreaker.CircuitBreaker, maxRequests int, window time.Duration, logger *slog.Logger) *RedisLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second)
	}
	return &RedisLimiter{
		counter: counter,
		breaker: breaker,
		maxReqs: maxRequests,
		window:  window,
		prefix:  "bugtracker:ratelimit:",
		logger:  logger,
		now:     time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return true, nil
	}
	return l.take(ctx, key, l.maxReqs, l.window)
}

func (l *RedisLimiter) AllowStrict(ctx context.Context, key string, maxReqs int, window time.Duration) (bool, error) {
	return l.take(ctx, "strict:"+key, maxReqs, window)
}

func (l *RedisLimiter) take(ctx context.Context, key string, maxReqs int, window time.Duration) (bool, error) {
	if !l.breaker.AllowRequest() {
		return true, nil
	}

	slot := l.now().UnixNano() / int64(window)
	count, err := l.counter.IncrWithTTL(ctx, fmt.Sprintf("%s%s:%d", l.prefix, key, slot), window)
	if err != nil {
		l.breaker.RecordFailure()
		l.logger.Warn("rate limit store unavailable, allowing request",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return true, nil
	}
	l.breaker.RecordSuccess()
	return count <= int64(maxReqs), nil
}
