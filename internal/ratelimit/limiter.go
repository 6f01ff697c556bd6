package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meetnearby/meetnearby/internal/config"
	"github.com/meetnearby/meetnearby/internal/storage"
)

// RateLimiter enforces per-user and per-IP request budgets. Limits are
// shared across instances through Redis, so a user hopping between
// server replicas cannot multiply their budget.
type RateLimiter interface {
	// AllowRefresh checks if a user may trigger a nearby refresh.
	AllowRefresh(ctx context.Context, userID string) (bool, error)

	// AllowLocationUpdate checks if a user may write a new location.
	AllowLocationUpdate(ctx context.Context, userID string) (bool, error)

	// AllowIPRequest checks if an IP may make a request at all.
	AllowIPRequest(ctx context.Context, ip string) (bool, error)

	// ResetLimits clears all rate limit counters for a user.
	ResetLimits(ctx context.Context, userID string) error
}

type Limiter struct {
	redis  storage.RedisClient
	config config.RateLimitConfig
}

func NewLimiter(redisClient storage.RedisClient, config config.RateLimitConfig) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: config,
	}
}

func (l *Limiter) AllowRefresh(ctx context.Context, userID string) (bool, error) {
	key := fmt.Sprintf("ratelimit:refresh:%s", userID)
	return l.checkSlidingWindow(ctx, key, l.config.RefreshPerMin, 60)
}

func (l *Limiter) AllowLocationUpdate(ctx context.Context, userID string) (bool, error) {
	key := fmt.Sprintf("ratelimit:location:%s", userID)
	return l.checkSlidingWindow(ctx, key, l.config.LocationPerMin, 60)
}

func (l *Limiter) AllowIPRequest(ctx context.Context, ip string) (bool, error) {
	key := fmt.Sprintf("ratelimit:ip:%s:requests", ip)
	return l.checkSlidingWindow(ctx, key, l.config.RequestsPerMinute, 60)
}

// checkSlidingWindow implements a sliding window rate limiter using sorted sets
func (l *Limiter) checkSlidingWindow(ctx context.Context, key string, maxCount int, windowSec int) (bool, error) {
	now := time.Now().Unix()
	windowStart := now - int64(windowSec)

	// Remove old entries outside the window
	if err := l.redis.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", windowStart)); err != nil {
		return false, fmt.Errorf("failed to clean old entries: %w", err)
	}

	// Count entries in current window
	count, err := l.redis.ZCard(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to count entries: %w", err)
	}

	if count >= int64(maxCount) {
		return false, nil
	}

	// Add new entry
	if err := l.redis.ZAdd(ctx, key, &redis.Z{
		Score:  float64(now),
		Member: fmt.Sprintf("%d", now),
	}); err != nil {
		return false, fmt.Errorf("failed to add entry: %w", err)
	}

	// Set expiration
	l.redis.Expire(ctx, key, time.Duration(windowSec)*time.Second)

	return true, nil
}

// ResetLimits resets all rate limits for a user (use with caution)
func (l *Limiter) ResetLimits(ctx context.Context, userID string) error {
	keys := []string{
		fmt.Sprintf("ratelimit:refresh:%s", userID),
		fmt.Sprintf("ratelimit:location:%s", userID),
	}

	for _, key := range keys {
		if err := l.redis.Del(ctx, key); err != nil {
			return err
		}
	}

	return nil
}
