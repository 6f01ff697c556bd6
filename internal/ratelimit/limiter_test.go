package ratelimit

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetnearby/meetnearby/internal/config"
)

type fakeRedis struct {
	zsets map[string]map[string]float64
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{zsets: make(map[string]map[string]float64)}
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.zsets, key)
	}
	return nil
}

func (f *fakeRedis) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}

func (f *fakeRedis) ZAdd(ctx context.Context, key string, members ...*goredis.Z) error {
	set, ok := f.zsets[key]
	if !ok {
		set = make(map[string]float64)
		f.zsets[key] = set
	}
	for _, m := range members {
		set[m.Member.(string)] = m.Score
	}
	return nil
}

func (f *fakeRedis) ZCard(ctx context.Context, key string) (int64, error) {
	return int64(len(f.zsets[key])), nil
}

func (f *fakeRedis) ZRemRangeByScore(ctx context.Context, key, min, max string) error {
	return nil
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) error {
	return nil
}

func (f *fakeRedis) Subscribe(ctx context.Context, channels ...string) *goredis.PubSub {
	return nil
}

func (f *fakeRedis) HSet(ctx context.Context, key string, values ...interface{}) error { return nil }

func (f *fakeRedis) HGet(ctx context.Context, key, field string) (string, error) { return "", nil }

func (f *fakeRedis) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return nil, nil
}

func (f *fakeRedis) SAdd(ctx context.Context, key string, members ...interface{}) error { return nil }

func (f *fakeRedis) SRem(ctx context.Context, key string, members ...interface{}) error { return nil }

func (f *fakeRedis) SMembers(ctx context.Context, key string) ([]string, error) { return nil, nil }

func (f *fakeRedis) Ping(ctx context.Context) error { return nil }

func (f *fakeRedis) Close() error { return nil }

func testConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		RefreshPerMin:     2,
		LocationPerMin:    2,
		RequestsPerMinute: 3,
	}
}

func TestAllowRefresh_BlocksAtLimit(t *testing.T) {
	redis := newFakeRedis()
	limiter := NewLimiter(redis, testConfig())
	ctx := context.Background()

	// The fake counts distinct members, so give each entry its own key
	// by pre-seeding; the limiter itself writes one member per second.
	redis.zsets["ratelimit:refresh:u1"] = map[string]float64{"1": 1, "2": 2}

	allowed, err := limiter.AllowRefresh(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAllowRefresh_AllowsUnderLimit(t *testing.T) {
	limiter := NewLimiter(newFakeRedis(), testConfig())

	allowed, err := limiter.AllowRefresh(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAllowIPRequest_IndependentPerIP(t *testing.T) {
	redis := newFakeRedis()
	limiter := NewLimiter(redis, testConfig())
	ctx := context.Background()

	redis.zsets["ratelimit:ip:1.2.3.4:requests"] = map[string]float64{"1": 1, "2": 2, "3": 3}

	blocked, err := limiter.AllowIPRequest(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, blocked)

	allowed, err := limiter.AllowIPRequest(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestResetLimits_ClearsCounters(t *testing.T) {
	redis := newFakeRedis()
	limiter := NewLimiter(redis, testConfig())
	ctx := context.Background()

	redis.zsets["ratelimit:refresh:u1"] = map[string]float64{"1": 1, "2": 2}
	redis.zsets["ratelimit:location:u1"] = map[string]float64{"1": 1, "2": 2}

	require.NoError(t, limiter.ResetLimits(ctx, "u1"))

	allowed, err := limiter.AllowRefresh(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.AllowLocationUpdate(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, allowed)
}
