package nearby

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/meetnearby/meetnearby/internal/profile"
)

func TestDetailCache_TTL(t *testing.T) {
	cache := NewDetailCache(600 * time.Second)
	base := time.Now()

	cache.Put("a", profile.Detail{ID: "a", Bio: "hi"}, base)

	d, ok := cache.Get("a", base.Add(599*time.Second))
	assert.True(t, ok)
	assert.Equal(t, "hi", d.Bio)

	_, ok = cache.Get("a", base.Add(601*time.Second))
	assert.False(t, ok, "entry older than the TTL must not be reused")

	_, ok = cache.Get("missing", base)
	assert.False(t, ok)
}

func TestDetailCache_Prune(t *testing.T) {
	cache := NewDetailCache(time.Minute)
	base := time.Now()

	cache.Put("old", profile.Detail{ID: "old"}, base.Add(-2*time.Minute))
	cache.Put("live", profile.Detail{ID: "live"}, base)

	cache.Prune(base)

	assert.Equal(t, 1, cache.Len())
	assert.True(t, cache.Valid("live", base))
	assert.False(t, cache.Valid("old", base))
}
