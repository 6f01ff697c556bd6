package nearby

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetnearby/meetnearby/internal/geo"
	"github.com/meetnearby/meetnearby/internal/privacy"
	"github.com/meetnearby/meetnearby/internal/profile"
	"github.com/meetnearby/meetnearby/pkg/logger"
)

type fakeStore struct {
	summaries     []profile.Summary
	details       map[string]profile.Detail
	summaryCalls  int
	detailCalls   int
	detailIDs     [][]string
	summaryErr    error
	detailErr     error
}

func (f *fakeStore) GetSummaries(ctx context.Context, excludeID string, limit int) ([]profile.Summary, error) {
	f.summaryCalls++
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	return f.summaries, nil
}

func (f *fakeStore) GetDetails(ctx context.Context, ids []string) ([]profile.Detail, error) {
	f.detailCalls++
	f.detailIDs = append(f.detailIDs, ids)
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	var out []profile.Detail
	for _, id := range ids {
		if d, ok := f.details[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateLocation(ctx context.Context, id string, coord geo.Coordinate) error {
	return nil
}

func (f *fakeStore) UpdateOnlineStatus(ctx context.Context, id string, online bool) error {
	return nil
}

func (f *fakeStore) GetPrivacy(ctx context.Context, id string) (privacy.Settings, error) {
	return privacy.Settings{}, nil
}

func (f *fakeStore) UpdatePrivacy(ctx context.Context, id string, s privacy.Settings) error {
	return nil
}

func (f *fakeStore) FriendRequestsFor(ctx context.Context, id string) ([]profile.FriendRequest, error) {
	return nil, nil
}

func (f *fakeStore) RecentChatPartners(ctx context.Context, id string, limit int) ([]profile.ChatPartner, error) {
	return nil, nil
}

type fakeNotifier struct {
	successes []string
	errors    []string
}

func (n *fakeNotifier) Success(msg string) { n.successes = append(n.successes, msg) }
func (n *fakeNotifier) Error(msg string)   { n.errors = append(n.errors, msg) }

func viewerAtOrigin() func() *geo.Coordinate {
	return func() *geo.Coordinate { return &geo.Coordinate{Lat: 0, Lng: 0} }
}

func newTestFetcher(store profile.Store, cache *DetailCache, constrained bool) (*Fetcher, *fakeNotifier) {
	notifier := &fakeNotifier{}
	f := NewFetcher(store, cache, "viewer", viewerAtOrigin(), Config{
		PageSize:       50,
		DetailLimit:    5,
		ThrottleWindow: 15 * time.Second,
	}, constrained, notifier, logger.NewNop())
	return f, notifier
}

func TestRefresh_DistanceAnnotation(t *testing.T) {
	store := &fakeStore{
		summaries: []profile.Summary{
			{ID: "a", Name: "Ana", RawLocation: "(0.05,0)", Online: true},
		},
		details: map[string]profile.Detail{},
	}
	f, _ := newTestFetcher(store, NewDetailCache(10*time.Minute), false)

	list, err := f.Refresh(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// ~5.5 km east of the viewer: present in the raw list, excluded by a
	// 5 km presentation filter.
	assert.InDelta(t, 5.56, list[0].DistanceKm, 0.05)
	assert.Empty(t, InRange(list, 5))
	assert.Len(t, InRange(list, 6), 1)
}

func TestRefresh_MalformedLocationKeepsUser(t *testing.T) {
	store := &fakeStore{
		summaries: []profile.Summary{
			{ID: "a", Name: "Ana", RawLocation: "garbage", Online: true},
		},
	}
	f, _ := newTestFetcher(store, NewDetailCache(10*time.Minute), false)

	list, err := f.Refresh(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, list, 1)

	assert.Nil(t, list[0].Location)
	assert.True(t, math.IsInf(list[0].DistanceKm, 1))
	assert.Empty(t, InRange(list, 10), "unknown distance is never in range")
}

func TestRefresh_Throttle(t *testing.T) {
	store := &fakeStore{
		summaries: []profile.Summary{{ID: "a", Name: "Ana"}},
	}
	f, _ := newTestFetcher(store, NewDetailCache(10*time.Minute), false)

	base := time.Now()
	f.now = func() time.Time { return base }
	_, err := f.Refresh(context.Background(), false)
	require.NoError(t, err)

	// Second trigger one second later must be a no-op.
	f.now = func() time.Time { return base.Add(time.Second) }
	_, err = f.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, store.summaryCalls, "throttled trigger must not hit the backend")

	// Past the window it fetches again.
	f.now = func() time.Time { return base.Add(16 * time.Second) }
	_, err = f.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, store.summaryCalls)
}

func TestRefresh_DetailTTL(t *testing.T) {
	store := &fakeStore{
		summaries: []profile.Summary{
			{ID: "a", Name: "Ana", RawLocation: "(0.001,0)", Online: true},
		},
		details: map[string]profile.Detail{
			"a": {ID: "a", Bio: "hello", Age: 30},
		},
	}
	cache := NewDetailCache(600 * time.Second)
	f, _ := newTestFetcher(store, cache, false)
	f.cfg.ThrottleWindow = 0

	base := time.Now()
	f.now = func() time.Time { return base }
	list, err := f.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, store.detailCalls)
	assert.Equal(t, []string{"a"}, store.detailIDs[0])
	assert.Equal(t, "hello", list[0].Bio)

	// Within the TTL the cached entry is reused, not refetched.
	f.now = func() time.Time { return base.Add(599 * time.Second) }
	list, err = f.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, store.detailCalls, "live cache entry must not be refetched")
	assert.Equal(t, "hello", list[0].Bio, "cached detail fields still applied")

	// Past the TTL the entry is refetched.
	f.now = func() time.Time { return base.Add(601 * time.Second) }
	_, err = f.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, store.detailCalls)
	assert.Equal(t, []string{"a"}, store.detailIDs[1])
}

func TestRefresh_CacheNeverOverridesVolatileFields(t *testing.T) {
	store := &fakeStore{
		summaries: []profile.Summary{
			{ID: "a", Name: "Ana", RawLocation: "(0.001,0)", Online: true},
		},
		details: map[string]profile.Detail{
			"a": {ID: "a", Bio: "hello"},
		},
	}
	cache := NewDetailCache(600 * time.Second)
	f, _ := newTestFetcher(store, cache, false)
	f.cfg.ThrottleWindow = 0

	base := time.Now()
	f.now = func() time.Time { return base }
	_, err := f.Refresh(context.Background(), false)
	require.NoError(t, err)

	// The user goes offline and moves; the cached detail entry is still live.
	store.summaries[0].Online = false
	store.summaries[0].RawLocation = "(0.05,0)"

	f.now = func() time.Time { return base.Add(time.Minute) }
	list, err := f.Refresh(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, list, 1)

	assert.False(t, list[0].Online, "online flag must come from the fresh summary")
	assert.InDelta(t, 5.56, list[0].DistanceKm, 0.05, "distance must come from the fresh summary")
	assert.Equal(t, "hello", list[0].Bio, "detail fields come from the cache")
}

func TestRefresh_DetailLimitPicksClosest(t *testing.T) {
	store := &fakeStore{
		summaries: []profile.Summary{
			{ID: "far", RawLocation: "(1.0,0)"},
			{ID: "near", RawLocation: "(0.001,0)"},
			{ID: "mid", RawLocation: "(0.1,0)"},
			{ID: "nowhere", RawLocation: ""},
		},
		details: map[string]profile.Detail{},
	}
	f, _ := newTestFetcher(store, NewDetailCache(10*time.Minute), false)
	f.cfg.DetailLimit = 2

	_, err := f.Refresh(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, store.detailIDs, 1)
	assert.Equal(t, []string{"near", "mid"}, store.detailIDs[0])
}

func TestRefresh_FailureKeepsPreviousList(t *testing.T) {
	store := &fakeStore{
		summaries: []profile.Summary{{ID: "a", Name: "Ana"}},
	}
	f, notifier := newTestFetcher(store, NewDetailCache(10*time.Minute), false)
	f.cfg.ThrottleWindow = 0

	_, err := f.Refresh(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, f.List(), 1)

	store.summaryErr = errors.New("backend down")

	_, err = f.Refresh(context.Background(), false)
	require.Error(t, err)
	assert.Len(t, f.List(), 1, "failed cycle must leave the previous list")
	assert.Empty(t, notifier.errors, "background failures are logged only")

	_, err = f.Refresh(context.Background(), true)
	require.Error(t, err)
	assert.Len(t, notifier.errors, 1, "user-initiated failures surface a notice")
}

func TestRefresh_ConstrainedBackgroundNoticeOnce(t *testing.T) {
	store := &fakeStore{
		summaries: []profile.Summary{{ID: "a", Name: "Ana"}},
	}
	f, notifier := newTestFetcher(store, NewDetailCache(10*time.Minute), true)
	f.cfg.ThrottleWindow = 0

	for i := 0; i < 3; i++ {
		_, err := f.Refresh(context.Background(), false)
		require.NoError(t, err)
	}
	assert.Len(t, notifier.successes, 1, "background notice at most once per session")

	_, err := f.Refresh(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, notifier.successes, 2, "user-initiated refresh always notifies")
}

func TestRefresh_OnReplaceFires(t *testing.T) {
	store := &fakeStore{
		summaries: []profile.Summary{{ID: "a", Name: "Ana"}},
	}
	f, _ := newTestFetcher(store, NewDetailCache(10*time.Minute), false)

	var replaced [][]User
	f.OnReplace = func(users []User) { replaced = append(replaced, users) }

	_, err := f.Refresh(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, replaced, 1)
	assert.Equal(t, "a", replaced[0][0].ID)
}

func TestClosestIDs(t *testing.T) {
	f, _ := newTestFetcher(&fakeStore{}, NewDetailCache(time.Minute), false)
	f.list = []User{
		{ID: "far", DistanceKm: 9},
		{ID: "near", DistanceKm: 1},
		{ID: "lost", DistanceKm: math.Inf(1)},
		{ID: "mid", DistanceKm: 4},
	}

	assert.Equal(t, []string{"near", "mid"}, f.ClosestIDs(2))
	assert.Equal(t, []string{"near", "mid", "far"}, f.ClosestIDs(10),
		"unknown distances never count as closest")
}

func TestPatchOnline(t *testing.T) {
	f, _ := newTestFetcher(&fakeStore{}, NewDetailCache(time.Minute), false)
	f.list = []User{{ID: "a", Online: false, Bio: "hi"}}

	assert.True(t, f.PatchOnline("a", true))
	assert.False(t, f.PatchOnline("missing", true))

	list := f.List()
	assert.True(t, list[0].Online)
	assert.Equal(t, "hi", list[0].Bio, "only the online flag is touched")
}
