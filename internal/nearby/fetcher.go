package nearby

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/meetnearby/meetnearby/internal/geo"
	"github.com/meetnearby/meetnearby/internal/privacy"
	"github.com/meetnearby/meetnearby/internal/profile"
	"github.com/meetnearby/meetnearby/pkg/logger"
)

// User is one merged nearby-user record, rebuilt on every fetch cycle.
type User struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Online     bool             `json:"online"`
	Location   *geo.Coordinate  `json:"location,omitempty"`
	DistanceKm float64          `json:"distance_km"`
	HideExact  bool             `json:"hide_exact"`
	Business   bool             `json:"business,omitempty"`
	Bio        string           `json:"bio,omitempty"`
	Age        int              `json:"age,omitempty"`
	Gender     string           `json:"gender,omitempty"`
	Interests  []string         `json:"interests,omitempty"`
	AvatarRef  string           `json:"avatar_ref,omitempty"`
	HasDetail  bool             `json:"-"`
}

// Privacy returns the settings derived from the summary flag.
func (u User) Privacy() privacy.Settings {
	return privacy.Settings{HideExactLocation: u.HideExact}
}

// MarshalJSON emits an unknown distance (+Inf) as an absent field rather
// than tripping the encoder.
func (u User) MarshalJSON() ([]byte, error) {
	type alias User
	out := struct {
		alias
		DistanceKm *float64 `json:"distance_km,omitempty"`
	}{alias: alias(u)}
	if !math.IsInf(u.DistanceKm, 1) {
		out.DistanceKm = &u.DistanceKm
	}
	return json.Marshal(out)
}

// Notifier surfaces refresh outcomes to the viewer.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

type Config struct {
	PageSize       int
	DetailLimit    int
	ThrottleWindow time.Duration
}

// Fetcher produces the viewer's ranked, distance-annotated nearby list
// while throttling backend round-trips. One fetcher per viewer.
type Fetcher struct {
	store          profile.Store
	cache          *DetailCache
	log            logger.Logger
	notifier       Notifier
	viewerID       string
	viewerLocation func() *geo.Coordinate
	cfg            Config
	now            func() time.Time

	mu                    sync.Mutex
	lastFetch             time.Time
	list                  []User
	constrained           bool
	backgroundNoticeShown bool

	// OnReplace fires after the visible list has been replaced.
	OnReplace func(users []User)
}

func NewFetcher(
	store profile.Store,
	cache *DetailCache,
	viewerID string,
	viewerLocation func() *geo.Coordinate,
	cfg Config,
	constrained bool,
	notifier Notifier,
	log logger.Logger,
) *Fetcher {
	return &Fetcher{
		store:          store,
		cache:          cache,
		log:            log,
		notifier:       notifier,
		viewerID:       viewerID,
		viewerLocation: viewerLocation,
		cfg:            cfg,
		constrained:    constrained,
		now:            time.Now,
	}
}

// Refresh runs one fetch cycle unless the throttle window has not elapsed
// since the last one. Throttled triggers are complete no-ops, a hard rate
// limit rather than a cache check. A failed cycle leaves the previous list
// untouched.
func (f *Fetcher) Refresh(ctx context.Context, userInitiated bool) ([]User, error) {
	now := f.now()

	f.mu.Lock()
	if !f.lastFetch.IsZero() && now.Sub(f.lastFetch) < f.cfg.ThrottleWindow {
		list := f.snapshotLocked()
		f.mu.Unlock()
		return list, nil
	}
	f.lastFetch = now
	f.mu.Unlock()

	users, err := f.fetchCycle(ctx, now)
	if err != nil {
		f.log.Warn("nearby refresh failed", "viewer", f.viewerID, "error", err)
		if userInitiated {
			f.notifier.Error("Could not refresh nearby people")
		}
		return nil, err
	}

	// Last write wins: a slow earlier cycle completing after this one
	// simply gets overwritten by the next replacement.
	f.mu.Lock()
	f.list = users
	list := f.snapshotLocked()
	f.mu.Unlock()

	if f.OnReplace != nil {
		f.OnReplace(list)
	}

	f.notifyOutcome(len(users), userInitiated)

	return list, nil
}

func (f *Fetcher) fetchCycle(ctx context.Context, now time.Time) ([]User, error) {
	summaries, err := f.store.GetSummaries(ctx, f.viewerID, f.cfg.PageSize)
	if err != nil {
		return nil, fmt.Errorf("fetch summaries: %w", err)
	}

	viewer := f.viewerLocation()

	users := make([]User, 0, len(summaries))
	for _, sm := range summaries {
		loc := geo.ParseStoredLocation(sm.RawLocation)
		if loc == nil && sm.RawLocation != "" {
			f.log.Warn("unparseable stored location", "user", sm.ID, "raw", sm.RawLocation)
		}
		users = append(users, User{
			ID:         sm.ID,
			Name:       sm.Name,
			Online:     sm.Online,
			Location:   loc,
			DistanceKm: geo.DistanceKm(viewer, loc),
			HideExact:  sm.HideExact,
			Business:   sm.Business,
		})
	}

	needed := f.selectDetailCandidates(users, now)

	var details []profile.Detail
	if len(needed) > 0 {
		details, err = f.store.GetDetails(ctx, needed)
		if err != nil {
			return nil, fmt.Errorf("fetch details: %w", err)
		}
	}

	fresh := make(map[string]profile.Detail, len(details))
	for _, d := range details {
		fresh[d.ID] = d
	}

	for i := range users {
		if d, ok := fresh[users[i].ID]; ok {
			applyDetail(&users[i], d)
			f.cache.Put(users[i].ID, d, now)
			continue
		}
		// Cached details overlay the summary, but never the freshly
		// fetched distance and online flag.
		if d, ok := f.cache.Get(users[i].ID, now); ok {
			applyDetail(&users[i], d)
		}
	}

	return users, nil
}

// selectDetailCandidates picks the closest candidates whose cache entry is
// missing or expired, up to the detail limit.
func (f *Fetcher) selectDetailCandidates(users []User, now time.Time) []string {
	byDistance := make([]User, len(users))
	copy(byDistance, users)
	sort.SliceStable(byDistance, func(i, j int) bool {
		return byDistance[i].DistanceKm < byDistance[j].DistanceKm
	})

	var needed []string
	for _, u := range byDistance {
		if len(needed) >= f.cfg.DetailLimit {
			break
		}
		if !f.cache.Valid(u.ID, now) {
			needed = append(needed, u.ID)
		}
	}
	return needed
}

func (f *Fetcher) notifyOutcome(count int, userInitiated bool) {
	msg := fmt.Sprintf("Found %d people nearby", count)
	if userInitiated {
		f.notifier.Success(msg)
		return
	}

	if f.constrained {
		f.mu.Lock()
		shown := f.backgroundNoticeShown
		f.backgroundNoticeShown = true
		f.mu.Unlock()
		if shown {
			return
		}
	}
	f.notifier.Success(msg)
}

// List returns the current visible list.
func (f *Fetcher) List() []User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// ClosestIDs returns up to n ids with a known distance, closest first.
func (f *Fetcher) ClosestIDs(n int) []string {
	list := f.List()
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].DistanceKm < list[j].DistanceKm
	})

	ids := make([]string, 0, n)
	for _, u := range list {
		if len(ids) >= n || math.IsInf(u.DistanceKm, 1) {
			break
		}
		ids = append(ids, u.ID)
	}
	return ids
}

// PatchOnline updates only the online flag of a matching entry in place.
func (f *Fetcher) PatchOnline(id string, online bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.list {
		if f.list[i].ID == id {
			f.list[i].Online = online
			return true
		}
	}
	return false
}

func (f *Fetcher) snapshotLocked() []User {
	out := make([]User, len(f.list))
	copy(out, f.list)
	return out
}

func applyDetail(u *User, d profile.Detail) {
	u.Bio = d.Bio
	u.Age = d.Age
	u.Gender = d.Gender
	u.Interests = d.Interests
	u.AvatarRef = d.AvatarRef
	u.HasDetail = true
}

// InRange filters a list down to users within radiusKm. This is a
// presentation concern: the fetcher itself never drops far or unlocated
// users. Unknown distances (Inf) are always out of range. Any positive
// radius is accepted here; the 1-10 km bound is enforced at the API.
func InRange(users []User, radiusKm float64) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		if u.DistanceKm <= radiusKm {
			out = append(out, u)
		}
	}
	return out
}
