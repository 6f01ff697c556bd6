package maplayer

import (
	"context"
	"sync"
	"time"

	"github.com/meetnearby/meetnearby/internal/geo"
	"github.com/meetnearby/meetnearby/internal/nearby"
	"github.com/meetnearby/meetnearby/internal/presence"
	"github.com/meetnearby/meetnearby/internal/privacy"
	"github.com/meetnearby/meetnearby/internal/profile"
	"github.com/meetnearby/meetnearby/pkg/logger"
)

// ViewConfig tunes one attached map view.
type ViewConfig struct {
	ViewerID    string
	Constrained bool

	RadiusKm         float64
	PageSize         int
	DetailLimit      int
	DetailTTL        time.Duration
	ThrottleWindow   time.Duration
	RefreshInterval  time.Duration
	ClosestCount     int
	ClusterThreshold float64

	PulseMinOpacity float64
	PulseMaxOpacity float64
	PulseStep       float64
	PulseInterval   time.Duration

	Presence presence.TrackerConfig
}

// Update is one message streamed down to the client.
type Update struct {
	Type     string        `json:"type"`
	Layer    Layer         `json:"layer,omitempty"`
	Features []Feature     `json:"features,omitempty"`
	Users    []nearby.User `json:"users,omitempty"`
	Level    string        `json:"level,omitempty"`
	Message  string        `json:"message,omitempty"`
}

// View is one viewer's live map session: the event bus, the surface
// mirror, the layer controllers, and the background workers that feed
// them. Created on attach, stopped on detach.
type View struct {
	cfg     ViewConfig
	bus     *Bus
	surface *MemSurface
	fetcher *nearby.Fetcher
	tracker *presence.Tracker
	chats   chatList
	store   profile.Store
	log     logger.Logger

	radiusLayer  *RadiusLayer
	privacyLayer *PrivacyLayer
	markerLayer  *MarkerLayer

	// Emit streams updates to the attached client. Set before Start.
	Emit func(Update)

	mu       sync.Mutex
	location *geo.Coordinate
	radiusKm float64
	privacy  privacy.Settings
	selected string
	moving   map[string]bool
	users    []nearby.User
	requests []profile.FriendRequest
	tracking bool

	cancel context.CancelFunc
	done   chan struct{}
}

// chatList is the slice of the chat package the view needs; declared as
// an interface so tests can stub partner churn.
type chatList interface {
	Refresh(ctx context.Context) error
	PartnerIDs() []string
	PatchOnline(id string, online bool) bool
}

func NewView(
	cfg ViewConfig,
	store profile.Store,
	writer presence.Writer,
	subscriber presence.Subscriber,
	chats chatList,
	log logger.Logger,
) *View {
	v := &View{
		cfg:      cfg,
		bus:      NewBus(),
		surface:  NewMemSurface(),
		store:    store,
		chats:    chats,
		log:      log,
		radiusKm: cfg.RadiusKm,
		moving:   make(map[string]bool),
		tracking: true,
		done:     make(chan struct{}),
	}

	cache := nearby.NewDetailCache(cfg.DetailTTL)
	v.fetcher = nearby.NewFetcher(
		store,
		cache,
		cfg.ViewerID,
		v.currentLocation,
		nearby.Config{
			PageSize:       cfg.PageSize,
			DetailLimit:    cfg.DetailLimit,
			ThrottleWindow: cfg.ThrottleWindow,
		},
		cfg.Constrained,
		v,
		log,
	)
	v.fetcher.OnReplace = func(users []nearby.User) {
		v.bus.Publish(ListReplaced{Users: users})
	}

	v.tracker = presence.NewTracker(
		cfg.ViewerID,
		writer,
		subscriber,
		v.relevantIDs,
		v.patchOnline,
		cfg.Presence,
		log,
	)

	v.radiusLayer = NewRadiusLayer(v.surface)
	v.privacyLayer = NewPrivacyLayer(v.surface, PulseConfig{
		MinOpacity: cfg.PulseMinOpacity,
		MaxOpacity: cfg.PulseMaxOpacity,
		Step:       cfg.PulseStep,
		Interval:   cfg.PulseInterval,
	})
	v.markerLayer = NewMarkerLayer(v.surface, cfg.ViewerID, cfg.ClusterThreshold)

	return v
}

// Start loads initial state and runs the event loop until Stop. Blocks;
// callers run it in its own goroutine.
func (v *View) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	v.mu.Lock()
	v.cancel = cancel
	v.mu.Unlock()

	defer close(v.done)

	if settings, err := v.store.GetPrivacy(ctx, v.cfg.ViewerID); err != nil {
		v.log.Warn("failed to load privacy settings", "user", v.cfg.ViewerID, "error", err)
	} else {
		v.mu.Lock()
		v.privacy = settings
		v.mu.Unlock()
	}

	if err := v.chats.Refresh(ctx); err != nil {
		v.log.Warn("failed to load chat partners", "user", v.cfg.ViewerID, "error", err)
	}

	events, unsubscribe := v.bus.Subscribe()
	defer unsubscribe()

	go v.tracker.Start(ctx)
	go func() {
		if _, err := v.fetcher.Refresh(ctx, false); err != nil {
			v.log.Debug("initial nearby refresh failed", "user", v.cfg.ViewerID, "error", err)
		}
	}()

	ticker := time.NewTicker(v.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			go func() {
				if _, err := v.fetcher.Refresh(ctx, false); err != nil {
					v.log.Debug("background nearby refresh failed", "user", v.cfg.ViewerID, "error", err)
				}
			}()
		case ev, ok := <-events:
			if !ok {
				v.privacyLayer.Stop()
				return
			}
			v.dispatch(ctx, ev)
		case <-ctx.Done():
			v.privacyLayer.Stop()
			return
		}
	}
}

func (v *View) dispatch(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case LocationChanged:
		v.mu.Lock()
		c := e.Coord
		v.location = &c
		v.mu.Unlock()
		v.redrawRadius()
		v.redrawPrivacy()
		v.redrawMarkers()

	case RadiusChanged:
		v.mu.Lock()
		v.radiusKm = e.RadiusKm
		v.mu.Unlock()
		v.redrawRadius()

	case ZoomChanged:
		v.surface.SetResolution(e.Resolution)
		v.redrawMarkers()

	case PrivacyChanged:
		v.mu.Lock()
		v.privacy = e.Settings
		v.mu.Unlock()
		v.redrawPrivacy()

	case ListReplaced:
		v.mu.Lock()
		v.users = e.Users
		v.mu.Unlock()
		v.refreshRequests(ctx)
		v.redrawMarkers()
		v.emit(Update{Type: "list", Users: e.Users})

	case SelectionChanged:
		v.mu.Lock()
		v.selected = e.UserID
		v.mu.Unlock()
		v.redrawMarkers()

	case MovementChanged:
		v.mu.Lock()
		if e.Moving {
			v.moving[e.UserID] = true
		} else {
			delete(v.moving, e.UserID)
		}
		v.mu.Unlock()
		v.redrawMarkers()

	case PresencePatched:
		v.redrawMarkers()

	case Notice:
		v.emit(Update{Type: "notice", Level: e.Level, Message: e.Message})
	}
}

func (v *View) redrawRadius() {
	v.mu.Lock()
	center, radius, tracking := v.location, v.radiusKm, v.tracking
	v.mu.Unlock()

	v.radiusLayer.Redraw(center, radius, tracking)
	v.emit(Update{Type: "layer", Layer: LayerRadius, Features: v.surface.Features(LayerRadius)})
}

func (v *View) redrawPrivacy() {
	v.mu.Lock()
	center, settings := v.location, v.privacy
	v.mu.Unlock()

	v.privacyLayer.Redraw(center, settings)
	v.emit(Update{Type: "layer", Layer: LayerPrivacy, Features: v.surface.Features(LayerPrivacy)})
}

func (v *View) redrawMarkers() {
	v.mu.Lock()
	in := MarkerInput{
		Self:       v.location,
		Users:      v.users,
		SelectedID: v.selected,
		Moving:     make(map[string]bool, len(v.moving)),
	}
	for id, m := range v.moving {
		in.Moving[id] = m
	}
	requests := v.requests
	v.mu.Unlock()

	in.Request = func(otherID string) RequestStatus {
		return RequestStatusFor(v.cfg.ViewerID, otherID, requests)
	}

	v.markerLayer.Redraw(in)
	v.emit(Update{Type: "layer", Layer: LayerMarkers, Features: v.surface.Features(LayerMarkers)})
}

func (v *View) refreshRequests(ctx context.Context) {
	requests, err := v.store.FriendRequestsFor(ctx, v.cfg.ViewerID)
	if err != nil {
		v.log.Debug("failed to load friend requests", "user", v.cfg.ViewerID, "error", err)
		return
	}
	v.mu.Lock()
	v.requests = requests
	v.mu.Unlock()
}

// relevantIDs is the tracked presence set: the closest nearby users plus
// the most recent chat partners, recomputed per tick.
func (v *View) relevantIDs(ctx context.Context) []string {
	if err := v.chats.Refresh(ctx); err != nil {
		v.log.Debug("chat partner refresh failed", "user", v.cfg.ViewerID, "error", err)
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, id := range v.fetcher.ClosestIDs(v.cfg.ClosestCount) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, id := range v.chats.PartnerIDs() {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

func (v *View) patchOnline(id string, online bool) {
	patched := v.fetcher.PatchOnline(id, online)
	if v.chats.PatchOnline(id, online) {
		patched = true
	}

	v.mu.Lock()
	for i := range v.users {
		if v.users[i].ID == id {
			v.users[i].Online = online
			patched = true
		}
	}
	v.mu.Unlock()

	if patched {
		v.bus.Publish(PresencePatched{UserID: id, Online: online})
	}
}

// Success implements the refresh-outcome notifier.
func (v *View) Success(msg string) {
	v.bus.Publish(Notice{Level: "success", Message: msg})
}

// Error implements the refresh-outcome notifier.
func (v *View) Error(msg string) {
	v.bus.Publish(Notice{Level: "error", Message: msg})
}

// SetManualLocation handles a map tap in manual mode. The update is
// optimistic: the local position moves and every layer redraws before the
// store write completes. A failed write surfaces a notice but does not
// roll the marker back; the next successful write reconverges.
func (v *View) SetManualLocation(coord geo.Coordinate) {
	v.bus.Publish(LocationChanged{Coord: coord})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := v.store.UpdateLocation(ctx, v.cfg.ViewerID, coord); err != nil {
			v.log.Warn("manual location write failed", "user", v.cfg.ViewerID, "error", err)
			v.bus.Publish(Notice{Level: "error", Message: "Could not save your location"})
		}
	}()
}

// UpdateGPSLocation handles a device position report. Ignored while the
// viewer has pinned a manual location.
func (v *View) UpdateGPSLocation(ctx context.Context, coord geo.Coordinate) error {
	v.mu.Lock()
	manual := v.privacy.ManualLocation
	v.mu.Unlock()
	if manual {
		return nil
	}

	if err := v.store.UpdateLocation(ctx, v.cfg.ViewerID, coord); err != nil {
		return err
	}
	v.bus.Publish(LocationChanged{Coord: coord})
	return nil
}

func (v *View) SetRadius(radiusKm float64) {
	v.bus.Publish(RadiusChanged{RadiusKm: radiusKm})
}

func (v *View) SetZoom(resolution float64) {
	v.bus.Publish(ZoomChanged{Resolution: resolution})
}

func (v *View) Select(userID string) {
	v.bus.Publish(SelectionChanged{UserID: userID})
}

func (v *View) SetMeetupMovement(userID string, moving bool) {
	v.bus.Publish(MovementChanged{UserID: userID, Moving: moving})
}

// SetPrivacy persists new privacy settings and redraws. Unlike manual
// location this write is synchronous; the privacy circle must not claim a
// state the store did not accept.
func (v *View) SetPrivacy(ctx context.Context, settings privacy.Settings) error {
	if err := v.store.UpdatePrivacy(ctx, v.cfg.ViewerID, settings); err != nil {
		return err
	}
	v.bus.Publish(PrivacyChanged{Settings: settings})
	return nil
}

// SetVisible forwards a tab-visibility transition to the presence tracker.
func (v *View) SetVisible(visible bool) {
	v.tracker.SetVisible(visible)
}

// RefreshNow is the user-initiated refresh path.
func (v *View) RefreshNow(ctx context.Context) {
	go func() {
		if _, err := v.fetcher.Refresh(ctx, true); err != nil {
			v.log.Debug("manual nearby refresh failed", "user", v.cfg.ViewerID, "error", err)
		}
	}()
}

// Users returns the current visible list.
func (v *View) Users() []nearby.User {
	return v.fetcher.List()
}

// InRadius returns the visible list filtered to the active radius.
func (v *View) InRadius() []nearby.User {
	v.mu.Lock()
	radius := v.radiusKm
	v.mu.Unlock()
	return nearby.InRange(v.fetcher.List(), radius)
}

// Surface exposes the mirror for tests and the websocket snapshot.
func (v *View) Surface() Surface {
	return v.surface
}

func (v *View) ViewerID() string {
	return v.cfg.ViewerID
}

func (v *View) currentLocation() *geo.Coordinate {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.location == nil {
		return nil
	}
	c := *v.location
	return &c
}

func (v *View) emit(u Update) {
	if v.Emit != nil {
		v.Emit(u)
	}
}

// Stop tears the view down: the event loop exits, the tracker writes
// offline, and the pulse stops. Blocks until the loop has returned.
func (v *View) Stop() {
	v.mu.Lock()
	cancel := v.cancel
	v.mu.Unlock()

	v.bus.Close()
	if cancel == nil {
		return
	}
	cancel()
	<-v.done
}
