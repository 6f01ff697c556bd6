package maplayer

import (
	"time"

	"github.com/meetnearby/meetnearby/internal/geo"
	"github.com/meetnearby/meetnearby/internal/nearby"
	"github.com/meetnearby/meetnearby/internal/privacy"
)

// LayerState is the per-layer lifecycle: nothing drawn, drawn with a
// fixed style, or drawn with cycling style parameters.
type LayerState int

const (
	StateAbsent LayerState = iota
	StatePresentStatic
	StatePresentAnimated
)

// RadiusLayer draws the viewer-selected radius disc around the viewer
// while location tracking is enabled.
type RadiusLayer struct {
	surface Surface
	state   LayerState
}

func NewRadiusLayer(surface Surface) *RadiusLayer {
	return &RadiusLayer{surface: surface}
}

// Redraw fully recomputes the layer: clear, then draw if the
// precondition holds. Calling it repeatedly with unchanged inputs leaves
// exactly one feature.
func (l *RadiusLayer) Redraw(center *geo.Coordinate, radiusKm float64, tracking bool) {
	l.surface.ClearLayer(LayerRadius)

	if !tracking || center == nil {
		l.state = StateAbsent
		return
	}

	l.surface.SetFeature(Feature{
		ID:       radiusFeatureID,
		Layer:    LayerRadius,
		Role:     RoleRadiusCircle,
		Center:   *center,
		RadiusKm: radiusKm,
		Style:    radiusCircleStyle(),
	})
	l.state = StatePresentStatic
}

func (l *RadiusLayer) State() LayerState {
	return l.state
}

// PrivacyLayer draws the fixed 5 km indicator disc around the viewer's
// true coordinate while obfuscation is enabled, pulsing its opacity.
type PrivacyLayer struct {
	surface    Surface
	oscillator *Oscillator
	minOpacity float64
	state      LayerState
}

func NewPrivacyLayer(surface Surface, cfg PulseConfig) *PrivacyLayer {
	l := &PrivacyLayer{
		surface:    surface,
		minOpacity: cfg.MinOpacity,
	}
	l.oscillator = NewOscillator(cfg.MinOpacity, cfg.MaxOpacity, cfg.Step, cfg.Interval, func(v float64) {
		surface.SetOpacity(LayerPrivacy, privacyFeatureID, v)
	})
	return l
}

type PulseConfig struct {
	MinOpacity float64
	MaxOpacity float64
	Step       float64
	Interval   time.Duration
}

// Redraw recomputes the layer. Disabling stops the pulse before the
// feature is cleared; clearing first would leak the animation loop.
func (l *PrivacyLayer) Redraw(trueCenter *geo.Coordinate, settings privacy.Settings) {
	if !settings.Enabled() || trueCenter == nil {
		l.oscillator.Stop()
		l.surface.ClearLayer(LayerPrivacy)
		l.state = StateAbsent
		return
	}

	l.surface.ClearLayer(LayerPrivacy)
	l.surface.SetFeature(Feature{
		ID:       privacyFeatureID,
		Layer:    LayerPrivacy,
		Role:     RolePrivacyCircle,
		Center:   *trueCenter,
		RadiusKm: privacy.CircleRadiusKm,
		Style:    Style{Color: colorCircleFill, Opacity: l.minOpacity},
	})
	l.oscillator.Start()
	l.state = StatePresentAnimated
}

func (l *PrivacyLayer) State() LayerState {
	return l.state
}

// Stop tears the layer down, cancelling the pulse first.
func (l *PrivacyLayer) Stop() {
	l.oscillator.Stop()
	l.surface.ClearLayer(LayerPrivacy)
	l.state = StateAbsent
}

func (l *PrivacyLayer) Pulsing() bool {
	return l.oscillator.Running()
}

// MarkerLayer draws the viewer and nearby users, collapsing markers into
// clusters when zoomed out past the threshold.
type MarkerLayer struct {
	surface          Surface
	viewerID         string
	clusterThreshold float64
	state            LayerState
}

func NewMarkerLayer(surface Surface, viewerID string, clusterThreshold float64) *MarkerLayer {
	return &MarkerLayer{
		surface:          surface,
		viewerID:         viewerID,
		clusterThreshold: clusterThreshold,
	}
}

// MarkerInput is everything one marker redraw needs.
type MarkerInput struct {
	Self       *geo.Coordinate
	Users      []nearby.User
	SelectedID string
	Moving     map[string]bool
	Request    func(otherID string) RequestStatus
}

// Redraw rebuilds the whole marker layer. Display coordinates are
// resolved once per redraw, so obfuscated markers hold still within a
// cycle and jitter only across cycles.
func (l *MarkerLayer) Redraw(in MarkerInput) {
	l.surface.ClearLayer(LayerMarkers)
	l.state = StateAbsent

	if in.Self != nil {
		l.surface.SetFeature(Feature{
			ID:     selfFeatureID,
			Layer:  LayerMarkers,
			Role:   RoleSelf,
			UserID: l.viewerID,
			Center: *in.Self,
			Style:  StyleForSelf(),
		})
		l.state = StatePresentStatic
	}

	markers := make([]placed, 0, len(in.Users))
	for _, u := range in.Users {
		coord := privacy.DisplayCoordinate(u.Location, u.Privacy())
		if coord == nil {
			continue
		}
		markers = append(markers, placed{user: u, coord: *coord})
	}

	if l.surface.Resolution() > l.clusterThreshold {
		l.drawClusters(markers)
	} else {
		l.drawMarkers(markers, in)
	}

	if len(markers) > 0 {
		l.state = StatePresentStatic
	}
}

func (l *MarkerLayer) drawMarkers(markers []placed, in MarkerInput) {
	for _, m := range markers {
		st := MarkerState{
			Selected:       m.user.ID == in.SelectedID,
			MovingToMeetup: in.Moving[m.user.ID],
		}
		if in.Request != nil {
			st.Request = in.Request(m.user.ID)
		}

		l.surface.SetFeature(Feature{
			ID:     "user:" + m.user.ID,
			Layer:  LayerMarkers,
			Role:   RoleOther,
			UserID: m.user.ID,
			Center: m.coord,
			Style:  StyleForUser(m.user, st),
		})
	}
}

func (l *MarkerLayer) drawClusters(markers []placed) {
	for _, c := range clusterPlaced(markers, l.surface.Resolution()) {
		if len(c.members) == 1 {
			only := c.members[0]
			l.surface.SetFeature(Feature{
				ID:     "user:" + only.user.ID,
				Layer:  LayerMarkers,
				Role:   RoleOther,
				UserID: only.user.ID,
				Center: only.coord,
				Style:  StyleForUser(only.user, MarkerState{}),
			})
			continue
		}

		l.surface.SetFeature(Feature{
			ID:     "cluster:" + c.key,
			Layer:  LayerMarkers,
			Role:   RoleCluster,
			Center: c.center,
			Style:  StyleForCluster(len(c.members), c.business),
		})
	}
}

func (l *MarkerLayer) State() LayerState {
	return l.state
}
