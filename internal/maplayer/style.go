package maplayer

import (
	"strconv"

	"github.com/meetnearby/meetnearby/internal/nearby"
	"github.com/meetnearby/meetnearby/internal/profile"
)

// Marker palette.
const (
	colorSelf            = "#2563eb"
	colorDefault         = "#64748b"
	colorSelected        = "#7c3aed"
	colorPositive        = "#16a34a"
	colorPending         = "#f59e0b"
	colorPrivacyDot      = "#94a3b8"
	colorCluster         = "#0ea5e9"
	colorBusinessCluster = "#e11d48"
	colorCircleFill      = "#3b82f6"
)

const (
	markerRadiusPx     = 10
	privacyDotRadiusPx = 6
	clusterMinRadiusPx = 12
	clusterMaxRadiusPx = 32
	circleOpacity      = 0.15
)

// RequestStatus is the friendship/meetup request state between the viewer
// and another user, as the style resolvers see it.
type RequestStatus int

const (
	RequestNone RequestStatus = iota
	RequestPendingSent
	RequestPendingReceived
	RequestAccepted
)

// MarkerState is the transient per-render state feeding style resolution.
type MarkerState struct {
	Selected       bool
	MovingToMeetup bool
	Request        RequestStatus
}

// RequestStatusFor derives the viewer's request state toward otherID from
// the raw request list. The map layer only reads this input.
func RequestStatusFor(viewerID, otherID string, requests []profile.FriendRequest) RequestStatus {
	for _, r := range requests {
		switch {
		case r.SenderID == viewerID && r.ReceiverID == otherID:
			if r.Status == profile.StatusAccepted {
				return RequestAccepted
			}
			if r.Status == profile.StatusPending {
				return RequestPendingSent
			}
		case r.SenderID == otherID && r.ReceiverID == viewerID:
			if r.Status == profile.StatusAccepted {
				return RequestAccepted
			}
			if r.Status == profile.StatusPending {
				return RequestPendingReceived
			}
		}
	}
	return RequestNone
}

// StyleForSelf is the viewer's own marker: fixed color and size, never a
// text label.
func StyleForSelf() Style {
	return Style{Color: colorSelf, RadiusPx: markerRadiusPx}
}

// StyleForUser resolves another user's marker style. Pure function of the
// record and the transient state, no I/O.
func StyleForUser(u nearby.User, st MarkerState) Style {
	// A hidden position gets an undecorated dot: no name next to an
	// obfuscated coordinate.
	if u.HideExact {
		return Style{Color: colorPrivacyDot, RadiusPx: privacyDotRadiusPx}
	}

	s := Style{Color: colorDefault, RadiusPx: markerRadiusPx, Label: u.Name}

	switch {
	case st.MovingToMeetup || st.Request == RequestAccepted:
		s.Color = colorPositive
	case st.Request == RequestPendingSent || st.Request == RequestPendingReceived:
		s.Color = colorPending
	case st.Selected:
		s.Color = colorSelected
	}

	return s
}

// StyleForCluster scales the cluster disc with its member count,
// monotonic and clamped, labeled with the count.
func StyleForCluster(count int, business bool) Style {
	radius := float64(clusterMinRadiusPx) + 2*float64(count-1)
	if radius > clusterMaxRadiusPx {
		radius = clusterMaxRadiusPx
	}

	color := colorCluster
	if business {
		color = colorBusinessCluster
	}

	return Style{
		Color:    color,
		RadiusPx: radius,
		Label:    strconv.Itoa(count),
	}
}

func radiusCircleStyle() Style {
	return Style{Color: colorCircleFill, Opacity: circleOpacity}
}
