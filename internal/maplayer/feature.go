package maplayer

import (
	"github.com/meetnearby/meetnearby/internal/geo"
)

type Layer string

const (
	LayerMarkers Layer = "markers"
	LayerRadius  Layer = "radius"
	LayerPrivacy Layer = "privacy"
)

type Role string

const (
	RoleSelf          Role = "self"
	RoleOther         Role = "other"
	RoleCluster       Role = "cluster"
	RoleRadiusCircle  Role = "radius-circle"
	RolePrivacyCircle Role = "privacy-circle"
)

// Style is the resolved visual of one feature.
type Style struct {
	Color    string  `json:"color"`
	RadiusPx float64 `json:"radius_px,omitempty"`
	Label    string  `json:"label,omitempty"`
	Opacity  float64 `json:"opacity,omitempty"`
}

// Feature is an ephemeral per-render map object. Features carry no
// persistence; every redraw rebuilds them from scratch.
type Feature struct {
	ID       string         `json:"id"`
	Layer    Layer          `json:"layer"`
	Role     Role           `json:"role"`
	UserID   string         `json:"user_id,omitempty"`
	Center   geo.Coordinate `json:"center"`
	RadiusKm float64        `json:"radius_km,omitempty"`
	Style    Style          `json:"style"`
}

// Feature ids for the single-feature layers.
const (
	radiusFeatureID  = "radius-circle"
	privacyFeatureID = "privacy-circle"
	selfFeatureID    = "self"
)
