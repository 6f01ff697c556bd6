package websocket

import (
	"github.com/meetnearby/meetnearby/internal/privacy"
)

// Incoming message types. Each maps to one view operation.
const (
	MessageTypeTap        = "tap"
	MessageTypeGPS        = "gps"
	MessageTypeRadius     = "radius"
	MessageTypePrivacy    = "privacy"
	MessageTypeZoom       = "zoom"
	MessageTypeSelect     = "select"
	MessageTypeVisibility = "visibility"
	MessageTypeMovement   = "movement"
	MessageTypeRefresh    = "refresh"
	MessageTypePing       = "ping"
)

// IncomingMessage is a client command. Fields beyond Type are read only
// by the matching command.
type IncomingMessage struct {
	Type       string            `json:"type"`
	Lat        float64           `json:"lat,omitempty"`
	Lng        float64           `json:"lng,omitempty"`
	RadiusKm   float64           `json:"radius_km,omitempty"`
	Resolution float64           `json:"resolution,omitempty"`
	UserID     string            `json:"user_id,omitempty"`
	Visible    bool              `json:"visible"`
	Moving     bool              `json:"moving"`
	Privacy    *privacy.Settings `json:"privacy,omitempty"`
}
