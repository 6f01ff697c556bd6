package profile

import (
	"context"
	"time"

	"github.com/meetnearby/meetnearby/internal/geo"
	"github.com/meetnearby/meetnearby/internal/privacy"
)

// Friend request states as stored.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// Summary is the lightweight projection fetched for every nearby candidate.
// HideExact rides along so display coordinates can be resolved for all
// candidates, not only the detail-enriched subset.
type Summary struct {
	ID          string
	Name        string
	RawLocation string
	Online      bool
	HideExact   bool
	Business    bool
}

// Detail is the heavier projection fetched only for the closest candidates.
type Detail struct {
	ID        string
	Bio       string
	Age       int
	Gender    string
	Interests []string
	AvatarRef string
}

type FriendRequest struct {
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Status     string `json:"status"`
}

type ChatPartner struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Online        bool      `json:"online"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// Store is the narrow profile-store contract the map core consumes.
type Store interface {
	// GetSummaries returns up to limit candidate summaries excluding the
	// viewer, online users first.
	GetSummaries(ctx context.Context, excludeID string, limit int) ([]Summary, error)

	// GetDetails batch-fetches detail fields for the given ids in one query.
	GetDetails(ctx context.Context, ids []string) ([]Detail, error)

	UpdateLocation(ctx context.Context, id string, coord geo.Coordinate) error
	UpdateOnlineStatus(ctx context.Context, id string, online bool) error

	GetPrivacy(ctx context.Context, id string) (privacy.Settings, error)
	UpdatePrivacy(ctx context.Context, id string, settings privacy.Settings) error

	// FriendRequestsFor returns all requests the user sent or received.
	// The map layer only reads this to color markers.
	FriendRequestsFor(ctx context.Context, id string) ([]FriendRequest, error)

	// RecentChatPartners returns the most recently active distinct chat
	// partners, newest first.
	RecentChatPartners(ctx context.Context, id string, limit int) ([]ChatPartner, error)
}
