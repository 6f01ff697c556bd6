package chat

import (
	"context"
	"sync"

	"github.com/meetnearby/meetnearby/internal/profile"
	"github.com/meetnearby/meetnearby/pkg/logger"
)

// List is a viewer's recent chat partners. It exists to feed the presence
// relevant-id set and to receive in-place online-flag patches; message
// history itself is out of scope here.
type List struct {
	store    profile.Store
	viewerID string
	limit    int
	log      logger.Logger

	mu       sync.Mutex
	partners []profile.ChatPartner
}

func NewList(store profile.Store, viewerID string, limit int, log logger.Logger) *List {
	return &List{
		store:    store,
		viewerID: viewerID,
		limit:    limit,
		log:      log,
	}
}

func (l *List) Refresh(ctx context.Context) error {
	partners, err := l.store.RecentChatPartners(ctx, l.viewerID, l.limit)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.partners = partners
	l.mu.Unlock()
	return nil
}

func (l *List) Partners() []profile.ChatPartner {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]profile.ChatPartner, len(l.partners))
	copy(out, l.partners)
	return out
}

// PartnerIDs returns the ids of the most recent partners, newest first.
func (l *List) PartnerIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]string, 0, len(l.partners))
	for _, p := range l.partners {
		ids = append(ids, p.ID)
	}
	return ids
}

// PatchOnline updates only the online flag of a matching entry in place.
func (l *List) PatchOnline(id string, online bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.partners {
		if l.partners[i].ID == id {
			l.partners[i].Online = online
			return true
		}
	}
	return false
}
