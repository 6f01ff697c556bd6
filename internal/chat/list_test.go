package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetnearby/meetnearby/internal/geo"
	"github.com/meetnearby/meetnearby/internal/privacy"
	"github.com/meetnearby/meetnearby/internal/profile"
	"github.com/meetnearby/meetnearby/pkg/logger"
)

type stubStore struct {
	partners []profile.ChatPartner
}

func (s *stubStore) GetSummaries(ctx context.Context, excludeID string, limit int) ([]profile.Summary, error) {
	return nil, nil
}

func (s *stubStore) GetDetails(ctx context.Context, ids []string) ([]profile.Detail, error) {
	return nil, nil
}

func (s *stubStore) UpdateLocation(ctx context.Context, id string, coord geo.Coordinate) error {
	return nil
}

func (s *stubStore) UpdateOnlineStatus(ctx context.Context, id string, online bool) error {
	return nil
}

func (s *stubStore) GetPrivacy(ctx context.Context, id string) (privacy.Settings, error) {
	return privacy.Settings{}, nil
}

func (s *stubStore) UpdatePrivacy(ctx context.Context, id string, settings privacy.Settings) error {
	return nil
}

func (s *stubStore) FriendRequestsFor(ctx context.Context, id string) ([]profile.FriendRequest, error) {
	return nil, nil
}

func (s *stubStore) RecentChatPartners(ctx context.Context, id string, limit int) ([]profile.ChatPartner, error) {
	if limit < len(s.partners) {
		return s.partners[:limit], nil
	}
	return s.partners, nil
}

func TestList_RefreshAndPatch(t *testing.T) {
	store := &stubStore{
		partners: []profile.ChatPartner{
			{ID: "a", Name: "Ana", Online: false, LastMessageAt: time.Now()},
			{ID: "b", Name: "Ben", Online: true, LastMessageAt: time.Now().Add(-time.Hour)},
		},
	}
	list := NewList(store, "viewer", 5, logger.NewNop())

	require.NoError(t, list.Refresh(context.Background()))
	assert.Equal(t, []string{"a", "b"}, list.PartnerIDs())

	assert.True(t, list.PatchOnline("a", true))
	assert.False(t, list.PatchOnline("missing", true))

	partners := list.Partners()
	assert.True(t, partners[0].Online)
	assert.Equal(t, "Ana", partners[0].Name, "only the online flag is touched")
}

func TestList_LimitApplied(t *testing.T) {
	store := &stubStore{
		partners: []profile.ChatPartner{{ID: "a"}, {ID: "b"}, {ID: "c"}},
	}
	list := NewList(store, "viewer", 2, logger.NewNop())

	require.NoError(t, list.Refresh(context.Background()))
	assert.Len(t, list.Partners(), 2)
}
