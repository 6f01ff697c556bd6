package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/meetnearby/meetnearby/internal/profile"
	"github.com/meetnearby/meetnearby/internal/storage"
	"github.com/meetnearby/meetnearby/pkg/logger"
)

const (
	// Channel carries online-flag change notifications between processes.
	Channel = "presence:update"

	// hashKey holds the last broadcast state per user.
	hashKey = "presence:last"

	beaconTimeout = 2 * time.Second
)

// StatusEvent is one change notification on the presence channel.
type StatusEvent struct {
	ID     string `json:"id"`
	Online bool   `json:"online"`
}

// Entry is a stored presence record.
type Entry struct {
	ID       string    `json:"id"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"last_seen"`
}

// Writer persists and announces a user's online flag.
type Writer interface {
	SetOnline(ctx context.Context, id string, online bool) error
}

// Broadcaster writes the flag through to the profile row, mirrors it in a
// Redis hash, and publishes a change notification.
type Broadcaster struct {
	redis storage.RedisClient
	store profile.Store
	log   logger.Logger
}

func NewBroadcaster(redisClient storage.RedisClient, store profile.Store, log logger.Logger) *Broadcaster {
	return &Broadcaster{
		redis: redisClient,
		store: store,
		log:   log,
	}
}

func (b *Broadcaster) SetOnline(ctx context.Context, id string, online bool) error {
	if err := b.store.UpdateOnlineStatus(ctx, id, online); err != nil {
		return fmt.Errorf("failed to write online status: %w", err)
	}

	entry, _ := json.Marshal(Entry{ID: id, Online: online, LastSeen: time.Now()})
	if err := b.redis.HSet(ctx, hashKey, id, entry); err != nil {
		b.log.Warn("failed to mirror presence entry", "user", id, "error", err)
	}

	event, _ := json.Marshal(StatusEvent{ID: id, Online: online})
	if err := b.redis.Publish(ctx, Channel, event); err != nil {
		b.log.Warn("failed to publish presence event", "user", id, "error", err)
	}

	return nil
}

// MarkOfflineBeacon is the fire-and-forget path for page-unload beacons.
// Errors are swallowed; the caller has already navigated away.
func (b *Broadcaster) MarkOfflineBeacon(id string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), beaconTimeout)
		defer cancel()

		if err := b.SetOnline(ctx, id, false); err != nil {
			b.log.Debug("beacon offline write failed", "user", id, "error", err)
		}
	}()
}

// OnlineUsers lists users currently marked online, most recent first.
func (b *Broadcaster) OnlineUsers(ctx context.Context) ([]Entry, error) {
	raw, err := b.redis.HGetAll(ctx, hashKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read presence entries: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, data := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			continue
		}
		if e.Online {
			entries = append(entries, e)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastSeen.After(entries[j].LastSeen)
	})

	return entries, nil
}
