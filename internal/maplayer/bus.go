package maplayer

import (
	"sync"

	"github.com/meetnearby/meetnearby/internal/geo"
	"github.com/meetnearby/meetnearby/internal/nearby"
	"github.com/meetnearby/meetnearby/internal/privacy"
)

// Event is a discrete map-state change delivered to layer handlers.
// Handlers are idempotent full-layer recomputes, not diffs.
type Event any

type LocationChanged struct {
	Coord geo.Coordinate
}

type RadiusChanged struct {
	RadiusKm float64
}

type ZoomChanged struct {
	Resolution float64
}

type PrivacyChanged struct {
	Settings privacy.Settings
}

type ListReplaced struct {
	Users []nearby.User
}

type SelectionChanged struct {
	UserID string
}

type PresencePatched struct {
	UserID string
	Online bool
}

type MovementChanged struct {
	UserID string
	Moving bool
}

type Notice struct {
	Level   string
	Message string
}

// Bus is an in-process publish/subscribe channel scoped to one map view.
// Publishing never blocks; slow subscribers drop events and recover on
// the next full redraw.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe returns an event channel and an unsubscribe func.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, 64)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
