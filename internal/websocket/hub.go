package websocket

import (
	"context"
	"sync"

	"github.com/meetnearby/meetnearby/internal/maplayer"
	"github.com/meetnearby/meetnearby/internal/storage"
)

const activeViewsKey = "views:active"

// Hub tracks the live map views on this instance. The Redis set mirrors
// membership across instances so operational tooling can see who is
// attached where.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	redis      storage.RedisClient
	mu         sync.RWMutex
	ctx        context.Context
}

func NewHub(ctx context.Context, redisClient storage.RedisClient) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		redis:      redisClient,
		ctx:        ctx,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case <-h.ctx.Done():
			h.shutdown()
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// One live view per user on this instance; a reconnect replaces the
	// previous attachment.
	if prev, ok := h.clients[client.userID]; ok {
		prev.view.Stop()
		close(prev.send)
	}
	h.clients[client.userID] = client

	h.redis.SAdd(h.ctx, activeViewsKey, client.userID)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.clients[client.userID]; ok && current == client {
		delete(h.clients, client.userID)
		close(client.send)
		h.redis.SRem(h.ctx, activeViewsKey, client.userID)
	}
}

// ViewFor returns the live view attached for a user, if any. The HTTP
// handlers use it to route state changes through the view so the map
// reacts without waiting for the next poll.
func (h *Hub) ViewFor(userID string) (*maplayer.View, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[userID]
	if !ok {
		return nil, false
	}
	return client.view, true
}

func (h *Hub) ViewerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		client.view.Stop()
		close(client.send)
	}
	h.clients = make(map[string]*Client)
}
