package websocket

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/meetnearby/meetnearby/internal/chat"
	"github.com/meetnearby/meetnearby/internal/config"
	"github.com/meetnearby/meetnearby/internal/maplayer"
	"github.com/meetnearby/meetnearby/internal/presence"
	"github.com/meetnearby/meetnearby/internal/profile"
	"github.com/meetnearby/meetnearby/pkg/logger"
	"github.com/meetnearby/meetnearby/pkg/validator"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, validate origin properly
	},
}

// Handler attaches a map view per websocket connection and tears it down
// when the connection closes.
type Handler struct {
	hub        *Hub
	store      profile.Store
	writer     presence.Writer
	subscriber presence.Subscriber
	cfg        *config.Config
	validator  validator.Validator
	log        logger.Logger
}

func NewHandler(
	hub *Hub,
	store profile.Store,
	writer presence.Writer,
	subscriber presence.Subscriber,
	cfg *config.Config,
	val validator.Validator,
	log logger.Logger,
) *Handler {
	return &Handler{
		hub:        hub,
		store:      store,
		writer:     writer,
		subscriber: subscriber,
		cfg:        cfg,
		validator:  val,
		log:        log,
	}
}

func (h *Handler) HandleWebSocket(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}

	// Constrained clients (mobile, metered) get the shorter refresh
	// throttle and quieter background notices.
	constrained := c.Query("constrained") == "true"

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("failed to upgrade connection", "user", userID, "error", err)
		return
	}

	view := maplayer.NewView(
		h.viewConfig(userID, constrained),
		h.store,
		h.writer,
		h.subscriber,
		chat.NewList(h.store, userID, h.cfg.Presence.PartnerCount, h.log),
		h.log,
	)

	client := NewClient(h.hub, conn, userID, view, h.validator, h.log)
	view.Emit = client.Enqueue

	h.hub.register <- client

	go view.Start(context.Background())
	go client.WritePump()

	client.ReadPump()
}

func (h *Handler) viewConfig(userID string, constrained bool) maplayer.ViewConfig {
	throttle := h.cfg.Nearby.ThrottleWindow
	if constrained {
		throttle = h.cfg.Nearby.ThrottleConstrained
	}

	return maplayer.ViewConfig{
		ViewerID:         userID,
		Constrained:      constrained,
		RadiusKm:         h.cfg.Map.DefaultRadiusKm,
		PageSize:         h.cfg.Nearby.PageSize,
		DetailLimit:      h.cfg.Nearby.DetailLimit,
		DetailTTL:        h.cfg.Nearby.DetailTTL,
		ThrottleWindow:   throttle,
		RefreshInterval:  throttle,
		ClosestCount:     h.cfg.Presence.ClosestCount,
		ClusterThreshold: h.cfg.Map.ClusterResolution,
		PulseMinOpacity:  h.cfg.Map.PulseMinOpacity,
		PulseMaxOpacity:  h.cfg.Map.PulseMaxOpacity,
		PulseStep:        (h.cfg.Map.PulseMaxOpacity - h.cfg.Map.PulseMinOpacity) / 10,
		PulseInterval:    h.cfg.Map.PulseInterval,
		Presence: presence.TrackerConfig{
			DebounceWindow:    h.cfg.Presence.DebounceWindow,
			WriteCooldown:     h.cfg.Presence.WriteCooldown,
			RecomputeInterval: h.cfg.Presence.RecomputeInterval,
		},
	}
}
