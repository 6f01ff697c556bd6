package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/meetnearby/meetnearby/internal/config"
	"github.com/meetnearby/meetnearby/internal/geo"
	"github.com/meetnearby/meetnearby/internal/maplayer"
	"github.com/meetnearby/meetnearby/internal/nearby"
	"github.com/meetnearby/meetnearby/internal/presence"
	"github.com/meetnearby/meetnearby/internal/privacy"
	"github.com/meetnearby/meetnearby/internal/profile"
	"github.com/meetnearby/meetnearby/internal/ratelimit"
	"github.com/meetnearby/meetnearby/pkg/logger"
	"github.com/meetnearby/meetnearby/pkg/validator"
)

// ViewRegistry looks up the live map view attached for a user, so REST
// calls can route through the view and trigger immediate redraws.
type ViewRegistry interface {
	ViewFor(userID string) (*maplayer.View, bool)
}

type Handler struct {
	store       profile.Store
	broadcaster *presence.Broadcaster
	rateLimiter ratelimit.RateLimiter
	validator   validator.Validator
	views       ViewRegistry
	cfg         *config.Config
	log         logger.Logger
}

func NewHandler(
	store profile.Store,
	broadcaster *presence.Broadcaster,
	rateLimiter ratelimit.RateLimiter,
	val validator.Validator,
	views ViewRegistry,
	cfg *config.Config,
	log logger.Logger,
) *Handler {
	return &Handler{
		store:       store,
		broadcaster: broadcaster,
		rateLimiter: rateLimiter,
		validator:   val,
		views:       views,
		cfg:         cfg,
		log:         log,
	}
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}

// GET /api/nearby
func (h *Handler) GetNearbyUsers(c *gin.Context) {
	userID := c.GetString("user_id")
	ctx := c.Request.Context()

	radiusKm := h.cfg.Map.DefaultRadiusKm
	if raw := c.Query("radius"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse("radius must be a number", "INVALID_REQUEST"))
			return
		}
		radiusKm = parsed
	}
	if err := h.validator.ValidateRadius(radiusKm); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse(err.Error(), "INVALID_RADIUS"))
		return
	}

	allowed, err := h.rateLimiter.AllowRefresh(ctx, userID)
	if err != nil || !allowed {
		c.JSON(http.StatusTooManyRequests, ErrorResponse("Refresh rate limit exceeded", "RATE_LIMIT"))
		return
	}

	var users []nearby.User
	if view, ok := h.views.ViewFor(userID); ok {
		users = view.Users()
	} else {
		users, err = h.fetchOnce(c, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse("Failed to get nearby users", "INTERNAL_ERROR"))
			return
		}
	}

	for i := range users {
		users[i].Location = privacy.DisplayCoordinate(users[i].Location, users[i].Privacy())
	}
	inRange := nearby.InRange(users, radiusKm)

	c.JSON(http.StatusOK, SuccessResponse(gin.H{
		"count":    len(users),
		"users":    users,
		"in_range": inRange,
	}))
}

// fetchOnce serves viewers with no live map view. The viewer position
// comes from lat/lng query params when present; without it every
// distance is unknown and the radius filter matches nothing.
func (h *Handler) fetchOnce(c *gin.Context, userID string) ([]nearby.User, error) {
	var viewer *geo.Coordinate
	latRaw, lngRaw := c.Query("lat"), c.Query("lng")
	if latRaw != "" && lngRaw != "" {
		lat, latErr := strconv.ParseFloat(latRaw, 64)
		lng, lngErr := strconv.ParseFloat(lngRaw, 64)
		if latErr == nil && lngErr == nil && h.validator.ValidateCoordinates(lat, lng) == nil {
			viewer = &geo.Coordinate{Lat: lat, Lng: lng}
		}
	}

	fetcher := nearby.NewFetcher(
		h.store,
		nearby.NewDetailCache(h.cfg.Nearby.DetailTTL),
		userID,
		func() *geo.Coordinate { return viewer },
		nearby.Config{
			PageSize:    h.cfg.Nearby.PageSize,
			DetailLimit: h.cfg.Nearby.DetailLimit,
		},
		false,
		nopNotifier{},
		h.log,
	)
	return fetcher.Refresh(c.Request.Context(), true)
}

// POST /api/location/update
func (h *Handler) UpdateLocation(c *gin.Context) {
	userID := c.GetString("user_id")

	var req struct {
		Latitude  float64 `json:"latitude" binding:"required"`
		Longitude float64 `json:"longitude" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("Invalid request", "INVALID_REQUEST"))
		return
	}

	if err := h.validator.ValidateCoordinates(req.Latitude, req.Longitude); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse(err.Error(), "INVALID_COORDINATES"))
		return
	}

	allowed, err := h.rateLimiter.AllowLocationUpdate(c.Request.Context(), userID)
	if err != nil || !allowed {
		c.JSON(http.StatusTooManyRequests, ErrorResponse("Location update rate limit exceeded", "RATE_LIMIT"))
		return
	}

	coord := geo.Coordinate{Lat: req.Latitude, Lng: req.Longitude}

	// Through the live view when attached: the map moves optimistically
	// and the write happens behind it. Straight to the store otherwise.
	if view, ok := h.views.ViewFor(userID); ok {
		view.SetManualLocation(coord)
	} else if err := h.store.UpdateLocation(c.Request.Context(), userID, coord); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse("Failed to update location", "INTERNAL_ERROR"))
		return
	}

	c.JSON(http.StatusOK, SuccessResponse(gin.H{
		"message": "Location updated successfully",
	}))
}

// POST /api/privacy
func (h *Handler) UpdatePrivacy(c *gin.Context) {
	userID := c.GetString("user_id")

	var req privacy.Settings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("Invalid request", "INVALID_REQUEST"))
		return
	}

	if view, ok := h.views.ViewFor(userID); ok {
		if err := view.SetPrivacy(c.Request.Context(), req); err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse("Failed to update privacy settings", "INTERNAL_ERROR"))
			return
		}
	} else if err := h.store.UpdatePrivacy(c.Request.Context(), userID, req); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse("Failed to update privacy settings", "INTERNAL_ERROR"))
		return
	}

	c.JSON(http.StatusOK, SuccessResponse(req))
}

// POST /api/radius
func (h *Handler) UpdateRadius(c *gin.Context) {
	userID := c.GetString("user_id")

	var req struct {
		RadiusKm float64 `json:"radius_km" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("Invalid request", "INVALID_REQUEST"))
		return
	}

	if err := h.validator.ValidateRadius(req.RadiusKm); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse(err.Error(), "INVALID_RADIUS"))
		return
	}

	view, ok := h.views.ViewFor(userID)
	if !ok {
		c.JSON(http.StatusConflict, ErrorResponse("No active map view", "VIEW_NOT_ATTACHED"))
		return
	}
	view.SetRadius(req.RadiusKm)

	c.JSON(http.StatusOK, SuccessResponse(gin.H{
		"radius_km": req.RadiusKm,
	}))
}

// POST /api/presence/beacon
//
// The page-unload beacon path. Always 204: by the time this arrives the
// sender is gone and cannot act on an error.
func (h *Handler) PresenceBeacon(c *gin.Context) {
	userID := c.GetString("user_id")
	h.broadcaster.MarkOfflineBeacon(userID)
	c.Status(http.StatusNoContent)
}

// GET /api/presence/online
func (h *Handler) OnlineUsers(c *gin.Context) {
	entries, err := h.broadcaster.OnlineUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse("Failed to list online users", "INTERNAL_ERROR"))
		return
	}

	c.JSON(http.StatusOK, SuccessResponse(gin.H{
		"count": len(entries),
		"users": entries,
	}))
}

// GET /api/chat/partners
func (h *Handler) ChatPartners(c *gin.Context) {
	userID := c.GetString("user_id")

	partners, err := h.store.RecentChatPartners(c.Request.Context(), userID, h.cfg.Presence.PartnerCount)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse("Failed to list chat partners", "INTERNAL_ERROR"))
		return
	}

	c.JSON(http.StatusOK, SuccessResponse(gin.H{
		"count":    len(partners),
		"partners": partners,
	}))
}

// GET /api/health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
