package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/meetnearby/meetnearby/internal/ratelimit"
)

func SetupRoutes(r *gin.Engine, handler *Handler, wsHandler WebSocketHandler, rlMiddleware *ratelimit.Middleware) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-User-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(rlMiddleware.IPRateLimit())

	api := r.Group("/api")
	{
		api.GET("/nearby", rlMiddleware.RequireUser(), handler.GetNearbyUsers)

		location := api.Group("/location")
		{
			location.POST("/update", rlMiddleware.RequireUser(), handler.UpdateLocation)
		}

		api.POST("/privacy", rlMiddleware.RequireUser(), handler.UpdatePrivacy)
		api.POST("/radius", rlMiddleware.RequireUser(), handler.UpdateRadius)

		presence := api.Group("/presence")
		{
			presence.POST("/beacon", rlMiddleware.RequireUser(), handler.PresenceBeacon)
			presence.GET("/online", handler.OnlineUsers)
		}

		api.GET("/chat/partners", rlMiddleware.RequireUser(), handler.ChatPartners)

		// Health check (no rate limit)
		api.GET("/health", handler.Health)
	}

	// WebSocket route
	r.GET("/ws", wsHandler.HandleWebSocket)
}

type WebSocketHandler interface {
	HandleWebSocket(c *gin.Context)
}
