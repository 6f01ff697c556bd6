package ratelimit

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Middleware struct {
	limiter *Limiter
}

func NewMiddleware(limiter *Limiter) *Middleware {
	return &Middleware{
		limiter: limiter,
	}
}

// IPRateLimit middleware for general IP-based rate limiting
func (m *Middleware) IPRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		allowed, err := m.limiter.AllowIPRequest(c.Request.Context(), ip)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check rate limit",
			})
			c.Abort()
			return
		}

		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
				"code":  "RATE_LIMIT_IP",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireUser ensures a user id is present and stores it for handlers.
func (m *Middleware) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			userID = c.Query("user_id")
		}

		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "User ID required",
			})
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
