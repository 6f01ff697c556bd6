package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/meetnearby/meetnearby/internal/api"
	"github.com/meetnearby/meetnearby/internal/config"
	"github.com/meetnearby/meetnearby/internal/presence"
	"github.com/meetnearby/meetnearby/internal/profile"
	"github.com/meetnearby/meetnearby/internal/ratelimit"
	"github.com/meetnearby/meetnearby/internal/storage"
	"github.com/meetnearby/meetnearby/internal/websocket"
	"github.com/meetnearby/meetnearby/pkg/logger"
	"github.com/meetnearby/meetnearby/pkg/validator"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize logger
	appLogger := logger.NewLogger(os.Getenv("ENV"))
	appLogger.Info("Starting MeetNearby server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		appLogger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize Redis
	redisClient, err := storage.NewRedisClient(cfg)
	if err != nil {
		appLogger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis", "address", cfg.RedisAddr())

	// Initialize Postgres
	pgClient, err := storage.NewPostgresClient(cfg.PostgresDSN())
	if err != nil {
		appLogger.Error("Failed to connect to Postgres", "error", err)
		os.Exit(1)
	}
	defer pgClient.Close()
	appLogger.Info("Connected to Postgres", "database", cfg.Postgres.Database)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize services
	store := profile.NewPostgresStore(pgClient)
	broadcaster := presence.NewBroadcaster(redisClient, store, appLogger)
	subscriber := presence.NewRedisSubscriber(redisClient)

	rateLimiter := ratelimit.NewLimiter(redisClient, cfg.RateLimit)
	rateLimitMiddleware := ratelimit.NewMiddleware(rateLimiter)

	// Initialize validator
	val := validator.NewValidator(cfg.Map.MinRadiusKm, cfg.Map.MaxRadiusKm)

	// Initialize WebSocket hub
	hub := websocket.NewHub(ctx, redisClient)
	go hub.Run()

	// Initialize WebSocket handler
	wsHandler := websocket.NewHandler(
		hub,
		store,
		broadcaster,
		subscriber,
		cfg,
		val,
		appLogger,
	)

	// Initialize API handler
	apiHandler := api.NewHandler(
		store,
		broadcaster,
		rateLimiter,
		val,
		hub,
		cfg,
		appLogger,
	)

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Add logging middleware
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		appLogger.Info("Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", duration,
			"ip", c.ClientIP(),
		)
	})

	// Setup routes
	api.SetupRoutes(router, apiHandler, wsHandler, rateLimitMiddleware)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info("Server starting", "address", srv.Addr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Cancel context to stop background services
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server stopped")
}
