// Package routes defines the HTTP routes for the Steel Co-Pilot Chat Service.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/steelcopilot/chat-service/internal/api/handlers"
	"github.com/steelcopilot/chat-service/internal/api/middleware"
)

// Config holds the dependencies for setting up routes.
type Config struct {
	// APIPrefix defaults to /api/v1.
	APIPrefix      string
	HealthHandler  *handlers.HealthHandler
	ChatHandler    *handlers.ChatHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// Setup configures all routes on the Gin engine.
func Setup(r *gin.Engine, cfg *Config) {
	prefix := cfg.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}

	// Health checks are unauthenticated.
	r.GET("/health", cfg.HealthHandler.Health)
	r.GET("/ready", cfg.HealthHandler.Ready)
	r.GET("/live", cfg.HealthHandler.Live)

	chat := r.Group(prefix + "/chat")
	chat.Use(cfg.AuthMiddleware.Authenticate())
	{
		sessions := chat.Group("/sessions")
		{
			sessions.POST("", cfg.ChatHandler.CreateSession)
			sessions.GET("", cfg.ChatHandler.ListSessions)
			sessions.GET("/:sessionId", cfg.ChatHandler.GetSession)
			sessions.DELETE("/:sessionId", cfg.ChatHandler.DeleteSession)
			sessions.POST("/:sessionId/messages", cfg.ChatHandler.SendMessage)
		}

		chat.GET("/agents/:agentId", cfg.ChatHandler.AgentSession)
		chat.GET("/:module", cfg.ChatHandler.ModuleSession)
	}
}

// SetupWithMiddleware sets up routes with common middleware.
func SetupWithMiddleware(r *gin.Engine, cfg *Config, cors middleware.CORSConfig, loggingMw *middleware.LoggingMiddleware, errorMw *middleware.ErrorMiddleware) {
	r.Use(loggingMw.Logger())
	r.Use(errorMw.Recovery())
	r.Use(middleware.NewCORSMiddleware(cors))

	r.NoRoute(middleware.NotFound())
	r.NoMethod(middleware.MethodNotAllowed())

	Setup(r, cfg)
}
