// internal/app/router.go
package app

import (
	authHandler "resonate-service/internal/handlers/auth"
	billingHandler "resonate-service/internal/handlers/billing"
	sessionHandler "resonate-service/internal/handlers/session"
	wsHandler "resonate-service/internal/handlers/websocket"
	"resonate-service/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	AuthHandler    *authHandler.AuthHandler
	SessionHandler *sessionHandler.SessionHandler
	BillingHandler *billingHandler.BillingHandler
	WSHandler      *wsHandler.WebSocketHandler
	AuthMiddleware *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== Public Auth Routes ====================
	api.POST("/auth/login", h.AuthHandler.Login)

	// ==================== Authenticated Routes ====================
	authed := api.Group("")
	authed.Use(h.AuthMiddleware.Auth())
	{
		authed.POST("/auth/logout", h.AuthHandler.Logout)

		sessions := authed.Group("/sessions")
		{
			sessions.POST("/register", h.SessionHandler.Register)
			sessions.GET("/active", h.SessionHandler.QueryActive)
			sessions.GET("/devices", h.SessionHandler.Devices)
			sessions.DELETE("/:session_id", h.SessionHandler.Disconnect)
		}

		authed.GET("/billing/subscription", h.BillingHandler.GetSubscription)

		authed.GET("/ws", h.WSHandler.HandleConnection)
	}
}
