// internal/app/router.go
package app

import (
	authHandler "fieldmapper-service/internal/handlers/auth"
	editorHandler "fieldmapper-service/internal/handlers/editor"
	fieldHandler "fieldmapper-service/internal/handlers/field"
	"fieldmapper-service/internal/handlers/mapcfg"
	profileHandler "fieldmapper-service/internal/handlers/profile"
	wsHandler "fieldmapper-service/internal/handlers/websocket"
	"fieldmapper-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	AuthHandler    *authHandler.AuthHandler
	FieldHandler   *fieldHandler.FieldHandler
	ProfileHandler *profileHandler.ProfileHandler
	EditorHandler  *editorHandler.EditorHandler
	MapHandler     *mapcfg.MapHandler
	WSHandler      *wsHandler.WebSocketHandler
	AuthMiddleware *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Public Auth Routes ====================
	authPublic := api.Group("/auth")
	{
		authPublic.POST("/register", h.AuthHandler.Register)
		authPublic.POST("/login", h.AuthHandler.Login)
		authPublic.POST("/google", h.AuthHandler.GoogleSignIn)
	}

	// ==================== Authenticated Auth Routes ====================
	authProtected := api.Group("/auth")
	authProtected.Use(h.AuthMiddleware.Auth())
	{
		authProtected.POST("/change-password", h.AuthHandler.ChangePassword)
		authProtected.POST("/logout", h.AuthHandler.Logout)
		authProtected.POST("/logout-all", h.AuthHandler.LogoutAll)
		authProtected.GET("/me", h.AuthHandler.Me)
	}

	// ==================== Map Bootstrap ====================
	mapGroup := api.Group("/map")
	mapGroup.Use(h.AuthMiddleware.Auth())
	{
		mapGroup.GET("/config", h.MapHandler.Get)
	}

	// ==================== Saved Fields (dashboard) ====================
	fields := api.Group("/fields")
	fields.Use(h.AuthMiddleware.Auth())
	{
		fields.GET("", h.FieldHandler.List)
		fields.POST("", h.FieldHandler.Save)
		fields.GET("/:id", h.FieldHandler.Get)
	}

	// ==================== Profile ====================
	profile := api.Group("/profile")
	profile.Use(h.AuthMiddleware.Auth())
	{
		profile.GET("", h.ProfileHandler.Get)
	}

	// ==================== Editor Sessions (map page) ====================
	editor := api.Group("/editor/sessions")
	editor.Use(h.AuthMiddleware.Auth())
	{
		editor.POST("", h.EditorHandler.Open)
		editor.GET("/:id", h.EditorHandler.Get)
		editor.DELETE("/:id", h.EditorHandler.Close)

		// Overlay lifecycle
		editor.POST("/:id/overlays", h.EditorHandler.CompleteDrawing)
		editor.POST("/:id/overlays/:overlayId/toggle", h.EditorHandler.Toggle)
		editor.DELETE("/:id/overlays/active", h.EditorHandler.DeleteActive)

		// Saved fields in and out of the session
		editor.POST("/:id/load", h.EditorHandler.LoadField)
		editor.POST("/:id/save", h.EditorHandler.SaveActive)

		// Viewport state
		editor.PUT("/:id/location", h.EditorHandler.SetLocation)
		editor.PUT("/:id/map-type", h.EditorHandler.SetMapType)
		editor.PUT("/:id/fullscreen", h.EditorHandler.SetFullscreen)
	}

	// ==================== Diagnostics ====================
	stats := api.Group("/stats")
	stats.Use(h.AuthMiddleware.Auth())
	{
		stats.GET("/ws", h.WSHandler.GetStats)
	}
}
