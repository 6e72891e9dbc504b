// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"github.com/insightforge/backend/internal/preferences"
	"github.com/insightforge/backend/internal/session"
	"github.com/insightforge/backend/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store         storage.Store
	SessionMgr    *session.Manager
	Preferences   *preferences.Store
	MaxUploadSize int64
	Version       string
}

// Handlers holds all handler instances
type Handlers struct {
	Health      HealthHandler
	Analysis    AnalysisHandler
	Files       FileHandler
	Preferences PreferencesHandler
	Socket      *AnalysisSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:      NewHealthHandler(deps.Version, deps.SessionMgr.Len),
		Analysis:    NewAnalysisHandler(deps.Store, deps.SessionMgr, deps.MaxUploadSize),
		Files:       NewFileHandler(deps.Store),
		Preferences: NewPreferencesHandler(deps.Preferences),
		Socket:      NewAnalysisSocketHandler(deps.SessionMgr),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	api := e.Group("/api")

	// Health check
	api.GET("/health", handlers.Health.HandleHealth)

	// Analysis session routes
	analysisGroup := api.Group("/analyses")
	analysisGroup.POST("", handlers.Analysis.HandleCreateAnalysis)
	analysisGroup.GET("/:id", handlers.Analysis.HandleGetAnalysis)
	analysisGroup.GET("/:id/preview", handlers.Analysis.HandleGetPreview)
	analysisGroup.GET("/:id/suggestions", handlers.Analysis.HandleGetSuggestions)
	analysisGroup.GET("/:id/rows", handlers.Analysis.HandleGetRows)
	analysisGroup.GET("/:id/rows/msgpack", handlers.Analysis.HandleGetRowsMsgpack)
	analysisGroup.DELETE("/:id", handlers.Analysis.HandleDeleteAnalysis)

	// File metadata routes
	fileGroup := api.Group("/files")
	fileGroup.GET("/recent", handlers.Files.HandleGetRecentFiles)
	fileGroup.GET("/:id", handlers.Files.HandleGetFile)

	// Preferences routes
	prefGroup := api.Group("/preferences")
	prefGroup.GET("", handlers.Preferences.HandleGetPreferences)
	prefGroup.PUT("", handlers.Preferences.HandleUpdatePreferences)
	prefGroup.POST("/toggle", handlers.Preferences.HandleTogglePreferences)
}

// RegisterWebSocketRoutes registers WebSocket routes
func RegisterWebSocketRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/api/ws/analyses/:id", handlers.Socket.HandleAnalysisSocket)
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 * 1024,
	}))
}
