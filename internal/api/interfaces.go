// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/insightforge/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// AnalysisHandler handles upload and analysis session operations
type AnalysisHandler interface {
	HandleCreateAnalysis(c echo.Context) error
	HandleGetAnalysis(c echo.Context) error
	HandleGetPreview(c echo.Context) error
	HandleGetSuggestions(c echo.Context) error
	HandleGetRows(c echo.Context) error
	HandleGetRowsMsgpack(c echo.Context) error
	HandleDeleteAnalysis(c echo.Context) error
}

// FileHandler handles uploaded file metadata
type FileHandler interface {
	HandleGetRecentFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
}

// PreferencesHandler handles the persisted display preferences
type PreferencesHandler interface {
	HandleGetPreferences(c echo.Context) error
	HandleUpdatePreferences(c echo.Context) error
	HandleTogglePreferences(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	StartSession(fileID, fileName string, table *models.ParsedTable, replaceID string) (*models.AnalysisSession, error)
	GetSession(id string) (*models.AnalysisSession, bool)
	GetPreview(id string) (*models.Preview, bool)
	GetRows(ctx context.Context, id string, page, pageSize int) ([]models.Record, int, bool)
	TouchSession(id string) bool
	DeleteSession(id string) bool
}

// PreferencesStore defines the preferences operations used by the API
type PreferencesStore interface {
	Get() models.Preferences
	SetDarkMode(dark bool) (models.Preferences, error)
	Toggle() (models.Preferences, error)
}
