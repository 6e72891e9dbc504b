// handlers_preferences.go - Display preference handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// PreferencesHandlerImpl implements the PreferencesHandler interface
type PreferencesHandlerImpl struct {
	prefs PreferencesStore
}

// NewPreferencesHandler creates a new preferences handler instance
func NewPreferencesHandler(prefs PreferencesStore) PreferencesHandler {
	return &PreferencesHandlerImpl{prefs: prefs}
}

type updatePreferencesRequest struct {
	DarkMode *bool `json:"darkMode"`
}

// HandleGetPreferences returns the stored preferences
func (h *PreferencesHandlerImpl) HandleGetPreferences(c echo.Context) error {
	return c.JSON(http.StatusOK, h.prefs.Get())
}

// HandleUpdatePreferences sets the dark-mode flag
func (h *PreferencesHandlerImpl) HandleUpdatePreferences(c echo.Context) error {
	var req updatePreferencesRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.DarkMode == nil {
		return NewValidationError("darkMode")
	}

	prefs, err := h.prefs.SetDarkMode(*req.DarkMode)
	if err != nil {
		return NewInternalError("failed to save preferences", err)
	}

	return c.JSON(http.StatusOK, prefs)
}

// HandleTogglePreferences flips the dark-mode flag
func (h *PreferencesHandlerImpl) HandleTogglePreferences(c echo.Context) error {
	prefs, err := h.prefs.Toggle()
	if err != nil {
		return NewInternalError("failed to save preferences", err)
	}

	return c.JSON(http.StatusOK, prefs)
}
