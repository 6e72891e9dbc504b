// handlers_files.go - Uploaded file metadata handlers
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/insightforge/backend/internal/storage"
	"github.com/labstack/echo/v4"
)

// FileHandlerImpl implements the FileHandler interface
type FileHandlerImpl struct {
	store storage.Store
}

// NewFileHandler creates a new file handler instance
func NewFileHandler(store storage.Store) FileHandler {
	return &FileHandlerImpl{store: store}
}

// HandleGetRecentFiles returns the most recently uploaded files still held
func (h *FileHandlerImpl) HandleGetRecentFiles(c echo.Context) error {
	limit := 10
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return NewValidationError("limit")
		}
		limit = n
	}

	files, err := h.store.List(limit)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}

	return c.JSON(http.StatusOK, files)
}

// HandleGetFile returns metadata for a single file
func (h *FileHandlerImpl) HandleGetFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	info, err := h.store.Get(id)
	if errors.Is(err, storage.ErrNotFound) {
		return NewNotFoundError("file", id)
	}
	if err != nil {
		return NewInternalError("failed to get file", err)
	}

	return c.JSON(http.StatusOK, info)
}
