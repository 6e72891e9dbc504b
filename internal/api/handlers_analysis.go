// handlers_analysis.go - Upload and analysis session handlers
package api

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/insightforge/backend/internal/models"
	"github.com/insightforge/backend/internal/parser"
	"github.com/insightforge/backend/internal/session"
	"github.com/insightforge/backend/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// AnalysisHandlerImpl implements the AnalysisHandler interface
type AnalysisHandlerImpl struct {
	store         storage.Store
	sessionMgr    SessionManager
	maxUploadSize int64
}

// NewAnalysisHandler creates a new analysis handler instance.
// A non-positive maxUploadSize selects parser.DefaultMaxFileSize.
func NewAnalysisHandler(store storage.Store, sessionMgr SessionManager, maxUploadSize int64) AnalysisHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = parser.DefaultMaxFileSize
	}
	return &AnalysisHandlerImpl{
		store:         store,
		sessionMgr:    sessionMgr,
		maxUploadSize: maxUploadSize,
	}
}

// createAnalysisRequest is the JSON form of an upload
type createAnalysisRequest struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        string `json:"data"` // Base64-encoded file content
	Replaces    string `json:"replaces"`
}

func (r *createAnalysisRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return NewValidationError("name")
	}
	return nil
}

type createAnalysisResponse struct {
	Session *models.AnalysisSession `json:"session"`
	File    *models.FileInfo        `json:"file"`
	Preview *models.Preview         `json:"preview"`
}

type suggestionsResponse struct {
	Columns     []models.Column                  `json:"columns"`
	Suggestions []models.VisualizationSuggestion `json:"suggestions"`
}

type rowsResponse struct {
	Rows     []models.Record `json:"rows" msgpack:"rows"`
	Page     int             `json:"page" msgpack:"page"`
	PageSize int             `json:"pageSize" msgpack:"pageSize"`
	Total    int             `json:"total" msgpack:"total"`
}

// incomingUpload is an upload read from either request form
type incomingUpload struct {
	name        string
	contentType string
	size        int64
	body        io.ReadCloser
	replaces    string
}

// HandleCreateAnalysis accepts a CSV file, parses it and starts its analysis.
// The file is sent as multipart/form-data (field "file") or as base64 JSON.
func (h *AnalysisHandlerImpl) HandleCreateAnalysis(c echo.Context) error {
	up, err := h.readUpload(c)
	if err != nil {
		return err
	}
	defer up.body.Close()

	if err := parser.ValidateUpload(up.name, up.contentType, up.size, h.maxUploadSize); err != nil {
		log.Infof("[Upload] Rejected %s (%s, %d bytes): %v", up.name, up.contentType, up.size, err)
		return NewIngestError(err, h.limitLabel())
	}

	info, err := h.store.Save(up.name, up.contentType, up.body)
	if err != nil {
		return NewInternalError("failed to save file", err)
	}

	table, err := h.ingest(info)
	if err != nil {
		_ = h.store.Delete(info.ID)
		log.Infof("[Upload] Failed to ingest %s: %v", info.Name, err)
		return NewIngestError(err, h.limitLabel())
	}

	sess, err := h.sessionMgr.StartSession(info.ID, info.Name, table, up.replaces)
	if err != nil {
		_ = h.store.Delete(info.ID)
		if errors.Is(err, session.ErrTooManySessions) {
			return NewServiceUnavailableError("Too many analyses in progress, try again shortly")
		}
		return NewInternalError("failed to start analysis", err)
	}

	// Re-read to pick up the status set by the session manager
	if updated, err := h.store.Get(info.ID); err == nil {
		info = updated
	}

	return c.JSON(http.StatusAccepted, createAnalysisResponse{
		Session: sess,
		File:    info,
		Preview: table.Preview(),
	})
}

func (h *AnalysisHandlerImpl) ingest(info *models.FileInfo) (*models.ParsedTable, error) {
	rc, err := h.store.Open(info.ID)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return parser.Ingest(info, rc, h.maxUploadSize)
}

func (h *AnalysisHandlerImpl) readUpload(c echo.Context) (*incomingUpload, error) {
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return h.readMultipartUpload(c)
	}

	var req createAnalysisRequest
	if err := c.Bind(&req); err != nil {
		return nil, NewBadRequestError("invalid request body", err)
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	decoded, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return nil, NewBadRequestError("invalid base64 data", err)
	}

	return &incomingUpload{
		name:        req.Name,
		contentType: req.ContentType,
		size:        int64(len(decoded)),
		body:        io.NopCloser(bytes.NewReader(decoded)),
		replaces:    req.Replaces,
	}, nil
}

func (h *AnalysisHandlerImpl) readMultipartUpload(c echo.Context) (*incomingUpload, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, NewBadRequestError("no file provided", err)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, NewInternalError("failed to open uploaded file", err)
	}

	return &incomingUpload{
		name:        fh.Filename,
		contentType: fh.Header.Get(echo.HeaderContentType),
		size:        fh.Size,
		body:        src,
		replaces:    c.FormValue("replaces"),
	}, nil
}

func (h *AnalysisHandlerImpl) limitLabel() string {
	return humanize.IBytes(uint64(h.maxUploadSize))
}

// HandleGetAnalysis returns the current state of an analysis session
func (h *AnalysisHandlerImpl) HandleGetAnalysis(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("analysis", id)
	}

	// Touch session to prevent cleanup while being viewed
	h.sessionMgr.TouchSession(id)

	return c.JSON(http.StatusOK, sess)
}

// HandleGetPreview returns the first rows of the uploaded table
func (h *AnalysisHandlerImpl) HandleGetPreview(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	preview, ok := h.sessionMgr.GetPreview(id)
	if !ok {
		return NewNotFoundError("analysis", id)
	}
	h.sessionMgr.TouchSession(id)

	return c.JSON(http.StatusOK, preview)
}

// HandleGetSuggestions returns column types and chart suggestions once the
// analysis has finished.
func (h *AnalysisHandlerImpl) HandleGetSuggestions(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("analysis", id)
	}
	h.sessionMgr.TouchSession(id)

	switch sess.Status {
	case models.SessionStatusAnalyzing:
		return NewConflictError("analysis still in progress")
	case models.SessionStatusError:
		msg := "analysis failed"
		if sess.Error != nil {
			msg = sess.Error.Message
		}
		return NewInternalError(msg, nil)
	case models.SessionStatusCancelled:
		return NewConflictError("analysis was cancelled")
	}

	return c.JSON(http.StatusOK, suggestionsResponse{
		Columns:     sess.Columns,
		Suggestions: sess.Suggestions,
	})
}

// HandleGetRows returns a page of rows as JSON
func (h *AnalysisHandlerImpl) HandleGetRows(c echo.Context) error {
	resp, err := h.getRows(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleGetRowsMsgpack returns a page of rows in MessagePack format
func (h *AnalysisHandlerImpl) HandleGetRowsMsgpack(c echo.Context) error {
	resp, err := h.getRows(c)
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(resp)
	if err != nil {
		return NewInternalError("failed to encode rows", err)
	}

	return c.Blob(http.StatusOK, "application/msgpack", data)
}

func (h *AnalysisHandlerImpl) getRows(c echo.Context) (*rowsResponse, error) {
	id := c.Param("id")
	if id == "" {
		return nil, NewValidationError("id")
	}

	page, pageSize, err := parsePagination(c)
	if err != nil {
		return nil, err
	}

	rows, total, ok := h.sessionMgr.GetRows(c.Request().Context(), id, page, pageSize)
	if !ok {
		return nil, NewNotFoundError("analysis", id)
	}
	h.sessionMgr.TouchSession(id)

	return &rowsResponse{
		Rows:     rows,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}, nil
}

// HandleDeleteAnalysis discards a session and its upload
func (h *AnalysisHandlerImpl) HandleDeleteAnalysis(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if !h.sessionMgr.DeleteSession(id) {
		return NewNotFoundError("analysis", id)
	}

	return c.NoContent(http.StatusNoContent)
}

func parsePagination(c echo.Context) (int, int, error) {
	page := 1
	pageSize := defaultPageSize

	if v := c.QueryParam("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, 0, NewValidationError("page")
		}
		page = n
	}
	if v := c.QueryParam("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, 0, NewValidationError("pageSize")
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		pageSize = n
	}

	return page, pageSize, nil
}
