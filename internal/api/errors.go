// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/insightforge/backend/internal/parser"
	"github.com/labstack/echo/v4"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error constructors for consistent error handling

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 validation error for a specific field
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "CONFLICT",
		Message: message,
	}
}

// NewInvalidFileTypeError creates a 415 error for non-CSV uploads
func NewInvalidFileTypeError(message string) *APIError {
	return &APIError{
		Status:  http.StatusUnsupportedMediaType,
		Code:    "INVALID_FILE_TYPE",
		Message: message,
	}
}

// NewFileTooLargeError creates a 413 error for uploads above the size limit
func NewFileTooLargeError(limit string) *APIError {
	return &APIError{
		Status:  http.StatusRequestEntityTooLarge,
		Code:    "FILE_TOO_LARGE",
		Message: fmt.Sprintf("File size must be less than %s", limit),
	}
}

// NewParseError creates a 422 error for CSV content that could not be parsed
func NewParseError(pe *parser.ParseError) *APIError {
	err := &APIError{
		Status:  http.StatusUnprocessableEntity,
		Code:    "PARSE_ERROR",
		Message: pe.Error(),
	}
	if pe.Line > 0 {
		err.Details = fmt.Sprintf("line %d", pe.Line)
	}
	return err
}

// NewIngestError maps an ingest failure to its API error.
// limit is the human readable upload limit used in the 413 message.
func NewIngestError(err error, limit string) *APIError {
	var pe *parser.ParseError
	switch {
	case errors.Is(err, parser.ErrInvalidFileType):
		return NewInvalidFileTypeError("Please upload a CSV file")
	case errors.Is(err, parser.ErrFileTooLarge):
		return NewFileTooLargeError(limit)
	case errors.As(err, &pe):
		return NewParseError(pe)
	default:
		return NewInternalError("failed to read upload", err)
	}
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewServiceUnavailableError creates a 503 Service Unavailable error
func NewServiceUnavailableError(message string) *APIError {
	return &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
	}
}

// ShowErrorDetails includes the underlying error text in responses for
// unexpected errors. Disable in production.
var ShowErrorDetails = true

// ErrorHandler middleware for Echo
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError

	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &httpErr):
		apiErr = &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
		if httpErr.Code == http.StatusRequestEntityTooLarge {
			apiErr.Code = "FILE_TOO_LARGE"
		}
	default:
		apiErr = &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "UNKNOWN_ERROR",
			Message: "An unexpected error occurred",
		}
		if ShowErrorDetails {
			apiErr.Details = err.Error()
		}
	}

	// Send JSON response
	if !c.Response().Committed {
		c.JSON(apiErr.Status, apiErr)
	}
}
