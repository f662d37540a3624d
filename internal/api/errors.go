// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/vistoria/inspection/internal/inspection"
	"github.com/vistoria/inspection/internal/repository"
	"github.com/vistoria/inspection/internal/session"
	"github.com/vistoria/inspection/internal/storage"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int               `json:"-"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
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

// NewFieldValidationError creates a 422 error listing every rejected form field
func NewFieldValidationError(fields map[string]string) *APIError {
	return &APIError{
		Status:  http.StatusUnprocessableEntity,
		Code:    "VALIDATION_ERROR",
		Message: "inspection form has invalid fields",
		Fields:  fields,
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

// NewUnsupportedMediaTypeError creates a 415 error for rejected uploads
func NewUnsupportedMediaTypeError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusUnsupportedMediaType,
		Code:    "UNSUPPORTED_MEDIA_TYPE",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
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

// errRef names the resources a request touched, for not-found messages and
// field-level validation errors.
type errRef struct {
	draftID      string
	itemID       string
	imageID      string
	inspectionID string
	field        string
}

// fromDomainError maps errors returned by the draft manager, form, repository
// and photo store onto API errors.
func fromDomainError(err error, ref errRef) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var verr *inspection.ValidationError
	if errors.As(err, &verr) {
		return NewFieldValidationError(verr.Fields)
	}

	switch {
	case errors.Is(err, inspection.ErrSaveFailed):
		e := NewServiceUnavailableError("inspection could not be saved, the draft was kept")
		e.Details = err.Error()
		return e
	case errors.Is(err, session.ErrDraftNotFound):
		return NewNotFoundError("draft", ref.draftID)
	case errors.Is(err, session.ErrTooManyDrafts):
		return NewServiceUnavailableError("too many open drafts, try again later")
	case errors.Is(err, inspection.ErrItemNotFound):
		return NewNotFoundError("checklist item", ref.itemID)
	case errors.Is(err, repository.ErrNotFound):
		return NewNotFoundError("inspection", ref.inspectionID)
	case errors.Is(err, storage.ErrNotFound):
		return NewNotFoundError("image", ref.imageID)
	case errors.Is(err, storage.ErrUnsupportedType):
		return NewUnsupportedMediaTypeError("only image uploads are accepted", err)
	case errors.Is(err, inspection.ErrInvalidValue), errors.Is(err, inspection.ErrUnknownField):
		field := ref.field
		if field == "" {
			field = "value"
		}
		return NewFieldValidationError(map[string]string{field: err.Error()})
	}
	return NewInternalError("unexpected error", err)
}

// ErrorHandler middleware for Echo
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError

	switch e := err.(type) {
	case *APIError:
		apiErr = e
	case *echo.HTTPError:
		apiErr = &APIError{
			Status:  e.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", e.Message),
		}
	default:
		apiErr = &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "UNKNOWN_ERROR",
			Message: "An unexpected error occurred",
		}
		if isDevelopment() {
			apiErr.Details = err.Error()
		}
	}

	// HEAD responses carry no body
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(apiErr.Status)
		return
	}
	_ = c.JSON(apiErr.Status, apiErr)
}

// isDevelopment reports whether unexpected error details may be returned to clients
func isDevelopment() bool {
	return os.Getenv("APP_ENV") != "production"
}

// RespondWithError is a helper to respond with an APIError
func RespondWithError(c echo.Context, err *APIError) error {
	return c.JSON(err.Status, err)
}
