// Package errors defines the structured API error body and the mapping from
// domain errors to HTTP responses.
package errors

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"macropulse/internal/pipeline"
	"macropulse/internal/services"
)

// APIError is the JSON error body returned by every failing endpoint.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// New creates an APIError.
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message}
}

// NewWithDetails creates an APIError carrying extra context.
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message, Details: details}
}

// ErrValidation builds a field-level validation error.
func ErrValidation(field, message string) *APIError {
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed",
		map[string]string{"field": field, "message": message})
}

// FromDomain maps pipeline and service errors onto the HTTP taxonomy:
// inverted range and unknown labels are client errors, duplicate columns are
// unprocessable, a run where every fetch failed is an upstream failure.
// Anything unrecognized is an internal server error.
func FromDomain(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var rangeErr *pipeline.InvalidRangeError
	if errors.As(err, &rangeErr) {
		return New(http.StatusBadRequest, "INVALID_RANGE", rangeErr.Error())
	}

	var labelErr *services.UnknownLabelError
	if errors.As(err, &labelErr) {
		return NewWithDetails(http.StatusBadRequest, "UNKNOWN_SERIES", labelErr.Error(), labelErr.Label)
	}

	var dupErr *pipeline.DuplicateColumnError
	if errors.As(err, &dupErr) {
		return NewWithDetails(http.StatusUnprocessableEntity, "DUPLICATE_COLUMN", dupErr.Error(), dupErr.Name)
	}

	var allFailed *services.AllFailedError
	if errors.As(err, &allFailed) {
		details := make([]map[string]string, len(allFailed.Failures))
		for i, f := range allFailed.Failures {
			details[i] = map[string]string{"label": f.Label, "cause": f.Err.Error()}
		}
		return NewWithDetails(http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", allFailed.Error(), details)
	}

	var fetchErr *pipeline.FetchError
	if errors.As(err, &fetchErr) {
		return New(http.StatusBadGateway, "FETCH_FAILED", fetchErr.Error())
	}

	return New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", err.Error())
}
