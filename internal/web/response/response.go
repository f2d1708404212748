package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/beamline/beamline/internal/activity"
	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/store"
	"github.com/beamline/beamline/internal/workflow"
)

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// ValidationError carries field-level problems for a 422 response.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// NewValidationError builds a ValidationError from field/message pairs.
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// RenderJSON writes a JSON body with the given status.
func RenderJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// RenderError maps a domain error onto the HTTP status taxonomy. Unknown
// errors become an opaque 500 so internals never leak to clients.
func RenderError(w http.ResponseWriter, err error) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		RenderJSON(w, http.StatusUnprocessableEntity, &ErrorResponse{
			Error:   "validation_failed",
			Message: "The request contains invalid data",
			Code:    "validation_error",
			Details: toDetails(validationErr.Fields),
		})
		return
	}

	statusCode, code := classify(err)

	message := err.Error()
	if statusCode == http.StatusInternalServerError {
		message = "An unexpected error occurred"
	}

	RenderJSON(w, statusCode, &ErrorResponse{
		Error:   "error",
		Message: message,
		Code:    code,
	})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrSessionNotFound):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, auth.ErrForbidden),
		errors.Is(err, workflow.ErrTransitionForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, store.ErrUniqueViolation),
		errors.Is(err, activity.ErrAlreadyUndone):
		return http.StatusConflict, "conflict"
	case errors.Is(err, activity.ErrNotUndoable),
		errors.Is(err, store.ErrCheckViolation),
		errors.Is(err, store.ErrNotNullViolation),
		errors.Is(err, store.ErrForeignKeyViolation):
		return http.StatusUnprocessableEntity, "unprocessable_entity"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// RenderBadRequest writes a 400 with the given message.
func RenderBadRequest(w http.ResponseWriter, message string) {
	RenderJSON(w, http.StatusBadRequest, &ErrorResponse{
		Error:   "error",
		Message: message,
		Code:    "bad_request",
	})
}

// RenderUnauthorized writes a 401.
func RenderUnauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Authentication required"
	}
	RenderJSON(w, http.StatusUnauthorized, &ErrorResponse{
		Error:   "error",
		Message: message,
		Code:    "unauthorized",
	})
}

// RenderForbidden writes a 403.
func RenderForbidden(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Access denied"
	}
	RenderJSON(w, http.StatusForbidden, &ErrorResponse{
		Error:   "error",
		Message: message,
		Code:    "forbidden",
	})
}

// RenderNotFound writes a 404.
func RenderNotFound(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RenderJSON(w, http.StatusNotFound, &ErrorResponse{
		Error:   "error",
		Message: message,
		Code:    "not_found",
	})
}

func toDetails(fields map[string]string) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	details := make(map[string]any, len(fields))
	for k, v := range fields {
		details[k] = v
	}
	return details
}
