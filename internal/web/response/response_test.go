package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamline/beamline/internal/activity"
	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/store"
	"github.com/beamline/beamline/internal/workflow"
)

func TestRenderErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", store.ErrNotFound, http.StatusNotFound, "not_found"},
		{"wrapped not found", fmt.Errorf("load phase: %w", store.ErrNotFound), http.StatusNotFound, "not_found"},
		{"unauthorized", auth.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"session missing", auth.ErrSessionNotFound, http.StatusUnauthorized, "unauthorized"},
		{"forbidden", auth.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"transition forbidden", workflow.ErrTransitionForbidden, http.StatusForbidden, "forbidden"},
		{"invalid transition", workflow.ErrInvalidTransition, http.StatusConflict, "conflict"},
		{"unique violation", store.ErrUniqueViolation, http.StatusConflict, "conflict"},
		{"already undone", activity.ErrAlreadyUndone, http.StatusConflict, "conflict"},
		{"not undoable", activity.ErrNotUndoable, http.StatusUnprocessableEntity, "unprocessable_entity"},
		{"check violation", store.ErrCheckViolation, http.StatusUnprocessableEntity, "unprocessable_entity"},
		{"unknown", errors.New("pg connection dropped"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RenderError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}

func TestRenderErrorHidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	RenderError(rec, errors.New("dial tcp 10.1.2.3:5432: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.1.2.3")
	assert.Contains(t, rec.Body.String(), "An unexpected error occurred")
}

func TestRenderErrorValidation(t *testing.T) {
	rec := httptest.NewRecorder()
	RenderError(rec, NewValidationError(map[string]string{"amount_cents": "must be positive"}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation_failed", body.Error)
	assert.Equal(t, "must be positive", body.Details["amount_cents"])
}

func TestRenderJSONContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	RenderJSON(rec, http.StatusCreated, map[string]string{"id": "x"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
}
