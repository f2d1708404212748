package service

import (
	"fmt"

	"github.com/beamline/beamline/internal/web/response"
)

// NewValidationErrorf builds a single-field validation error that the
// HTTP layer renders as a 422.
func NewValidationErrorf(field, format string, args ...any) error {
	return response.NewValidationError(map[string]string{
		field: fmt.Sprintf(format, args...),
	})
}
