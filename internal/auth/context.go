package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/beamline/beamline/internal/models"
)

var (
	// ErrUnauthorized means the caller presented no valid credential.
	ErrUnauthorized = errors.New("authentication required")

	// ErrForbidden means the caller is authenticated but lacks permission.
	ErrForbidden = errors.New("permission denied")
)

// Identity is the authenticated caller attached to a request context.
// For API-key requests UserID is the key's creator and ServiceKey is set.
type Identity struct {
	UserID     uuid.UUID
	CompanyID  uuid.UUID
	Email      string
	Role       models.Role
	ServiceKey bool
}

type contextKey string

const identityKey contextKey = "beamline_identity"

// WithIdentity returns a new context carrying the identity.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom retrieves the identity from the context.
// Returns nil if no caller is authenticated.
func IdentityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}
