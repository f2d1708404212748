package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/models"
	"github.com/beamline/beamline/internal/store"
	"github.com/beamline/beamline/internal/web/response"
)

// APIKeyHeader carries service credentials issued to integrations.
const APIKeyHeader = "X-Api-Key"

// Authenticator resolves a request credential into an identity. Three
// credential types are accepted, checked in order: API key header, Bearer
// JWT, session cookie.
type Authenticator struct {
	tokens   *auth.TokenService
	sessions auth.SessionStore
	apiKeys  *store.APIKeyRepo
	logger   *zap.Logger
}

func NewAuthenticator(tokens *auth.TokenService, sessions auth.SessionStore, apiKeys *store.APIKeyRepo, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		tokens:   tokens,
		sessions: sessions,
		apiKeys:  apiKeys,
		logger:   logger,
	}
}

// Require rejects unauthenticated requests with 401 and attaches the
// caller's identity to the context otherwise.
func (a *Authenticator) Require() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := a.identify(r)
			if err != nil {
				response.RenderUnauthorized(w, "")
				return
			}

			ctx := auth.WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission layers a permission check on top of Require. Callers
// without the permission get 403.
func (a *Authenticator) RequirePermission(perm auth.Permission) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := auth.IdentityFrom(r.Context())
			if identity == nil {
				response.RenderUnauthorized(w, "")
				return
			}
			if !identity.Can(perm) {
				response.RenderForbidden(w, "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (a *Authenticator) identify(r *http.Request) (*auth.Identity, error) {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return a.identifyAPIKey(r.Context(), key)
	}

	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return nil, auth.ErrUnauthorized
		}
		identity, err := a.tokens.Validate(token)
		if err != nil {
			return nil, auth.ErrUnauthorized
		}
		return identity, nil
	}

	if cookie, err := r.Cookie(auth.SessionCookie); err == nil {
		session, err := a.sessions.Get(r.Context(), cookie.Value)
		if err != nil {
			return nil, auth.ErrUnauthorized
		}
		return session.Identity(), nil
	}

	return nil, auth.ErrUnauthorized
}

func (a *Authenticator) identifyAPIKey(ctx context.Context, presented string) (*auth.Identity, error) {
	prefix, secret, err := auth.SplitAPIKey(presented)
	if err != nil {
		return nil, auth.ErrUnauthorized
	}

	key, err := a.apiKeys.GetByPrefix(ctx, prefix)
	if err != nil {
		return nil, auth.ErrUnauthorized
	}
	if key.RevokedAt != nil {
		return nil, auth.ErrUnauthorized
	}
	if !auth.CheckAPIKeySecret(secret, key.Hash) {
		return nil, auth.ErrUnauthorized
	}

	if err := a.apiKeys.TouchLastUsed(ctx, key.ID); err != nil {
		a.logger.Warn("failed to stamp api key usage", zap.Error(err))
	}

	return &auth.Identity{
		UserID:     key.CreatedBy,
		CompanyID:  key.CompanyID,
		Role:       models.RoleManager,
		ServiceKey: true,
	}, nil
}
