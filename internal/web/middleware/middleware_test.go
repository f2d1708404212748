package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/models"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestIDGenerated(t *testing.T) {
	var captured string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, captured)
	assert.Equal(t, captured, rec.Header().Get(RequestIDHeader))
}

func TestRequestIDPropagated(t *testing.T) {
	handler := RequestID()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "upstream-id", rec.Header().Get(RequestIDHeader))
}

func TestRecoveryRendersInternalError(t *testing.T) {
	handler := Recovery(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler blew up")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal_server_error")
	assert.NotContains(t, rec.Body.String(), "handler blew up")
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	chain := NewChain(tag("first"), tag("second")).Append(tag("third"))
	rec := httptest.NewRecorder()
	chain.Then(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func newAuthenticator(t *testing.T) (*Authenticator, *auth.TokenService) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	tokens := auth.NewTokenService("test-secret", time.Hour)
	sessions := auth.NewRedisSessionStore(client)
	return NewAuthenticator(tokens, sessions, nil, zap.NewNop()), tokens
}

func TestRequireRejectsAnonymous(t *testing.T) {
	authn, _ := newAuthenticator(t)
	handler := authn.Require()(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAcceptsBearerToken(t *testing.T) {
	authn, tokens := newAuthenticator(t)

	user := &models.User{ID: uuid.New(), CompanyID: uuid.New(), Email: "pm@example.com", Role: models.RoleManager}
	token, err := tokens.Generate(user)
	require.NoError(t, err)

	var identity *auth.Identity
	handler := authn.Require()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity = auth.IdentityFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, identity)
	assert.Equal(t, user.ID, identity.UserID)
	assert.Equal(t, models.RoleManager, identity.Role)
}

func TestRequireRejectsMalformedBearer(t *testing.T) {
	authn, _ := newAuthenticator(t)
	handler := authn.Require()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequirePermission(t *testing.T) {
	authn, _ := newAuthenticator(t)

	viewer := &auth.Identity{UserID: uuid.New(), CompanyID: uuid.New(), Role: models.RoleViewer}
	handler := authn.RequirePermission(auth.ProjectsDelete)(okHandler())

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), viewer))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := &auth.Identity{UserID: uuid.New(), CompanyID: uuid.New(), Role: models.RoleAdmin}
	req = httptest.NewRequest(http.MethodDelete, "/", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), admin))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePermissionWithoutIdentity(t *testing.T) {
	authn, _ := newAuthenticator(t)
	handler := authn.RequirePermission(auth.ProjectsRead)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
