package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/beamline/beamline/internal/activity"
	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/blob"
	"github.com/beamline/beamline/internal/cache"
	"github.com/beamline/beamline/internal/jobs"
	"github.com/beamline/beamline/internal/models"
	"github.com/beamline/beamline/internal/notify"
	"github.com/beamline/beamline/internal/service"
	"github.com/beamline/beamline/internal/store"
)

type apiHarness struct {
	router http.Handler
	mock   sqlmock.Sqlmock
	tokens *auth.TokenService
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	blobs, err := blob.NewFilesystemStore(t.TempDir(), "http://localhost:8080/files", []byte("test-secret"))
	require.NoError(t, err)

	st := store.New(db)
	logger := zap.NewNop()
	services := service.New(service.Deps{
		Store:    st,
		Cache:    cache.NewMemoryCache(),
		Blobs:    blobs,
		Queue:    jobs.NewQueue(db),
		Recorder: activity.NewRecorder(st.Activity, logger),
		Notifier: notify.NewNotifier(st.Notifications, nil, logger),
		Logger:   logger,
	})

	tokens := auth.NewTokenService("test-secret", time.Hour)
	cfg := Config{
		Services:   services,
		Store:      st,
		Tokens:     tokens,
		Sessions:   auth.NewRedisSessionStore(rdb),
		SessionTTL: time.Hour,
		Logger:     logger,
	}
	app := New(cfg)
	return &apiHarness{router: app.Handler(cfg), mock: mock, tokens: tokens}
}

func (h *apiHarness) bearerFor(t *testing.T, role models.Role) (string, *models.User) {
	t.Helper()
	user := &models.User{
		ID:        uuid.New(),
		CompanyID: uuid.New(),
		Email:     "user@example.com",
		Role:      role,
		Active:    true,
	}
	token, err := h.tokens.Generate(user)
	require.NoError(t, err)
	return token, user
}

func TestHealthz(t *testing.T) {
	h := newAPIHarness(t)

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"), "middleware chain should tag responses")
}

func TestLogin(t *testing.T) {
	h := newAPIHarness(t)

	hash, err := auth.HashPassword("builder123")
	require.NoError(t, err)
	userID, companyID := uuid.New(), uuid.New()

	h.mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1 AND active`).
		WithArgs("pm@example.com").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "company_id", "email", "password_hash", "name", "role", "active",
			"created_at", "updated_at",
		}).AddRow(userID, companyID, "pm@example.com", hash, "Pat", models.RoleManager,
			true, time.Now(), time.Now()))

	body, _ := json.Marshal(map[string]string{"email": "pm@example.com", "password": "builder123"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token  string `json:"token"`
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, userID.String(), resp.UserID)
	assert.Equal(t, "MANAGER", resp.Role)

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	assert.True(t, sessionCookie.HttpOnly)
}

func TestLoginWrongPassword(t *testing.T) {
	h := newAPIHarness(t)

	hash, err := auth.HashPassword("builder123")
	require.NoError(t, err)

	h.mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1 AND active`).
		WithArgs("pm@example.com").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "company_id", "email", "password_hash", "name", "role", "active",
			"created_at", "updated_at",
		}).AddRow(uuid.New(), uuid.New(), "pm@example.com", hash, "Pat", models.RoleManager,
			true, time.Now(), time.Now()))

	body, _ := json.Marshal(map[string]string{"email": "pm@example.com", "password": "wrong"})
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/login", bytes.NewReader(body)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid email or password")
}

func TestLoginUnknownEmail(t *testing.T) {
	h := newAPIHarness(t)

	h.mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1 AND active`).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	body, _ := json.Marshal(map[string]string{"email": "ghost@example.com", "password": "whatever"})
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/login", bytes.NewReader(body)))

	// Unknown email answers the same as a bad password.
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid email or password")
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	h := newAPIHarness(t)

	for _, path := range []string{"/api/v1/me", "/api/v1/projects", "/api/v1/users"} {
		rec := httptest.NewRecorder()
		h.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestCreateUserRequiresAdminRole(t *testing.T) {
	h := newAPIHarness(t)
	token, _ := h.bearerFor(t, models.RoleManager)

	body, _ := json.Marshal(map[string]string{
		"email": "new@example.com", "password": "secret123", "role": "STAFF",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateUserAsAdmin(t *testing.T) {
	h := newAPIHarness(t)
	token, admin := h.bearerFor(t, models.RoleAdmin)

	h.mock.ExpectExec(`INSERT INTO users`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	body, _ := json.Marshal(map[string]string{
		"email": "new@example.com", "password": "secret123", "role": "STAFF", "name": "New Hire",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, admin.CompanyID, created.CompanyID)
	assert.Equal(t, models.RoleStaff, created.Role)
	assert.True(t, created.Active)
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	h := newAPIHarness(t)
	token, _ := h.bearerFor(t, models.RoleAdmin)

	body, _ := json.Marshal(map[string]string{
		"email": "new@example.com", "password": "secret123", "role": "OVERLORD",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRejectsUnknownJSONFields(t *testing.T) {
	h := newAPIHarness(t)
	token, _ := h.bearerFor(t, models.RoleAdmin)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users",
		bytes.NewReader([]byte(`{"email":"x@example.com","password":"p","is_admin":true}`)))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIKeyAuthentication(t *testing.T) {
	h := newAPIHarness(t)

	plaintext, prefix, hash, err := auth.GenerateAPIKey()
	require.NoError(t, err)

	companyID, createdBy := uuid.New(), uuid.New()
	keyID := uuid.New()

	h.mock.ExpectQuery(`SELECT (.+) FROM api_keys WHERE prefix = \$1`).
		WithArgs(prefix).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "company_id", "name", "prefix", "hash", "created_by",
			"last_used_at", "revoked_at", "created_at",
		}).AddRow(keyID, companyID, "ci", prefix, hash, createdBy, nil, nil, time.Now()))
	h.mock.ExpectExec(`UPDATE api_keys SET last_used_at`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	h.mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).
		WithArgs(createdBy, companyID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "company_id", "email", "password_hash", "name", "role", "active",
			"created_at", "updated_at",
		}).AddRow(createdBy, companyID, "owner@example.com", "x", "Owner", models.RoleManager,
			true, time.Now(), time.Now()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("X-Api-Key", plaintext)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
