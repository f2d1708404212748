package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/web/response"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	CompanyID string    `json:"company_id"`
	Role      string    `json:"role"`
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.RenderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLogin checks credentials, starts a session cookie and returns a
// bearer token for API clients. Bad credentials always render the same
// 401 regardless of which part failed.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := a.store.Users.GetByEmail(r.Context(), req.Email)
	if err != nil || !user.Active || !auth.CheckPassword(req.Password, user.PasswordHash) {
		response.RenderUnauthorized(w, "invalid email or password")
		return
	}

	session := auth.NewSession(user)
	if err := a.sessions.Set(r.Context(), session, a.sessionTTL); err != nil {
		a.logger.Error("failed to store session", zap.Error(err))
		response.RenderError(w, err)
		return
	}

	token, err := a.tokens.Generate(user)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	response.RenderJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		UserID:    user.ID.String(),
		CompanyID: user.CompanyID.String(),
		Role:      string(user.Role),
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookie); err == nil {
		if err := a.sessions.Delete(r.Context(), cookie.Value); err != nil {
			a.logger.Warn("failed to delete session", zap.Error(err))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	user, err := a.store.Users.Get(r.Context(), id.CompanyID, id.UserID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, user)
}

func (a *API) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	if err := a.hub.Serve(w, r, id.UserID); err != nil {
		a.logger.Debug("websocket upgrade failed", zap.Error(err))
	}
}
