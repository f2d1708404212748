package api

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/beamline/beamline/internal/web/response"
)

const qbStateCookie = "beamline_qb_state"

// handleQuickBooksConnect returns the Intuit authorize URL. The state is
// a random nonce pinned in a short-lived cookie and checked on callback.
func (a *API) handleQuickBooksConnect(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		response.RenderError(w, err)
		return
	}
	state := hex.EncodeToString(buf)

	url, err := a.services.QuickBooks.ConnectURL(id, state)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     qbStateCookie,
		Value:    state,
		Path:     "/api/v1/quickbooks",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	response.RenderJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (a *API) handleQuickBooksCallback(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(qbStateCookie)
	if err != nil || state == "" || cookie.Value != state {
		response.RenderBadRequest(w, "state mismatch")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:   qbStateCookie,
		Value:  "",
		Path:   "/api/v1/quickbooks",
		MaxAge: -1,
	})

	conn, err := a.services.QuickBooks.CompleteConnect(r.Context(), id,
		r.URL.Query().Get("code"), r.URL.Query().Get("realmId"))
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, conn)
}

func (a *API) handleQuickBooksStatus(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	status, err := a.services.QuickBooks.Status(r.Context(), id)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, status)
}

func (a *API) handleQuickBooksSync(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	result, err := a.services.QuickBooks.Sync(r.Context(), id)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, result)
}

func (a *API) handleQuickBooksDisconnect(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	if err := a.services.QuickBooks.Disconnect(r.Context(), id); err != nil {
		response.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
