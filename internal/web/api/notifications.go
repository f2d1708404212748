package api

import (
	"net/http"
	"strconv"

	"github.com/beamline/beamline/internal/models"
	"github.com/beamline/beamline/internal/web/response"
)

func (a *API) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	notifications, err := a.store.Notifications.ListByUser(r.Context(), id.CompanyID, id.UserID, limit)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, notifications)
}

func (a *API) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	count, err := a.store.Notifications.UnreadCount(r.Context(), id.CompanyID, id.UserID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (a *API) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	notificationID, err := urlUUID(r, "notificationID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	if err := a.store.Notifications.MarkRead(r.Context(), id.CompanyID, id.UserID, notificationID); err != nil {
		response.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	if err := a.store.Notifications.MarkAllRead(r.Context(), id.CompanyID, id.UserID); err != nil {
		response.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListPrefs(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	prefs, err := a.store.Notifications.ListPrefs(r.Context(), id.CompanyID, id.UserID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, prefs)
}

type prefRequest struct {
	Kind  string `json:"kind"`
	Email bool   `json:"email"`
	InApp bool   `json:"in_app"`
}

func (a *API) handleUpsertPref(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	var req prefRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Kind == "" {
		response.RenderBadRequest(w, "kind is required")
		return
	}

	pref := &models.NotificationPref{
		CompanyID: id.CompanyID,
		UserID:    id.UserID,
		Kind:      req.Kind,
		Email:     req.Email,
		InApp:     req.InApp,
	}
	if err := a.store.Notifications.UpsertPref(r.Context(), pref); err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, pref)
}
