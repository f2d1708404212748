package api

import (
	"net/http"

	"github.com/beamline/beamline/internal/service"
	"github.com/beamline/beamline/internal/web/response"
)

func (a *API) handleListPayApps(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	projectID, err := urlUUID(r, "projectID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	apps, err := a.services.PayApps.List(r.Context(), id, projectID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, apps)
}

func (a *API) handleCreatePayApp(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	projectID, err := urlUUID(r, "projectID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	var in service.PayAppInput
	if !decode(w, r, &in) {
		return
	}

	app, err := a.services.PayApps.Create(r.Context(), id, projectID, in)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusCreated, app)
}

func (a *API) handleGetPayApp(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	appID, err := urlUUID(r, "appID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	app, err := a.services.PayApps.Get(r.Context(), id, appID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, app)
}

func (a *API) handleUpdatePayApp(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	appID, err := urlUUID(r, "appID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	var in service.PayAppInput
	if !decode(w, r, &in) {
		return
	}

	app, err := a.services.PayApps.Update(r.Context(), id, appID, in)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, app)
}

func (a *API) handleSubmitPayApp(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	appID, err := urlUUID(r, "appID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	app, err := a.services.PayApps.Submit(r.Context(), id, appID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, app)
}

type approveRequest struct {
	AmountApprovedCents int64 `json:"amount_approved_cents"`
}

func (a *API) handleApprovePayApp(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	appID, err := urlUUID(r, "appID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	var req approveRequest
	if !decode(w, r, &req) {
		return
	}

	app, err := a.services.PayApps.Approve(r.Context(), id, appID, req.AmountApprovedCents)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, app)
}

func (a *API) handleRejectPayApp(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	appID, err := urlUUID(r, "appID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	app, err := a.services.PayApps.Reject(r.Context(), id, appID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, app)
}

func (a *API) handlePayPayApp(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	appID, err := urlUUID(r, "appID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	app, err := a.services.PayApps.MarkPaid(r.Context(), id, appID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, app)
}

func (a *API) handleDeletePayApp(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	appID, err := urlUUID(r, "appID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	if err := a.services.PayApps.Delete(r.Context(), id, appID); err != nil {
		response.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
