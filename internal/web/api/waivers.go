package api

import (
	"net/http"

	"github.com/beamline/beamline/internal/models"
	"github.com/beamline/beamline/internal/service"
	"github.com/beamline/beamline/internal/web/response"
)

func (a *API) handleListWaivers(w http.ResponseWriter, r *http.Request) {
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

	waivers, err := a.services.Waivers.List(r.Context(), id, projectID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, waivers)
}

func (a *API) handleCreateWaiver(w http.ResponseWriter, r *http.Request) {
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

	var in service.WaiverInput
	if !decode(w, r, &in) {
		return
	}

	waiver, err := a.services.Waivers.Create(r.Context(), id, projectID, in)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusCreated, waiver)
}

func (a *API) handleGetWaiver(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	waiverID, err := urlUUID(r, "waiverID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	waiver, err := a.services.Waivers.Get(r.Context(), id, waiverID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, waiver)
}

func (a *API) handleUpdateWaiver(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	waiverID, err := urlUUID(r, "waiverID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	var in service.WaiverInput
	if !decode(w, r, &in) {
		return
	}

	waiver, err := a.services.Waivers.Update(r.Context(), id, waiverID, in)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, waiver)
}

type waiverStatusRequest struct {
	Status models.WaiverStatus `json:"status"`
}

func (a *API) handleWaiverStatus(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	waiverID, err := urlUUID(r, "waiverID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	var req waiverStatusRequest
	if !decode(w, r, &req) {
		return
	}

	waiver, err := a.services.Waivers.SetStatus(r.Context(), id, waiverID, req.Status)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, waiver)
}

func (a *API) handleDeleteWaiver(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	waiverID, err := urlUUID(r, "waiverID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	if err := a.services.Waivers.Delete(r.Context(), id, waiverID); err != nil {
		response.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
