package api

import (
	"net/http"

	"github.com/beamline/beamline/internal/models"
	"github.com/beamline/beamline/internal/service"
	"github.com/beamline/beamline/internal/web/response"
)

type punchItemRequest struct {
	service.PunchItemInput
	Status *models.PunchStatus `json:"status"`
}

func (a *API) handleListPunchItems(w http.ResponseWriter, r *http.Request) {
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

	items, err := a.services.PunchList.List(r.Context(), id, projectID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, items)
}

func (a *API) handleCreatePunchItem(w http.ResponseWriter, r *http.Request) {
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

	var req punchItemRequest
	if !decode(w, r, &req) {
		return
	}

	item, err := a.services.PunchList.Create(r.Context(), id, projectID, req.PunchItemInput)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusCreated, item)
}

func (a *API) handleGetPunchItem(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	itemID, err := urlUUID(r, "itemID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	item, err := a.services.PunchList.Get(r.Context(), id, itemID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, item)
}

func (a *API) handleUpdatePunchItem(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	itemID, err := urlUUID(r, "itemID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	var req punchItemRequest
	if !decode(w, r, &req) {
		return
	}

	item, err := a.services.PunchList.Update(r.Context(), id, itemID, req.PunchItemInput, req.Status)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, item)
}

func (a *API) handleClosePunchItem(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	itemID, err := urlUUID(r, "itemID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	item, err := a.services.PunchList.Close(r.Context(), id, itemID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, item)
}

func (a *API) handleDeletePunchItem(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	itemID, err := urlUUID(r, "itemID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	if err := a.services.PunchList.Delete(r.Context(), id, itemID); err != nil {
		response.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
