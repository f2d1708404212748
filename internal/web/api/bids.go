package api

import (
	"net/http"

	"github.com/beamline/beamline/internal/models"
	"github.com/beamline/beamline/internal/service"
	"github.com/beamline/beamline/internal/web/response"
)

func (a *API) handleListBids(w http.ResponseWriter, r *http.Request) {
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

	bids, err := a.services.Bids.List(r.Context(), id, projectID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, bids)
}

func (a *API) handleCreateBid(w http.ResponseWriter, r *http.Request) {
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

	var in service.BidInput
	if !decode(w, r, &in) {
		return
	}

	bid, err := a.services.Bids.Create(r.Context(), id, projectID, in)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusCreated, bid)
}

func (a *API) handleGetBid(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	bidID, err := urlUUID(r, "bidID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	bid, err := a.services.Bids.Get(r.Context(), id, bidID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, bid)
}

func (a *API) handleUpdateBid(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	bidID, err := urlUUID(r, "bidID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	var in service.BidInput
	if !decode(w, r, &in) {
		return
	}

	bid, err := a.services.Bids.Update(r.Context(), id, bidID, in)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, bid)
}

type bidStatusRequest struct {
	Status models.BidStatus `json:"status"`
}

func (a *API) handleBidStatus(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	bidID, err := urlUUID(r, "bidID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	var req bidStatusRequest
	if !decode(w, r, &req) {
		return
	}

	bid, err := a.services.Bids.SetStatus(r.Context(), id, bidID, req.Status)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, bid)
}

func (a *API) handleDeleteBid(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	bidID, err := urlUUID(r, "bidID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	if err := a.services.Bids.Delete(r.Context(), id, bidID); err != nil {
		response.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
