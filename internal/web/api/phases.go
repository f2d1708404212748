package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/beamline/beamline/internal/models"
	"github.com/beamline/beamline/internal/service"
	"github.com/beamline/beamline/internal/web/response"
)

func (a *API) handleListPhases(w http.ResponseWriter, r *http.Request) {
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

	phases, err := a.services.Phases.List(r.Context(), id, projectID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, phases)
}

func (a *API) handleCreatePhase(w http.ResponseWriter, r *http.Request) {
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

	var in service.PhaseInput
	if !decode(w, r, &in) {
		return
	}

	phase, err := a.services.Phases.Create(r.Context(), id, projectID, in)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusCreated, phase)
}

func (a *API) handleGetPhase(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	phaseID, err := urlUUID(r, "phaseID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	phase, err := a.services.Phases.Get(r.Context(), id, phaseID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, phase)
}

func (a *API) handleUpdatePhase(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	phaseID, err := urlUUID(r, "phaseID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	var in service.PhaseInput
	if !decode(w, r, &in) {
		return
	}

	phase, err := a.services.Phases.Update(r.Context(), id, phaseID, in)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, phase)
}

func (a *API) handleDeletePhase(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	phaseID, err := urlUUID(r, "phaseID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	if err := a.services.Phases.Delete(r.Context(), id, phaseID); err != nil {
		response.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type transitionRequest struct {
	Status models.PhaseStatus `json:"status"`
}

func (a *API) handleTransitionPhase(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	phaseID, err := urlUUID(r, "phaseID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	var req transitionRequest
	if !decode(w, r, &req) {
		return
	}

	phase, err := a.services.Phases.Transition(r.Context(), id, phaseID, req.Status)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, phase)
}

type assignRequest struct {
	UserID uuid.UUID             `json:"user_id"`
	Role   models.AssignmentRole `json:"role"`
}

func (a *API) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	phaseID, err := urlUUID(r, "phaseID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	assignments, err := a.services.Phases.Assignments(r.Context(), id, phaseID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, assignments)
}

func (a *API) handleAssign(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	phaseID, err := urlUUID(r, "phaseID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	var req assignRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Role == "" {
		req.Role = models.AssignmentContributor
	}

	assignment, err := a.services.Phases.Assign(r.Context(), id, phaseID, req.UserID, req.Role)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusCreated, assignment)
}

func (a *API) handleUnassign(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	assignmentID, err := urlUUID(r, "assignmentID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	if err := a.services.Phases.Unassign(r.Context(), id, assignmentID); err != nil {
		response.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
