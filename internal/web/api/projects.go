package api

import (
	"net/http"
	"strconv"

	"github.com/beamline/beamline/internal/service"
	"github.com/beamline/beamline/internal/web/response"
)

func (a *API) handleListProjects(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	projects, err := a.services.Projects.List(r.Context(), id)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, projects)
}

func (a *API) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	var in service.ProjectInput
	if !decode(w, r, &in) {
		return
	}

	project, err := a.services.Projects.Create(r.Context(), id, in)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusCreated, project)
}

func (a *API) handleGetProject(w http.ResponseWriter, r *http.Request) {
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

	project, err := a.services.Projects.Get(r.Context(), id, projectID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, project)
}

func (a *API) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
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

	var in service.ProjectInput
	if !decode(w, r, &in) {
		return
	}

	project, err := a.services.Projects.Update(r.Context(), id, projectID, in)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, project)
}

func (a *API) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
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

	if err := a.services.Projects.Delete(r.Context(), id, projectID); err != nil {
		response.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleProjectSummary(w http.ResponseWriter, r *http.Request) {
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

	summary, err := a.services.Projects.Summary(r.Context(), id, projectID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, summary)
}

func (a *API) handleProjectSchedule(w http.ResponseWriter, r *http.Request) {
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

	rows, err := a.services.Phases.Schedule(r.Context(), id, projectID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, rows)
}

func (a *API) handleProjectActivity(w http.ResponseWriter, r *http.Request) {
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

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	entries, err := a.services.Projects.Activity(r.Context(), id, projectID, limit)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, entries)
}

func (a *API) handleUndo(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	entryID, err := urlUUID(r, "entryID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	if err := a.services.Undo.Undo(r.Context(), id, entryID); err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, map[string]string{"status": "undone"})
}
