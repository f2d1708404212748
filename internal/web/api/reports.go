package api

import (
	"net/http"

	"github.com/beamline/beamline/internal/service"
	"github.com/beamline/beamline/internal/web/response"
)

func (a *API) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
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

	report, err := a.services.Reports.Generate(r.Context(), id, projectID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, report)
}

func (a *API) handleListSchedules(w http.ResponseWriter, r *http.Request) {
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

	schedules, err := a.services.Reports.ListSchedules(r.Context(), id, projectID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, schedules)
}

func (a *API) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
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

	var in service.ScheduleInput
	if !decode(w, r, &in) {
		return
	}

	schedule, err := a.services.Reports.CreateSchedule(r.Context(), id, projectID, in)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusCreated, schedule)
}

func (a *API) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	scheduleID, err := urlUUID(r, "scheduleID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	var in service.ScheduleInput
	if !decode(w, r, &in) {
		return
	}

	schedule, err := a.services.Reports.UpdateSchedule(r.Context(), id, scheduleID, in)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, schedule)
}

func (a *API) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	scheduleID, err := urlUUID(r, "scheduleID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	if err := a.services.Reports.DeleteSchedule(r.Context(), id, scheduleID); err != nil {
		response.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
