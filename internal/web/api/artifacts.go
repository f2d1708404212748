package api

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/beamline/beamline/internal/service"
	"github.com/beamline/beamline/internal/web/response"
)

// uploadFile pulls the "file" part out of a multipart upload.
func uploadFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		response.RenderBadRequest(w, "invalid multipart form: "+err.Error())
		return nil, nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		response.RenderBadRequest(w, "missing file field")
		return nil, nil, false
	}
	return file, header, true
}

func partContentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (a *API) handleListDocuments(w http.ResponseWriter, r *http.Request) {
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

	docs, err := a.services.Artifacts.ListDocuments(r.Context(), id, projectID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, docs)
}

func (a *API) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
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

	file, header, ok := uploadFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	in := service.DocumentInput{
		Title: r.FormValue("title"),
		Tags:  r.Form["tags"],
	}
	doc, err := a.services.Artifacts.UploadDocument(r.Context(), id, projectID, in, partContentType(header), file)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusCreated, doc)
}

func (a *API) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	docID, err := urlUUID(r, "documentID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	doc, err := a.services.Artifacts.GetDocument(r.Context(), id, docID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, doc)
}

func (a *API) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	docID, err := urlUUID(r, "documentID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	var in service.DocumentInput
	if !decode(w, r, &in) {
		return
	}

	doc, err := a.services.Artifacts.UpdateDocument(r.Context(), id, docID, in)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, doc)
}

func (a *API) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	docID, err := urlUUID(r, "documentID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	if err := a.services.Artifacts.DeleteDocument(r.Context(), id, docID); err != nil {
		response.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleDocumentDownload(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	docID, err := urlUUID(r, "documentID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	url, err := a.services.Artifacts.DocumentURL(r.Context(), id, docID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (a *API) handleListPhotos(w http.ResponseWriter, r *http.Request) {
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

	photos, err := a.services.Artifacts.ListPhotos(r.Context(), id, projectID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, photos)
}

func (a *API) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
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

	file, header, ok := uploadFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	in := service.PhotoInput{
		Caption: r.FormValue("caption"),
		Tags:    r.Form["tags"],
	}
	if raw := r.FormValue("phase_id"); raw != "" {
		phaseID, err := uuid.Parse(raw)
		if err != nil {
			response.RenderBadRequest(w, "invalid phase_id")
			return
		}
		in.PhaseID = &phaseID
	}
	if raw := r.FormValue("taken_at"); raw != "" {
		takenAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.RenderBadRequest(w, "taken_at must be RFC3339")
			return
		}
		in.TakenAt = &takenAt
	}

	photo, err := a.services.Artifacts.UploadPhoto(r.Context(), id, projectID, in, partContentType(header), file)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusCreated, photo)
}

func (a *API) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	photoID, err := urlUUID(r, "photoID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	photo, err := a.services.Artifacts.GetPhoto(r.Context(), id, photoID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, photo)
}

func (a *API) handleUpdatePhoto(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	photoID, err := urlUUID(r, "photoID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	var in service.PhotoInput
	if !decode(w, r, &in) {
		return
	}

	photo, err := a.services.Artifacts.UpdatePhoto(r.Context(), id, photoID, in)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, photo)
}

func (a *API) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	photoID, err := urlUUID(r, "photoID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	if err := a.services.Artifacts.DeletePhoto(r.Context(), id, photoID); err != nil {
		response.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handlePhotoDownload(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	photoID, err := urlUUID(r, "photoID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	url, err := a.services.Artifacts.PhotoURL(r.Context(), id, photoID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (a *API) handleListAnnotations(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	photoID, err := urlUUID(r, "photoID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	annotations, err := a.services.Artifacts.Annotations(r.Context(), id, photoID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, annotations)
}

func (a *API) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	photoID, err := urlUUID(r, "photoID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	var in service.AnnotationInput
	if !decode(w, r, &in) {
		return
	}

	annotation, err := a.services.Artifacts.Annotate(r.Context(), id, photoID, in)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusCreated, annotation)
}

func (a *API) handleDeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	annotationID, err := urlUUID(r, "annotationID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	if err := a.services.Artifacts.DeleteAnnotation(r.Context(), id, annotationID); err != nil {
		response.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type checklistItemRequest struct {
	Body string `json:"body"`
}

func (a *API) handleChecklist(w http.ResponseWriter, r *http.Request) {
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

	items, err := a.services.Artifacts.Checklist(r.Context(), id, phaseID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, items)
}

func (a *API) handleAddChecklistItem(w http.ResponseWriter, r *http.Request) {
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

	var req checklistItemRequest
	if !decode(w, r, &req) {
		return
	}

	item, err := a.services.Artifacts.AddChecklistItem(r.Context(), id, phaseID, req.Body)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusCreated, item)
}

func (a *API) handleToggleChecklistItem(w http.ResponseWriter, r *http.Request) {
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

	item, err := a.services.Artifacts.ToggleChecklistItem(r.Context(), id, itemID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, item)
}

func (a *API) handleDeleteChecklistItem(w http.ResponseWriter, r *http.Request) {
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

	if err := a.services.Artifacts.DeleteChecklistItem(r.Context(), id, itemID); err != nil {
		response.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListVoiceNotes(w http.ResponseWriter, r *http.Request) {
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

	notes, err := a.services.Artifacts.ListVoiceNotes(r.Context(), id, projectID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, notes)
}

func (a *API) handleUploadVoiceNote(w http.ResponseWriter, r *http.Request) {
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

	file, header, ok := uploadFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	duration, _ := strconv.Atoi(r.FormValue("duration_seconds"))

	note, err := a.services.Artifacts.UploadVoiceNote(r.Context(), id, projectID, duration, partContentType(header), file)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusCreated, note)
}

func (a *API) handleGetVoiceNote(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	noteID, err := urlUUID(r, "noteID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	note, err := a.services.Artifacts.GetVoiceNote(r.Context(), id, noteID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, note)
}

func (a *API) handleDeleteVoiceNote(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	noteID, err := urlUUID(r, "noteID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	if err := a.services.Artifacts.DeleteVoiceNote(r.Context(), id, noteID); err != nil {
		response.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleVoiceNoteDownload(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	noteID, err := urlUUID(r, "noteID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	url, err := a.services.Artifacts.VoiceNoteURL(r.Context(), id, noteID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, map[string]string{"url": url})
}
