package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/web/response"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// maxUploadBytes caps multipart uploads.
const maxUploadBytes = 64 << 20

func identity(r *http.Request) (*auth.Identity, error) {
	id := auth.IdentityFrom(r.Context())
	if id == nil {
		return nil, auth.ErrUnauthorized
	}
	return id, nil
}

func urlUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New("invalid " + name)
	}
	return id, nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		response.RenderBadRequest(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}
