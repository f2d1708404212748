package api

import (
	"net/http"

	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/models"
	"github.com/beamline/beamline/internal/web/response"
)

func (a *API) handleListAPIKeys(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	keys, err := a.store.APIKeys.List(r.Context(), id.CompanyID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, keys)
}

type createKeyRequest struct {
	Name string `json:"name"`
}

type createKeyResponse struct {
	Key       *models.APIKey `json:"key"`
	Plaintext string         `json:"plaintext"`
}

// handleCreateAPIKey mints a key. The plaintext is returned exactly once;
// only the hash is stored.
func (a *API) handleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	var req createKeyRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		response.RenderBadRequest(w, "name is required")
		return
	}

	plaintext, prefix, hash, err := auth.GenerateAPIKey()
	if err != nil {
		response.RenderError(w, err)
		return
	}

	key := &models.APIKey{
		CompanyID: id.CompanyID,
		Name:      req.Name,
		Prefix:    prefix,
		Hash:      hash,
		CreatedBy: id.UserID,
	}
	if err := a.store.APIKeys.Insert(r.Context(), key); err != nil {
		response.RenderError(w, err)
		return
	}

	response.RenderJSON(w, http.StatusCreated, createKeyResponse{
		Key:       key,
		Plaintext: plaintext,
	})
}

func (a *API) handleRevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	keyID, err := urlUUID(r, "keyID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	if err := a.store.APIKeys.Revoke(r.Context(), id.CompanyID, keyID); err != nil {
		response.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
