package api

import (
	"net/http"

	"github.com/beamline/beamline/internal/auth"
	"github.com/beamline/beamline/internal/models"
	"github.com/beamline/beamline/internal/web/response"
)

type userRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role"`
	Active   *bool       `json:"active"`
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	users, err := a.store.Users.List(r.Context(), id.CompanyID)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, users)
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	var req userRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		response.RenderError(w, response.NewValidationError(map[string]string{
			"email": "email and password are required",
		}))
		return
	}
	if !req.Role.Valid() {
		response.RenderError(w, response.NewValidationError(map[string]string{
			"role": "unknown role",
		}))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	user := &models.User{
		CompanyID:    id.CompanyID,
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         req.Role,
		Active:       true,
	}
	if err := a.store.Users.Create(r.Context(), user); err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusCreated, user)
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		response.RenderError(w, err)
		return
	}
	userID, err := urlUUID(r, "userID")
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	var req userRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := a.store.Users.Get(r.Context(), id.CompanyID, userID)
	if err != nil {
		response.RenderError(w, err)
		return
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Role != "" {
		if !req.Role.Valid() {
			response.RenderError(w, response.NewValidationError(map[string]string{
				"role": "unknown role",
			}))
			return
		}
		user.Role = req.Role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			response.RenderError(w, err)
			return
		}
		user.PasswordHash = hash
	}

	if err := a.store.Users.Update(r.Context(), user); err != nil {
		response.RenderError(w, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, user)
}
