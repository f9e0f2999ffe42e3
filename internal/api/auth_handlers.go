package api

import (
	"net/http"

	"github.com/shoplite/storefront-api/internal/auth"
	"github.com/shoplite/storefront-api/internal/models"
	"github.com/shoplite/storefront-api/internal/respond"
)

// RegisterHandler handles POST /api/v1/auth/register
func (a *App) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	user, err := a.userService.Register(r.Context(), req)
	if err != nil {
		respond.Error(w, err)
		return
	}

	access, refresh, err := a.tokens.IssuePair(user.ID, user.IsStaff)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, models.AuthResponse{
		User:    user,
		Access:  access,
		Refresh: refresh,
	})
}

// LoginHandler handles POST /api/v1/auth/login
func (a *App) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	user, err := a.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respond.Error(w, err)
		return
	}

	access, refresh, err := a.tokens.IssuePair(user.ID, user.IsStaff)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, models.AuthResponse{
		User:    user,
		Access:  access,
		Refresh: refresh,
	})
}

// RefreshHandler handles POST /api/v1/auth/refresh
func (a *App) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	identity, err := a.tokens.Verify(req.RefreshToken, auth.TokenTypeRefresh)
	if err != nil {
		respond.Error(w, err)
		return
	}

	access, refresh, err := a.tokens.IssuePair(identity.UserID, identity.IsStaff)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, models.AuthResponse{
		Access:  access,
		Refresh: refresh,
	})
}

// MeHandler handles GET /api/v1/me
func (a *App) MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	user, err := a.userService.Get(r.Context(), userID)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, user)
}
