package api

import (
	"net/http"

	"github.com/shoplite/storefront-api/internal/models"
	"github.com/shoplite/storefront-api/internal/respond"
)

// ListAddressesHandler handles GET /api/v1/addresses
func (a *App) ListAddressesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	addresses, err := a.addressService.List(r.Context(), userID)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, addresses)
}

// CreateAddressHandler handles POST /api/v1/addresses
func (a *App) CreateAddressHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	var req models.CreateAddressRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	address, err := a.addressService.Create(r.Context(), userID, req)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, address)
}

// UpdateAddressHandler handles PUT /api/v1/addresses/{id}
func (a *App) UpdateAddressHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	addressID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}

	var req models.CreateAddressRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	address, err := a.addressService.Update(r.Context(), addressID, userID, req)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, address)
}

// DeleteAddressHandler handles DELETE /api/v1/addresses/{id}
func (a *App) DeleteAddressHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	addressID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}

	if err := a.addressService.Delete(r.Context(), addressID, userID); err != nil {
		respond.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
