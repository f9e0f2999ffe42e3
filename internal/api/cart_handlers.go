package api

import (
	"net/http"

	"github.com/shoplite/storefront-api/internal/models"
	"github.com/shoplite/storefront-api/internal/respond"
)

// GetCartHandler handles GET /api/v1/cart
func (a *App) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	cart, err := a.cartService.Get(r.Context(), userID)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, cart)
}

// AddToCartHandler handles POST /api/v1/cart/items
func (a *App) AddToCartHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	var req models.AddToCartRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	if err := a.cartService.AddItem(r.Context(), userID, req.ProductID, req.Quantity); err != nil {
		respond.Error(w, err)
		return
	}

	cart, err := a.cartService.Get(r.Context(), userID)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, cart)
}

// UpdateCartItemHandler handles PUT /api/v1/cart/items/{productID}
func (a *App) UpdateCartItemHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	productID, err := pathID(r, "productID")
	if err != nil {
		respond.Error(w, err)
		return
	}

	var req models.UpdateCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	if err := a.cartService.UpdateItemQuantity(r.Context(), userID, productID, req.Quantity); err != nil {
		respond.Error(w, err)
		return
	}

	cart, err := a.cartService.Get(r.Context(), userID)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, cart)
}

// RemoveFromCartHandler handles DELETE /api/v1/cart/items/{productID}
func (a *App) RemoveFromCartHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	productID, err := pathID(r, "productID")
	if err != nil {
		respond.Error(w, err)
		return
	}

	if err := a.cartService.RemoveItem(r.Context(), userID, productID); err != nil {
		respond.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearCartHandler handles DELETE /api/v1/cart
func (a *App) ClearCartHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	if err := a.cartService.Clear(r.Context(), userID); err != nil {
		respond.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
