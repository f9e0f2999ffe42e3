package api

import (
	"net/http"

	"github.com/shoplite/storefront-api/internal/models"
	"github.com/shoplite/storefront-api/internal/respond"
)

// CreateOrderHandler handles POST /api/v1/orders
func (a *App) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	var req models.CreateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	order, err := a.orderService.Create(r.Context(), userID, req)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, order)
}

// CheckoutHandler handles POST /api/v1/checkout
func (a *App) CheckoutHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	var req models.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	order, err := a.orderService.Checkout(r.Context(), userID, req)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, order)
}

// GetOrderHandler handles GET /api/v1/orders/{id}
func (a *App) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	orderID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}

	order, err := a.orderService.Get(r.Context(), orderID, userID)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, order)
}

// ListOrdersHandler handles GET /api/v1/orders
func (a *App) ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	orders, err := a.orderService.ListForUser(r.Context(), userID)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, orders)
}

// CancelOrderHandler handles POST /api/v1/orders/{id}/cancel
func (a *App) CancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		respond.Error(w, err)
		return
	}

	orderID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}

	order, err := a.orderService.Cancel(r.Context(), orderID, userID)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, order)
}

// UpdateOrderStatusHandler handles PUT /api/v1/orders/{id}/status
func (a *App) UpdateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}

	var req models.UpdateOrderStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, err)
		return
	}

	order, err := a.orderService.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, order)
}

// MarkOrderPaidHandler handles POST /api/v1/orders/{id}/pay
func (a *App) MarkOrderPaidHandler(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, err)
		return
	}

	order, err := a.orderService.MarkPaid(r.Context(), orderID)
	if err != nil {
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, order)
}
