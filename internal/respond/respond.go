// Package respond writes JSON responses and maps the domain error taxonomy
// onto HTTP status codes. Handlers and middleware share it so every error,
// including auth denials, carries the same envelope.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shoplite/storefront-api/internal/storeerr"
)

// ErrorBody is the inner error payload.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorEnvelope is the wire shape of every error response.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// Status maps err to an HTTP status code and a stable error code.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, storeerr.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, storeerr.ErrInsufficientStock):
		return http.StatusBadRequest, "INSUFFICIENT_STOCK"
	case errors.Is(err, storeerr.ErrIllegalTransition):
		return http.StatusBadRequest, "ILLEGAL_TRANSITION"
	case errors.Is(err, storeerr.ErrEmptyOrder):
		return http.StatusBadRequest, "EMPTY_ORDER"
	case errors.Is(err, storeerr.ErrValidation):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, storeerr.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, storeerr.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, storeerr.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// Error writes err as a JSON error envelope. Internal errors are logged and
// their message replaced so nothing leaks to the client.
func Error(w http.ResponseWriter, err error) {
	status, code := Status(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		message = "internal server error"
	}
	JSON(w, status, ErrorEnvelope{Error: ErrorBody{Code: code, Message: message}})
}
