package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shoplite/storefront-api/internal/storeerr"
)

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", storeerr.ErrValidation)
	}
	return nil
}
