// Package respond centralizes JSON response writing and the mapping from
// store sentinel errors to HTTP statuses.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/connectly/connectly-backend/internal/storage"
)

type errorBody struct {
	Error string `json:"error"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes a structured error payload.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, errorBody{Error: msg})
}

// StoreError maps a store sentinel onto an HTTP error response. Unknown
// errors become a generic 500 so internals never leak.
func StoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrForbidden):
		Error(w, http.StatusForbidden, "not allowed")
	case errors.Is(err, storage.ErrConflict):
		Error(w, http.StatusConflict, "already exists")
	case errors.Is(err, storage.ErrInvalid):
		Error(w, http.StatusBadRequest, "invalid input")
	default:
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
