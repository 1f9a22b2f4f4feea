package authapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the account endpoints. The me route sits on the
// authenticated subrouter, register/login on the public one.
func RegisterRoutes(public, authed *mux.Router, h *Handler) {
	public.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost)
	public.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	authed.HandleFunc("/auth/me", h.Me).Methods(http.MethodGet)
}
