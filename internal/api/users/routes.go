package users

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts profile and follow-graph endpoints on the
// authenticated subrouter.
func RegisterRoutes(authed *mux.Router, h *Handler) {
	authed.HandleFunc("/users/recommended", h.Recommended).Methods(http.MethodGet)
	authed.HandleFunc("/users/me", h.UpdateProfile).Methods(http.MethodPut)
	authed.HandleFunc("/users/{id}", h.GetProfile).Methods(http.MethodGet)
	authed.HandleFunc("/users/{id}/followers", h.Followers).Methods(http.MethodGet)
	authed.HandleFunc("/users/{id}/following", h.Following).Methods(http.MethodGet)
	authed.HandleFunc("/users/{id}/friends", h.Friends).Methods(http.MethodGet)
	authed.HandleFunc("/users/{id}/follow", h.Follow).Methods(http.MethodPost)
	authed.HandleFunc("/users/{id}/follow", h.Unfollow).Methods(http.MethodDelete)
}
