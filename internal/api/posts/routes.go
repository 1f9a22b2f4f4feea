package posts

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the content endpoints on the authenticated
// subrouter.
func RegisterRoutes(authed *mux.Router, h *Handler) {
	authed.HandleFunc("/posts", h.Create).Methods(http.MethodPost)
	authed.HandleFunc("/posts/feed", h.Feed).Methods(http.MethodGet)
	authed.HandleFunc("/posts/{id}", h.Get).Methods(http.MethodGet)
	authed.HandleFunc("/posts/{id}/like", h.ToggleLike).Methods(http.MethodPost)
	authed.HandleFunc("/posts/{id}/comments", h.AddComment).Methods(http.MethodPost)
	authed.HandleFunc("/posts/{id}/comments", h.Comments).Methods(http.MethodGet)
	authed.HandleFunc("/users/{id}/posts", h.ByUser).Methods(http.MethodGet)
}
