package notifications

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the notification endpoints on the authenticated
// subrouter.
func RegisterRoutes(authed *mux.Router, h *Handler) {
	authed.HandleFunc("/notifications", h.List).Methods(http.MethodGet)
	authed.HandleFunc("/notifications/read", h.MarkAllRead).Methods(http.MethodPost)
}
