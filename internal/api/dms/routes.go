package dms

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the direct-message endpoints on the authenticated
// subrouter.
func RegisterRoutes(authed *mux.Router, h *Handler) {
	authed.HandleFunc("/dms/start", h.Start).Methods(http.MethodPost)
	authed.HandleFunc("/dms", h.List).Methods(http.MethodGet)
	authed.HandleFunc("/dms/{key}/messages", h.History).Methods(http.MethodGet)
	authed.HandleFunc("/dms/send", h.Send).Methods(http.MethodPost)
}
