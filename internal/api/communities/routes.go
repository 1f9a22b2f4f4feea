package communities

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts community, membership and channel endpoints on the
// authenticated subrouter.
func RegisterRoutes(authed *mux.Router, h *Handler) {
	authed.HandleFunc("/communities", h.Create).Methods(http.MethodPost)
	authed.HandleFunc("/communities", h.ListMine).Methods(http.MethodGet)
	authed.HandleFunc("/communities/{id}", h.Get).Methods(http.MethodGet)
	authed.HandleFunc("/communities/{id}/join", h.Join).Methods(http.MethodPost)
	authed.HandleFunc("/communities/{id}/leave", h.Leave).Methods(http.MethodPost)
	authed.HandleFunc("/communities/{id}/members/{userID}/role", h.SetRole).Methods(http.MethodPut)
	authed.HandleFunc("/communities/{id}/channels", h.CreateChannel).Methods(http.MethodPost)
	authed.HandleFunc("/communities/{id}/channels", h.ListChannels).Methods(http.MethodGet)
	authed.HandleFunc("/channels/{channelID}/messages", h.ChannelHistory).Methods(http.MethodGet)
	authed.HandleFunc("/channels/{channelID}/messages", h.SendChannelMessage).Methods(http.MethodPost)
}
