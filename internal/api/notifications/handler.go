package notifications

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/connectly/connectly-backend/internal/api/respond"
	"github.com/connectly/connectly-backend/internal/middleware"
	"github.com/connectly/connectly-backend/internal/models"
	"github.com/connectly/connectly-backend/internal/storage"
)

// Handler serves the caller's notification list.
type Handler struct {
	Notifications storage.NotificationStore
	Log           *zap.Logger
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Notifications.ListForUser(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		respond.StoreError(w, err)
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	respond.JSON(w, http.StatusOK, list)
}

func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.Notifications.MarkAllRead(r.Context(), middleware.UserID(r.Context())); err != nil {
		respond.StoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
