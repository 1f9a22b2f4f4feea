package dms

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/connectly/connectly-backend/internal/api/respond"
	"github.com/connectly/connectly-backend/internal/middleware"
	"github.com/connectly/connectly-backend/internal/models"
	"github.com/connectly/connectly-backend/internal/storage"
	"github.com/connectly/connectly-backend/internal/ws"
)

// Handler serves direct-message conversations over REST. Sends go through
// the gateway so the persist-then-broadcast path is shared with the socket.
type Handler struct {
	Convs   storage.ConversationStore
	Gateway *ws.Gateway
	Log     *zap.Logger
}

// Start resolves the conversation with a peer, returning the existing room
// or an empty shell with the derived key. Rooms are created lazily on first
// message, so starting a conversation persists nothing.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PeerID string `json:"peerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	callerID := middleware.UserID(r.Context())
	if req.PeerID == "" || req.PeerID == callerID {
		respond.Error(w, http.StatusBadRequest, "peerId must name another user")
		return
	}

	key := models.ConversationKey(callerID, req.PeerID)
	conv, err := h.Convs.GetConversation(r.Context(), key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			respond.StoreError(w, err)
			return
		}
		a, b, _ := models.ConversationParticipants(key)
		conv = &models.Conversation{
			Key:          key,
			Participants: [2]string{a, b},
			Messages:     []models.ConversationMessage{},
		}
	}
	respond.JSON(w, http.StatusOK, conv)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	convs, err := h.Convs.ConversationsForUser(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		respond.StoreError(w, err)
		return
	}
	if convs == nil {
		convs = []*models.Conversation{}
	}
	respond.JSON(w, http.StatusOK, convs)
}

// History returns the full embedded message list of a room. Only the two
// participants may read it; a participant of a not-yet-created room gets an
// empty history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	callerID := middleware.UserID(r.Context())

	a, b, ok := models.ConversationParticipants(key)
	if !ok {
		respond.Error(w, http.StatusBadRequest, "malformed conversation key")
		return
	}
	if a != callerID && b != callerID {
		respond.Error(w, http.StatusForbidden, "not a participant of this conversation")
		return
	}

	conv, err := h.Convs.GetConversation(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.JSON(w, http.StatusOK, []models.ConversationMessage{})
			return
		}
		respond.StoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, conv.Messages)
}

// Send is the non-real-time fallback. It runs the same gateway path as the
// socket: derive key, validate, persist, then broadcast to live subscribers.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key  string `json:"key"`
		To   string `json:"to"`
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	key, err := h.Gateway.SendDirectMessage(r.Context(), middleware.UserID(r.Context()), req.Key, req.To, req.Text)
	if err != nil {
		respond.StoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]string{"key": key})
}
