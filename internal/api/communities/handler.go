package communities

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/connectly/connectly-backend/internal/api/respond"
	"github.com/connectly/connectly-backend/internal/middleware"
	"github.com/connectly/connectly-backend/internal/models"
	"github.com/connectly/connectly-backend/internal/storage"
)

// Handler serves communities, memberships, channels and the REST message
// path. The REST send persists only; live delivery is the gateway's job.
type Handler struct {
	Comms storage.CommunityStore
	Users storage.UserStore
	Log   *zap.Logger
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		IconURL     string `json:"iconUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respond.Error(w, http.StatusBadRequest, "community name cannot be empty")
		return
	}

	ownerID := middleware.UserID(r.Context())
	community := &models.Community{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		IconURL:     req.IconURL,
		OwnerID:     ownerID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.Comms.CreateCommunity(r.Context(), community); err != nil {
		h.Log.Error("create community", zap.Error(err))
		respond.StoreError(w, err)
		return
	}
	if err := h.Comms.AddMember(r.Context(), models.Membership{
		UserID:      ownerID,
		CommunityID: community.ID,
		Role:        models.RoleOwner,
		JoinedAt:    community.CreatedAt,
	}); err != nil {
		h.Log.Error("seed owner membership", zap.String("community", community.ID), zap.Error(err))
		respond.StoreError(w, err)
		return
	}
	community.Members = 1

	h.Log.Info("community created", zap.String("community", community.ID), zap.String("owner", ownerID))
	respond.JSON(w, http.StatusCreated, community)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	community, err := h.Comms.GetCommunity(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respond.StoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, community)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	communities, err := h.Comms.CommunitiesForUser(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		respond.StoreError(w, err)
		return
	}
	if communities == nil {
		communities = []*models.Community{}
	}
	respond.JSON(w, http.StatusOK, communities)
}

func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	communityID := mux.Vars(r)["id"]
	err := h.Comms.AddMember(r.Context(), models.Membership{
		UserID:      middleware.UserID(r.Context()),
		CommunityID: communityID,
		Role:        models.RoleMember,
		JoinedAt:    time.Now().UTC(),
	})
	if err != nil {
		respond.StoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "joined"})
}

func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	communityID := mux.Vars(r)["id"]
	userID := middleware.UserID(r.Context())

	membership, err := h.Comms.GetMembership(r.Context(), communityID, userID)
	if err != nil {
		respond.StoreError(w, err)
		return
	}
	if membership.Role == models.RoleOwner {
		respond.Error(w, http.StatusBadRequest, "the owner cannot leave their community")
		return
	}
	if err := h.Comms.RemoveMember(r.Context(), communityID, userID); err != nil {
		respond.StoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "left"})
}

// SetRole changes a member's role. Only owners and admins may do it, the
// owner role itself is not assignable, and the owner cannot be demoted.
func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	communityID, targetID := vars["id"], vars["userID"]

	var req struct {
		Role models.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Role.Valid() || req.Role == models.RoleOwner {
		respond.Error(w, http.StatusBadRequest, "invalid role")
		return
	}

	caller, err := h.Comms.GetMembership(r.Context(), communityID, middleware.UserID(r.Context()))
	if err != nil {
		h.membershipError(w, r, communityID, err)
		return
	}
	if !caller.Role.AtLeast(models.RoleAdmin) {
		respond.Error(w, http.StatusForbidden, "not allowed")
		return
	}
	target, err := h.Comms.GetMembership(r.Context(), communityID, targetID)
	if err != nil {
		respond.StoreError(w, err)
		return
	}
	if target.Role == models.RoleOwner {
		respond.Error(w, http.StatusBadRequest, "the owner role cannot be changed")
		return
	}

	if err := h.Comms.SetRole(r.Context(), communityID, targetID, req.Role); err != nil {
		respond.StoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"userId": targetID, "role": req.Role})
}

// CreateChannel adds a channel to a community. Requires moderator or above.
// Names are normalized and unique per community.
func (h *Handler) CreateChannel(w http.ResponseWriter, r *http.Request) {
	communityID := mux.Vars(r)["id"]

	var req struct {
		Name     string             `json:"name"`
		Kind     models.ChannelKind `json:"kind"`
		Topic    string             `json:"topic"`
		Position int                `json:"position"`
		ParentID string             `json:"parentId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := models.NormalizeChannelName(req.Name)
	if name == "" {
		respond.Error(w, http.StatusBadRequest, "channel name cannot be empty")
		return
	}
	if req.Kind == "" {
		req.Kind = models.ChannelText
	}
	if req.Kind != models.ChannelText && req.Kind != models.ChannelVoice {
		respond.Error(w, http.StatusBadRequest, "channel kind must be text or voice")
		return
	}

	caller, err := h.Comms.GetMembership(r.Context(), communityID, middleware.UserID(r.Context()))
	if err != nil {
		h.membershipError(w, r, communityID, err)
		return
	}
	if !caller.Role.AtLeast(models.RoleModerator) {
		respond.Error(w, http.StatusForbidden, "not allowed")
		return
	}

	channel := &models.Channel{
		ID:          uuid.NewString(),
		CommunityID: communityID,
		Name:        name,
		Kind:        req.Kind,
		Topic:       strings.TrimSpace(req.Topic),
		Position:    req.Position,
		ParentID:    req.ParentID,
		CreatedBy:   caller.UserID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.Comms.CreateChannel(r.Context(), channel); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			respond.Error(w, http.StatusConflict, "a channel with that name already exists")
			return
		}
		respond.StoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, channel)
}

func (h *Handler) ListChannels(w http.ResponseWriter, r *http.Request) {
	communityID := mux.Vars(r)["id"]
	if _, err := h.Comms.GetMembership(r.Context(), communityID, middleware.UserID(r.Context())); err != nil {
		h.membershipError(w, r, communityID, err)
		return
	}
	channels, err := h.Comms.ChannelsForCommunity(r.Context(), communityID)
	if err != nil {
		respond.StoreError(w, err)
		return
	}
	if channels == nil {
		channels = []*models.Channel{}
	}
	respond.JSON(w, http.StatusOK, channels)
}

// ChannelHistory returns one page of a text channel's history, newest page
// first, each page in chronological order. Limit is clamped to [1,50].
func (h *Handler) ChannelHistory(w http.ResponseWriter, r *http.Request) {
	channelID := mux.Vars(r)["channelID"]
	requesterID := middleware.UserID(r.Context())

	channel, err := h.Comms.GetChannel(r.Context(), channelID)
	if err != nil {
		respond.StoreError(w, err)
		return
	}
	if _, err := h.Comms.GetMembership(r.Context(), channel.CommunityID, requesterID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusForbidden, "not a member of this community")
			return
		}
		respond.StoreError(w, err)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	messages, err := h.Comms.ChannelMessages(r.Context(), channelID, page, limit)
	if err != nil {
		respond.StoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, messages)
}

// SendChannelMessage is the non-real-time send fallback: same validation as
// the gateway path, persists and returns the message, no broadcast.
func (h *Handler) SendChannelMessage(w http.ResponseWriter, r *http.Request) {
	channelID := mux.Vars(r)["channelID"]
	senderID := middleware.UserID(r.Context())

	var req struct {
		Text        string   `json:"text"`
		Attachments []string `json:"attachments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	channel, err := h.Comms.GetChannel(r.Context(), channelID)
	if err != nil {
		respond.StoreError(w, err)
		return
	}
	if _, err := h.Comms.GetMembership(r.Context(), channel.CommunityID, senderID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusForbidden, "not a member of this community")
			return
		}
		respond.StoreError(w, err)
		return
	}
	if channel.Kind != models.ChannelText {
		respond.Error(w, http.StatusBadRequest, "voice channels do not accept messages")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		respond.Error(w, http.StatusBadRequest, "message text cannot be empty")
		return
	}

	msg := &models.ChannelMessage{
		ID:          uuid.NewString(),
		ChannelID:   channelID,
		SenderID:    senderID,
		Text:        text,
		Attachments: req.Attachments,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.Comms.AppendChannelMessage(r.Context(), msg); err != nil {
		h.Log.Error("persist channel message", zap.String("channel", channelID), zap.Error(err))
		respond.StoreError(w, err)
		return
	}
	if sender, err := h.Users.GetUser(r.Context(), senderID); err == nil {
		msg.SenderName = sender.DisplayName
	}
	respond.JSON(w, http.StatusCreated, msg)
}

// membershipError keeps not-found precedence: a missing community reports
// 404, a missing membership in an existing community reports 403.
func (h *Handler) membershipError(w http.ResponseWriter, r *http.Request, communityID string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		if _, lookupErr := h.Comms.GetCommunity(r.Context(), communityID); lookupErr != nil {
			respond.StoreError(w, lookupErr)
			return
		}
		respond.Error(w, http.StatusForbidden, "not a member of this community")
		return
	}
	respond.StoreError(w, err)
}
