package authapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/connectly/connectly-backend/internal/api/respond"
	"github.com/connectly/connectly-backend/internal/auth"
	"github.com/connectly/connectly-backend/internal/middleware"
	"github.com/connectly/connectly-backend/internal/models"
	"github.com/connectly/connectly-backend/internal/storage"
)

// Handler serves account registration, login and the current-session probe.
type Handler struct {
	Users  storage.UserStore
	Issuer *auth.TokenIssuer
	Log    *zap.Logger
}

type credentialsResponse struct {
	Token string         `json:"token"`
	User  models.Profile `json:"user"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		DisplayName string `json:"displayName"`
		Email       string `json:"email"`
		Password    string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || len(req.Password) < 6 {
		respond.Error(w, http.StatusBadRequest, "username, email and a password of at least 6 characters are required")
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.Users.CreateUser(r.Context(), user); err != nil {
		if err == storage.ErrConflict {
			respond.Error(w, http.StatusConflict, "username or email already taken")
			return
		}
		h.Log.Error("create user", zap.Error(err))
		respond.StoreError(w, err)
		return
	}

	token, err := h.Issuer.Issue(user.ID)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.Log.Info("user registered", zap.String("user", user.ID), zap.String("username", user.Username))
	respond.JSON(w, http.StatusCreated, credentialsResponse{Token: token, User: user.PublicProfile()})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Users.GetUserByUsername(r.Context(), req.Username)
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		respond.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.Issuer.Issue(user.ID)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	respond.JSON(w, http.StatusOK, credentialsResponse{Token: token, User: user.PublicProfile()})
}

// Me returns the profile behind the bearer token.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.GetUser(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		respond.StoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, user.PublicProfile())
}
