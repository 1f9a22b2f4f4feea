package posts

import (
	"encoding/json"
	"net/http"
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

const feedLimit = 100

// Handler serves posts with their embedded likes and comments.
type Handler struct {
	Posts storage.PostStore
	Graph storage.GraphStore
	Log   *zap.Logger
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Body     string `json:"body"`
		ImageURL string `json:"imageUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" && req.ImageURL == "" {
		respond.Error(w, http.StatusBadRequest, "post needs a body or an image")
		return
	}

	post := &models.Post{
		ID:        uuid.NewString(),
		AuthorID:  middleware.UserID(r.Context()),
		Body:      req.Body,
		ImageURL:  req.ImageURL,
		LikedBy:   []string{},
		Comments:  []models.Comment{},
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Posts.CreatePost(r.Context(), post); err != nil {
		h.Log.Error("create post", zap.Error(err))
		respond.StoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, post)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.Posts.GetPost(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respond.StoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, post)
}

func (h *Handler) ByUser(w http.ResponseWriter, r *http.Request) {
	posts, err := h.Posts.PostsByUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respond.StoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, posts)
}

// Feed returns the caller's own posts plus those of everyone they follow,
// newest first.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.UserID(r.Context())
	following, err := h.Graph.Following(r.Context(), callerID)
	if err != nil {
		respond.StoreError(w, err)
		return
	}
	authors := append(following, callerID)

	posts, err := h.Posts.Feed(r.Context(), authors, feedLimit)
	if err != nil {
		respond.StoreError(w, err)
		return
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	respond.JSON(w, http.StatusOK, posts)
}

func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	liked, likes, err := h.Posts.ToggleLike(r.Context(), mux.Vars(r)["id"], middleware.UserID(r.Context()))
	if err != nil {
		respond.StoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"liked": liked, "likes": likes})
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" {
		respond.Error(w, http.StatusBadRequest, "comment cannot be empty")
		return
	}

	comment := models.Comment{
		ID:        uuid.NewString(),
		AuthorID:  middleware.UserID(r.Context()),
		Body:      req.Body,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Posts.AddComment(r.Context(), mux.Vars(r)["id"], comment); err != nil {
		respond.StoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, comment)
}

func (h *Handler) Comments(w http.ResponseWriter, r *http.Request) {
	post, err := h.Posts.GetPost(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respond.StoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, post.Comments)
}
