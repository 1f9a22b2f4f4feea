package users

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/connectly/connectly-backend/internal/api/respond"
	"github.com/connectly/connectly-backend/internal/middleware"
	"github.com/connectly/connectly-backend/internal/models"
	"github.com/connectly/connectly-backend/internal/storage"
	"github.com/connectly/connectly-backend/internal/tasks"
)

const recommendedCap = 10

// Handler serves profiles and the follow graph. A successful follow
// enqueues the notification fan-out task.
type Handler struct {
	Users storage.UserStore
	Graph storage.GraphStore
	Queue tasks.Enqueuer
	Log   *zap.Logger
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.GetUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respond.StoreError(w, err)
		return
	}
	profile := user.PublicProfile()
	if followers, following, err := h.Graph.Counts(r.Context(), user.ID); err == nil {
		profile.Followers = followers
		profile.Following = following
	}
	respond.JSON(w, http.StatusOK, profile)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName *string `json:"displayName"`
		Bio         *string `json:"bio"`
		AvatarURL   *string `json:"avatarUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Users.GetUser(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		respond.StoreError(w, err)
		return
	}
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			respond.Error(w, http.StatusBadRequest, "display name cannot be empty")
			return
		}
		user.DisplayName = name
	}
	if req.Bio != nil {
		user.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*req.AvatarURL)
	}

	if err := h.Users.UpdateUser(r.Context(), user); err != nil {
		respond.StoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, user.PublicProfile())
}

func (h *Handler) Follow(w http.ResponseWriter, r *http.Request) {
	followerID := middleware.UserID(r.Context())
	followeeID := mux.Vars(r)["id"]

	if _, err := h.Users.GetUser(r.Context(), followeeID); err != nil {
		respond.StoreError(w, err)
		return
	}
	created, err := h.Graph.Follow(r.Context(), followerID, followeeID)
	if err != nil {
		respond.StoreError(w, err)
		return
	}
	if created && h.Queue != nil {
		task, err := tasks.NewFollowNotificationTask(followerID, followeeID)
		if err == nil {
			if _, err = h.Queue.Enqueue(task); err != nil {
				// Notification loss is acceptable; the edge is already stored.
				h.Log.Warn("enqueue follow notification", zap.Error(err))
			}
		}
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"following": true})
}

func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request) {
	followerID := middleware.UserID(r.Context())
	followeeID := mux.Vars(r)["id"]
	if err := h.Graph.Unfollow(r.Context(), followerID, followeeID); err != nil {
		respond.StoreError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"following": false})
}

func (h *Handler) Followers(w http.ResponseWriter, r *http.Request) {
	h.listProfiles(w, r, h.Graph.Followers)
}

func (h *Handler) Following(w http.ResponseWriter, r *http.Request) {
	h.listProfiles(w, r, h.Graph.Following)
}

func (h *Handler) Friends(w http.ResponseWriter, r *http.Request) {
	h.listProfiles(w, r, h.Graph.Friends)
}

// Recommended lists users the caller does not follow yet, ranked by
// follower count.
func (h *Handler) Recommended(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.UserID(r.Context())

	ids, err := h.Users.ListUserIDs(r.Context())
	if err != nil {
		respond.StoreError(w, err)
		return
	}
	following, err := h.Graph.Following(r.Context(), callerID)
	if err != nil {
		respond.StoreError(w, err)
		return
	}
	followed := make(map[string]bool, len(following))
	for _, id := range following {
		followed[id] = true
	}

	type candidate struct {
		profile   models.Profile
		followers int
	}
	var candidates []candidate
	for _, id := range ids {
		if id == callerID || followed[id] {
			continue
		}
		user, err := h.Users.GetUser(r.Context(), id)
		if err != nil {
			continue
		}
		followers, _, _ := h.Graph.Counts(r.Context(), id)
		profile := user.PublicProfile()
		profile.Followers = followers
		candidates = append(candidates, candidate{profile: profile, followers: followers})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].followers > candidates[j].followers
	})
	if len(candidates) > recommendedCap {
		candidates = candidates[:recommendedCap]
	}

	out := make([]models.Profile, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.profile)
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *Handler) listProfiles(w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context, userID string) ([]string, error)) {
	userID := mux.Vars(r)["id"]
	if _, err := h.Users.GetUser(r.Context(), userID); err != nil {
		respond.StoreError(w, err)
		return
	}
	ids, err := fetch(r.Context(), userID)
	if err != nil {
		respond.StoreError(w, err)
		return
	}
	out := make([]models.Profile, 0, len(ids))
	for _, id := range ids {
		user, err := h.Users.GetUser(r.Context(), id)
		if err != nil {
			continue
		}
		out = append(out, user.PublicProfile())
	}
	respond.JSON(w, http.StatusOK, out)
}
