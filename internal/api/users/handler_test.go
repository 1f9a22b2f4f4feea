package users

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/connectly/connectly-backend/internal/middleware"
	"github.com/connectly/connectly-backend/internal/models"
	"github.com/connectly/connectly-backend/internal/storage/memory"
	"github.com/connectly/connectly-backend/internal/tasks"
)

// spyEnqueuer records enqueued tasks instead of talking to redis.
type spyEnqueuer struct {
	tasks []*asynq.Task
}

func (s *spyEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{}, nil
}

type fixture struct {
	router *mux.Router
	users  *memory.UserStore
	graph  *memory.GraphStore
	queue  *spyEnqueuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	userStore := memory.NewUserStore()
	graph := memory.NewGraphStore()
	queue := &spyEnqueuer{}
	h := &Handler{Users: userStore, Graph: graph, Queue: queue, Log: zap.NewNop()}

	router := mux.NewRouter()
	RegisterRoutes(router.PathPrefix("/api/v1").Subrouter(), h)
	return &fixture{router: router, users: userStore, graph: graph, queue: queue}
}

func (f *fixture) seedUser(t *testing.T, id string) {
	t.Helper()
	err := f.users.CreateUser(context.Background(), &models.User{
		ID:          id,
		Username:    id,
		DisplayName: strings.ToUpper(id[:1]) + id[1:],
		Email:       id + "@example.com",
		CreatedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)
}

func (f *fixture) do(t *testing.T, userID, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload := ""
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = string(raw)
	}
	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func TestFollowEnqueuesNotificationOnce(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice")
	f.seedUser(t, "bob")

	rr := f.do(t, "alice", http.MethodPost, "/api/v1/users/bob/follow", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Len(t, f.queue.tasks, 1)
	assert.Equal(t, tasks.TypeFollowNotification, f.queue.tasks[0].Type())

	var payload tasks.FollowNotificationPayload
	require.NoError(t, json.Unmarshal(f.queue.tasks[0].Payload(), &payload))
	assert.Equal(t, "alice", payload.FollowerID)
	assert.Equal(t, "bob", payload.FolloweeID)

	// Re-following is idempotent and does not enqueue again.
	rr = f.do(t, "alice", http.MethodPost, "/api/v1/users/bob/follow", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, f.queue.tasks, 1)
}

func TestFollowUnknownUser(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice")

	rr := f.do(t, "alice", http.MethodPost, "/api/v1/users/ghost/follow", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Empty(t, f.queue.tasks)
}

func TestProfileCarriesGraphCounts(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice")
	f.seedUser(t, "bob")
	f.seedUser(t, "carol")

	ctx := context.Background()
	for _, follower := range []string{"bob", "carol"} {
		_, err := f.graph.Follow(ctx, follower, "alice")
		require.NoError(t, err)
	}
	_, err := f.graph.Follow(ctx, "alice", "bob")
	require.NoError(t, err)

	rr := f.do(t, "bob", http.MethodGet, "/api/v1/users/alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var profile models.Profile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &profile))
	assert.Equal(t, 2, profile.Followers)
	assert.Equal(t, 1, profile.Following)
}

func TestFriendsAreMutualFollows(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice")
	f.seedUser(t, "bob")
	f.seedUser(t, "carol")

	ctx := context.Background()
	_, err := f.graph.Follow(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = f.graph.Follow(ctx, "bob", "alice")
	require.NoError(t, err)
	_, err = f.graph.Follow(ctx, "alice", "carol")
	require.NoError(t, err)

	rr := f.do(t, "alice", http.MethodGet, "/api/v1/users/alice/friends", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var friends []models.Profile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &friends))
	require.Len(t, friends, 1)
	assert.Equal(t, "bob", friends[0].ID)
}

func TestRecommendedExcludesSelfAndFollowed(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"alice", "bob", "carol", "dave"} {
		f.seedUser(t, id)
	}

	ctx := context.Background()
	_, err := f.graph.Follow(ctx, "alice", "bob")
	require.NoError(t, err)
	// carol is the most followed of the remaining candidates.
	_, err = f.graph.Follow(ctx, "bob", "carol")
	require.NoError(t, err)
	_, err = f.graph.Follow(ctx, "dave", "carol")
	require.NoError(t, err)

	rr := f.do(t, "alice", http.MethodGet, "/api/v1/users/recommended", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var recs []models.Profile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &recs))
	require.Len(t, recs, 2)
	assert.Equal(t, "carol", recs[0].ID)
	assert.Equal(t, "dave", recs[1].ID)
	assert.Equal(t, 2, recs[0].Followers)
}

func TestRecommendedCapped(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice")
	for i := 0; i < recommendedCap+5; i++ {
		f.seedUser(t, fmt.Sprintf("user%02d", i))
	}

	rr := f.do(t, "alice", http.MethodGet, "/api/v1/users/recommended", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var recs []models.Profile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &recs))
	assert.Len(t, recs, recommendedCap)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "alice")

	rr := f.do(t, "alice", http.MethodPut, "/api/v1/users/me",
		map[string]any{"bio": "gopher at large"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var profile models.Profile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &profile))
	assert.Equal(t, "gopher at large", profile.Bio)
	// Fields not present in the request are untouched.
	assert.Equal(t, "Alice", profile.DisplayName)

	rr = f.do(t, "alice", http.MethodPut, "/api/v1/users/me",
		map[string]any{"displayName": "   "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
