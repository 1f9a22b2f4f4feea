package posts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/connectly/connectly-backend/internal/middleware"
	"github.com/connectly/connectly-backend/internal/models"
	"github.com/connectly/connectly-backend/internal/storage/memory"
)

type fixture struct {
	router *mux.Router
	posts  *memory.PostStore
	graph  *memory.GraphStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	postStore := memory.NewPostStore()
	graph := memory.NewGraphStore()
	h := &Handler{Posts: postStore, Graph: graph, Log: zap.NewNop()}

	router := mux.NewRouter()
	RegisterRoutes(router.PathPrefix("/api/v1").Subrouter(), h)
	return &fixture{router: router, posts: postStore, graph: graph}
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

func (f *fixture) createPost(t *testing.T, author, body string) models.Post {
	t.Helper()
	rr := f.do(t, author, http.MethodPost, "/api/v1/posts", map[string]any{"body": body})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var post models.Post
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &post))
	return post
}

func TestCreatePostValidation(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, "alice", http.MethodPost, "/api/v1/posts", map[string]any{"body": "   "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// An image-only post is allowed.
	rr = f.do(t, "alice", http.MethodPost, "/api/v1/posts",
		map[string]any{"imageUrl": "https://cdn.example.com/cat.png"})
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestToggleLike(t *testing.T) {
	f := newFixture(t)
	post := f.createPost(t, "alice", "hello world")

	var result struct {
		Liked bool `json:"liked"`
		Likes int  `json:"likes"`
	}

	rr := f.do(t, "bob", http.MethodPost, "/api/v1/posts/"+post.ID+"/like", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.True(t, result.Liked)
	assert.Equal(t, 1, result.Likes)

	// Same user again unlikes.
	rr = f.do(t, "bob", http.MethodPost, "/api/v1/posts/"+post.ID+"/like", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.False(t, result.Liked)
	assert.Equal(t, 0, result.Likes)

	rr = f.do(t, "bob", http.MethodPost, "/api/v1/posts/missing/like", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestComments(t *testing.T) {
	f := newFixture(t)
	post := f.createPost(t, "alice", "hello world")

	rr := f.do(t, "bob", http.MethodPost, "/api/v1/posts/"+post.ID+"/comments",
		map[string]any{"body": "nice one"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = f.do(t, "bob", http.MethodPost, "/api/v1/posts/"+post.ID+"/comments",
		map[string]any{"body": "  "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, "carol", http.MethodGet, "/api/v1/posts/"+post.ID+"/comments", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var comments []models.Comment
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &comments))
	require.Len(t, comments, 1)
	assert.Equal(t, "bob", comments[0].AuthorID)
	assert.Equal(t, "nice one", comments[0].Body)
}

func TestFeedCoversSelfAndFollowed(t *testing.T) {
	f := newFixture(t)

	_, err := f.graph.Follow(context.Background(), "alice", "bob")
	require.NoError(t, err)

	f.createPost(t, "alice", "from alice")
	time.Sleep(2 * time.Millisecond)
	f.createPost(t, "bob", "from bob")
	time.Sleep(2 * time.Millisecond)
	f.createPost(t, "carol", "from carol")

	rr := f.do(t, "alice", http.MethodGet, "/api/v1/posts/feed", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var feed []models.Post
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &feed))
	require.Len(t, feed, 2)
	// Newest first; carol is not followed.
	assert.Equal(t, "from bob", feed[0].Body)
	assert.Equal(t, "from alice", feed[1].Body)
}

func TestFeedEmptyWithoutPosts(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, "alice", http.MethodGet, "/api/v1/posts/feed", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}
