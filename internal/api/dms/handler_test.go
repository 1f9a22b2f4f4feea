package dms

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
	"github.com/connectly/connectly-backend/internal/ws"
)

type fixture struct {
	router *mux.Router
	convs  *memory.ConversationStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	convs := memory.NewConversationStore()
	users := memory.NewUserStore()
	comms := memory.NewCommunityStore()
	gateway := ws.NewGateway(ws.NewHub(), convs, comms, users, nil, zap.NewNop())
	h := &Handler{Convs: convs, Gateway: gateway, Log: zap.NewNop()}

	router := mux.NewRouter()
	RegisterRoutes(router.PathPrefix("/api/v1").Subrouter(), h)
	return &fixture{router: router, convs: convs}
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

func TestStartIsLazy(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, "alice", http.MethodPost, "/api/v1/dms/start", map[string]any{"peerId": "bob"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var conv models.Conversation
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &conv))
	assert.Equal(t, models.ConversationKey("alice", "bob"), conv.Key)
	assert.Empty(t, conv.Messages)

	// Nothing was persisted; the room is created on first message.
	convs, err := f.convs.ConversationsForUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestStartRejectsSelf(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, "alice", http.MethodPost, "/api/v1/dms/start", map[string]any{"peerId": "alice"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSendThenHistory(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, "alice", http.MethodPost, "/api/v1/dms/send", map[string]any{"to": "bob", "text": "hey bob"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var sent struct {
		Key string `json:"key"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sent))
	require.Equal(t, models.ConversationKey("alice", "bob"), sent.Key)

	// Both participants read the same history.
	for _, reader := range []string{"alice", "bob"} {
		rr := f.do(t, reader, http.MethodGet, "/api/v1/dms/"+sent.Key+"/messages", nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var history []models.ConversationMessage
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &history))
		require.Len(t, history, 1)
		assert.Equal(t, "alice", history[0].SenderID)
		assert.Equal(t, "hey bob", history[0].Text)
		assert.WithinDuration(t, time.Now(), history[0].CreatedAt, time.Minute)
	}
}

func TestSendRejectsBlankText(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, "alice", http.MethodPost, "/api/v1/dms/send", map[string]any{"to": "bob", "text": "  "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUnsortedKeyRejectedEverywhere(t *testing.T) {
	f := newFixture(t)

	// Seed the canonical room, then probe it through the unsorted spelling.
	rr := f.do(t, "alice", http.MethodPost, "/api/v1/dms/send", map[string]any{"to": "bob", "text": "hi"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = f.do(t, "alice", http.MethodGet, "/api/v1/dms/bob_alice/messages", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, "alice", http.MethodPost, "/api/v1/dms/send", map[string]any{"key": "bob_alice", "text": "again"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// The canonical room is the only one, with the single message.
	rr = f.do(t, "bob", http.MethodGet, "/api/v1/dms/"+models.ConversationKey("alice", "bob")+"/messages", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var history []models.ConversationMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &history))
	assert.Len(t, history, 1)
}

func TestHistoryForbiddenForOutsiders(t *testing.T) {
	f := newFixture(t)
	key := models.ConversationKey("alice", "bob")

	rr := f.do(t, "eve", http.MethodGet, "/api/v1/dms/"+key+"/messages", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestHistoryEmptyForUnstartedRoom(t *testing.T) {
	f := newFixture(t)
	key := models.ConversationKey("alice", "bob")

	rr := f.do(t, "alice", http.MethodGet, "/api/v1/dms/"+key+"/messages", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var history []models.ConversationMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &history))
	assert.Empty(t, history)
}

func TestListShowsRoomsAfterFirstMessage(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, "alice", http.MethodPost, "/api/v1/dms/send", map[string]any{"to": "bob", "text": "one"})
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = f.do(t, "alice", http.MethodPost, "/api/v1/dms/send", map[string]any{"to": "carol", "text": "two"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = f.do(t, "alice", http.MethodGet, "/api/v1/dms", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var convs []models.Conversation
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &convs))
	assert.Len(t, convs, 2)

	rr = f.do(t, "bob", http.MethodGet, "/api/v1/dms", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &convs))
	assert.Len(t, convs, 1)
}
