package communities

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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/connectly/connectly-backend/internal/middleware"
	"github.com/connectly/connectly-backend/internal/models"
	"github.com/connectly/connectly-backend/internal/storage/memory"
)

type fixture struct {
	router *mux.Router
	comms  *memory.CommunityStore
	users  *memory.UserStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	comms := memory.NewCommunityStore()
	userStore := memory.NewUserStore()
	h := &Handler{Comms: comms, Users: userStore, Log: zap.NewNop()}

	router := mux.NewRouter()
	RegisterRoutes(router.PathPrefix("/api/v1").Subrouter(), h)
	return &fixture{router: router, comms: comms, users: userStore}
}

// do performs a request as the given user, bypassing token verification the
// same way the auth middleware would populate the context.
func (f *fixture) do(t *testing.T, userID, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) seedCommunity(t *testing.T, owner string, members ...string) string {
	t.Helper()
	ctx := context.Background()
	community := &models.Community{ID: "comm-1", Name: "gophers", OwnerID: owner, CreatedAt: time.Now()}
	require.NoError(t, f.comms.CreateCommunity(ctx, community))
	require.NoError(t, f.comms.AddMember(ctx, models.Membership{UserID: owner, CommunityID: community.ID, Role: models.RoleOwner}))
	for _, m := range members {
		require.NoError(t, f.comms.AddMember(ctx, models.Membership{UserID: m, CommunityID: community.ID, Role: models.RoleMember}))
	}
	return community.ID
}

func (f *fixture) seedTextChannel(t *testing.T, communityID string) string {
	t.Helper()
	channel := &models.Channel{ID: "chan-1", CommunityID: communityID, Name: "general", Kind: models.ChannelText, CreatedAt: time.Now()}
	require.NoError(t, f.comms.CreateChannel(context.Background(), channel))
	return channel.ID
}

func TestCreateChannelNormalizesName(t *testing.T) {
	f := newFixture(t)
	communityID := f.seedCommunity(t, "owner")

	rr := f.do(t, "owner", http.MethodPost, "/api/v1/communities/"+communityID+"/channels",
		map[string]any{"name": "General Chat", "kind": "text"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var channel models.Channel
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &channel))
	assert.Equal(t, "general-chat", channel.Name)

	// Same name again collides after normalization.
	rr = f.do(t, "owner", http.MethodPost, "/api/v1/communities/"+communityID+"/channels",
		map[string]any{"name": "  GENERAL   chat ", "kind": "text"})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestCreateChannelRequiresPrivilege(t *testing.T) {
	f := newFixture(t)
	communityID := f.seedCommunity(t, "owner", "pleb")

	rr := f.do(t, "pleb", http.MethodPost, "/api/v1/communities/"+communityID+"/channels",
		map[string]any{"name": "general", "kind": "text"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = f.do(t, "outsider", http.MethodPost, "/api/v1/communities/missing/channels",
		map[string]any{"name": "general", "kind": "text"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestChannelHistoryPagination(t *testing.T) {
	f := newFixture(t)
	communityID := f.seedCommunity(t, "owner", "alice")
	channelID := f.seedTextChannel(t, communityID)

	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= 5; i++ {
		require.NoError(t, f.comms.AppendChannelMessage(ctx, &models.ChannelMessage{
			ID:        fmt.Sprintf("m%d", i),
			ChannelID: channelID,
			SenderID:  "alice",
			Text:      fmt.Sprintf("msg %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	rr := f.do(t, "alice", http.MethodGet, "/api/v1/channels/"+channelID+"/messages?page=1&limit=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var page []models.ChannelMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	require.Len(t, page, 2)
	// The two newest, ascending in time.
	assert.Equal(t, "m4", page[0].ID)
	assert.Equal(t, "m5", page[1].ID)

	rr = f.do(t, "alice", http.MethodGet, "/api/v1/channels/"+channelID+"/messages?page=2&limit=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	require.Len(t, page, 2)
	assert.Equal(t, "m2", page[0].ID)
	assert.Equal(t, "m3", page[1].ID)
}

func TestChannelHistoryClampsLimit(t *testing.T) {
	f := newFixture(t)
	communityID := f.seedCommunity(t, "owner")
	channelID := f.seedTextChannel(t, communityID)

	ctx := context.Background()
	for i := 0; i < 55; i++ {
		require.NoError(t, f.comms.AppendChannelMessage(ctx, &models.ChannelMessage{
			ID:        fmt.Sprintf("m%d", i),
			ChannelID: channelID,
			SenderID:  "owner",
			Text:      "x",
			CreatedAt: time.Now().UTC(),
		}))
	}

	rr := f.do(t, "owner", http.MethodGet, "/api/v1/channels/"+channelID+"/messages?limit=100", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var page []models.ChannelMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	assert.Len(t, page, 50)
}

func TestChannelHistoryAuthorization(t *testing.T) {
	f := newFixture(t)
	communityID := f.seedCommunity(t, "owner")
	channelID := f.seedTextChannel(t, communityID)

	rr := f.do(t, "outsider", http.MethodGet, "/api/v1/channels/"+channelID+"/messages", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// A missing channel is not-found for members and non-members alike.
	rr = f.do(t, "outsider", http.MethodGet, "/api/v1/channels/missing/messages", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = f.do(t, "owner", http.MethodGet, "/api/v1/channels/missing/messages", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSendChannelMessageRest(t *testing.T) {
	f := newFixture(t)
	communityID := f.seedCommunity(t, "owner", "alice")
	channelID := f.seedTextChannel(t, communityID)

	rr := f.do(t, "alice", http.MethodPost, "/api/v1/channels/"+channelID+"/messages",
		map[string]any{"text": "hello"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var msg models.ChannelMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &msg))
	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, "alice", msg.SenderID)

	history, err := f.comms.ChannelMessages(context.Background(), channelID, 1, 50)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, msg.ID, history[0].ID)
}

func TestSendChannelMessageRestRejections(t *testing.T) {
	f := newFixture(t)
	communityID := f.seedCommunity(t, "owner", "alice")
	channelID := f.seedTextChannel(t, communityID)

	rr := f.do(t, "alice", http.MethodPost, "/api/v1/channels/"+channelID+"/messages",
		map[string]any{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, "outsider", http.MethodPost, "/api/v1/channels/"+channelID+"/messages",
		map[string]any{"text": "hi"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	history, err := f.comms.ChannelMessages(context.Background(), channelID, 1, 50)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSetRole(t *testing.T) {
	f := newFixture(t)
	communityID := f.seedCommunity(t, "owner", "alice", "bob")

	rr := f.do(t, "owner", http.MethodPut, "/api/v1/communities/"+communityID+"/members/alice/role",
		map[string]any{"role": "moderator"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	m, err := f.comms.GetMembership(context.Background(), communityID, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, m.Role)

	// Plain members cannot change roles, and nobody becomes owner.
	rr = f.do(t, "bob", http.MethodPut, "/api/v1/communities/"+communityID+"/members/alice/role",
		map[string]any{"role": "admin"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = f.do(t, "owner", http.MethodPut, "/api/v1/communities/"+communityID+"/members/alice/role",
		map[string]any{"role": "owner"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateCommunitySeedsOwner(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, "founder", http.MethodPost, "/api/v1/communities",
		map[string]any{"name": "Gophers United"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var community models.Community
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &community))
	assert.Equal(t, "founder", community.OwnerID)
	assert.Equal(t, 1, community.Members)

	m, err := f.comms.GetMembership(context.Background(), community.ID, "founder")
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, m.Role)
}

func TestOwnerCannotLeave(t *testing.T) {
	f := newFixture(t)
	communityID := f.seedCommunity(t, "owner", "alice")

	rr := f.do(t, "owner", http.MethodPost, "/api/v1/communities/"+communityID+"/leave", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, "alice", http.MethodPost, "/api/v1/communities/"+communityID+"/leave", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}
