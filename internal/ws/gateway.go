package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/connectly/connectly-backend/internal/auth"
	"github.com/connectly/connectly-backend/internal/models"
	"github.com/connectly/connectly-backend/internal/storage"
)

const (
	readTimeout  = 60 * time.Second
	readLimit    = 1 << 20
	storeTimeout = 5 * time.Second
)

// Gateway multiplexes websocket connections onto rooms and relays newly
// created messages. Every message is persisted before it is broadcast;
// every client frame is answered with a correlated ack.
type Gateway struct {
	hub    *Hub
	rooms  RoomService
	convs  storage.ConversationStore
	comms  storage.CommunityStore
	users  storage.UserStore
	issuer *auth.TokenIssuer
	log    *zap.Logger
}

func NewGateway(hub *Hub, convs storage.ConversationStore, comms storage.CommunityStore, users storage.UserStore, issuer *auth.TokenIssuer, log *zap.Logger) *Gateway {
	return &Gateway{
		hub:    hub,
		rooms:  hub,
		convs:  convs,
		comms:  comms,
		users:  users,
		issuer: issuer,
		log:    log,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The REST layer owns origin policy; tokens gate the socket itself.
		return true
	},
}

type inboundFrame struct {
	Type        string   `json:"type"`
	Key         string   `json:"key,omitempty"`
	To          string   `json:"to,omitempty"`
	ChannelID   string   `json:"channelId,omitempty"`
	Text        string   `json:"text,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

type ackFrame struct {
	Type      string `json:"type"`
	Op        string `json:"op"`
	OK        bool   `json:"ok"`
	Code      string `json:"code,omitempty"`
	Error     string `json:"error,omitempty"`
	Key       string `json:"key,omitempty"`
	ChannelID string `json:"channelId,omitempty"`
}

type dmEvent struct {
	Type    string                     `json:"type"`
	Key     string                     `json:"key"`
	Message models.ConversationMessage `json:"message"`
}

type channelEvent struct {
	Type      string                `json:"type"`
	ChannelID string                `json:"channelId"`
	Message   models.ChannelMessage `json:"message"`
}

func dmRoom(key string) string     { return "dm:" + key }
func channelRoom(id string) string { return "chan:" + id }

// HandleWS authenticates the token query parameter, upgrades the connection
// and runs the frame loop until the client disconnects.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID, err := g.issuer.Verify(r.URL.Query().Get("token"))
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid token"}`))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the response.
		return
	}

	client := NewClient(userID, conn)
	g.hub.Attach(client)
	defer func() {
		g.hub.Detach(client)
		client.Close(websocket.CloseNormalClosure, "session closed")
	}()

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	g.reply(client, ackFrame{Type: "ack", Op: "connect", OK: true})
	g.log.Info("ws connected", zap.String("user", userID))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				g.log.Debug("ws read", zap.String("user", userID), zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			g.reply(client, ackFrame{Type: "ack", Op: "unknown", OK: false, Code: "bad_request", Error: "invalid payload"})
			continue
		}
		g.dispatch(r.Context(), client, frame)
	}
}

func (g *Gateway) dispatch(ctx context.Context, client *Client, frame inboundFrame) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	switch frame.Type {
	case "join_conversation":
		key, err := g.JoinConversation(client, frame.Key, frame.To)
		g.ack(client, frame.Type, ackFrame{Key: key}, err)
	case "leave_conversation":
		g.rooms.Unsubscribe(dmRoom(frame.Key), client)
		g.ack(client, frame.Type, ackFrame{Key: frame.Key}, nil)
	case "send_dm":
		key, err := g.SendDirectMessage(ctx, client.UserID, frame.Key, frame.To, frame.Text)
		g.ack(client, frame.Type, ackFrame{Key: key}, err)
	case "join_channel":
		err := g.JoinChannel(ctx, client, frame.ChannelID)
		g.ack(client, frame.Type, ackFrame{ChannelID: frame.ChannelID}, err)
	case "leave_channel":
		g.rooms.Unsubscribe(channelRoom(frame.ChannelID), client)
		g.ack(client, frame.Type, ackFrame{ChannelID: frame.ChannelID}, nil)
	case "send_channel_message":
		_, err := g.SendChannelMessage(ctx, client.UserID, frame.ChannelID, frame.Text, frame.Attachments)
		g.ack(client, frame.Type, ackFrame{ChannelID: frame.ChannelID}, err)
	default:
		g.reply(client, ackFrame{Type: "ack", Op: frame.Type, OK: false, Code: "unsupported", Error: "unknown frame type"})
	}
}

// JoinConversation subscribes the client to a direct-message room after
// checking the caller is one of the room's two participants. The room may
// not exist yet; it is created lazily on first message.
func (g *Gateway) JoinConversation(client *Client, key, peer string) (string, error) {
	key, err := resolveConversationKey(client.UserID, key, peer)
	if err != nil {
		return key, err
	}
	g.rooms.Subscribe(dmRoom(key), client)
	return key, nil
}

// SendDirectMessage validates, persists, then publishes a direct message.
// A persistence failure aborts the publish.
func (g *Gateway) SendDirectMessage(ctx context.Context, senderID, key, peer, text string) (string, error) {
	key, err := resolveConversationKey(senderID, key, peer)
	if err != nil {
		return key, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return key, storage.ErrInvalid
	}

	msg := models.ConversationMessage{
		ID:        uuid.NewString(),
		SenderID:  senderID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := g.convs.AppendMessage(ctx, key, msg); err != nil {
		g.log.Error("persist dm", zap.String("key", key), zap.Error(err))
		return key, err
	}

	payload, err := json.Marshal(dmEvent{Type: "dm", Key: key, Message: msg})
	if err != nil {
		return key, err
	}
	g.rooms.Publish(dmRoom(key), payload)
	return key, nil
}

// JoinChannel subscribes the client to a channel room after verifying the
// channel exists and the caller is a member of its community. A missing
// channel reports not-found before any membership failure.
func (g *Gateway) JoinChannel(ctx context.Context, client *Client, channelID string) error {
	ch, err := g.comms.GetChannel(ctx, channelID)
	if err != nil {
		return err
	}
	if _, err := g.comms.GetMembership(ctx, ch.CommunityID, client.UserID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ErrForbidden
		}
		return err
	}
	g.rooms.Subscribe(channelRoom(channelID), client)
	return nil
}

// SendChannelMessage validates membership and the channel kind, persists the
// message, enriches it with the sender's display name and publishes it to
// the channel room.
func (g *Gateway) SendChannelMessage(ctx context.Context, senderID, channelID, text string, attachments []string) (*models.ChannelMessage, error) {
	ch, err := g.comms.GetChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if _, err := g.comms.GetMembership(ctx, ch.CommunityID, senderID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.ErrForbidden
		}
		return nil, err
	}
	if ch.Kind != models.ChannelText {
		return nil, storage.ErrInvalid
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, storage.ErrInvalid
	}

	msg := &models.ChannelMessage{
		ID:          uuid.NewString(),
		ChannelID:   channelID,
		SenderID:    senderID,
		Text:        text,
		Attachments: attachments,
		CreatedAt:   time.Now().UTC(),
	}
	if err := g.comms.AppendChannelMessage(ctx, msg); err != nil {
		g.log.Error("persist channel message", zap.String("channel", channelID), zap.Error(err))
		return nil, err
	}

	if sender, err := g.users.GetUser(ctx, senderID); err == nil {
		msg.SenderName = sender.DisplayName
	}

	payload, err := json.Marshal(channelEvent{Type: "channel_message", ChannelID: channelID, Message: *msg})
	if err != nil {
		return msg, err
	}
	g.rooms.Publish(channelRoom(channelID), payload)
	return msg, nil
}

// NotifyUser pushes an arbitrary event to a user's live connection.
func (g *Gateway) NotifyUser(userID string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	g.rooms.NotifyUser(userID, payload)
}

func resolveConversationKey(userID, key, peer string) (string, error) {
	if key == "" {
		if peer == "" || peer == userID {
			return "", storage.ErrInvalid
		}
		return models.ConversationKey(userID, peer), nil
	}
	a, b, ok := models.ConversationParticipants(key)
	if !ok {
		return key, storage.ErrInvalid
	}
	if a != userID && b != userID {
		return key, storage.ErrForbidden
	}
	return key, nil
}

func (g *Gateway) ack(client *Client, op string, base ackFrame, err error) {
	base.Type = "ack"
	base.Op = op
	if err == nil {
		base.OK = true
	} else {
		base.OK = false
		base.Code, base.Error = errorCode(err)
	}
	g.reply(client, base)
}

func (g *Gateway) reply(client *Client, frame ackFrame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	_ = client.Send(payload)
}

func errorCode(err error) (string, string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return "not_found", "resource not found"
	case errors.Is(err, storage.ErrForbidden):
		return "forbidden", "not allowed"
	case errors.Is(err, storage.ErrInvalid):
		return "bad_request", "invalid input"
	default:
		return "internal", "internal error"
	}
}
