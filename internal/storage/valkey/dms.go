package valkeystore

import (
	"context"
	"fmt"
	"time"

	valkey "github.com/valkey-io/valkey-go"

	"github.com/connectly/connectly-backend/internal/models"
	"github.com/connectly/connectly-backend/internal/storage"
)

// ConversationStore persists direct-message rooms. Room metadata lives
// under conv:{key}; the message history is the list conv:{key}:messages, so
// the append itself is a single atomic RPUSH.
type ConversationStore struct {
	client valkey.Client
}

func NewConversationStore(client valkey.Client) *ConversationStore {
	return &ConversationStore{client: client}
}

var _ storage.ConversationStore = (*ConversationStore)(nil)

func convKey(key string) string      { return "conv:" + key }
func convMessages(key string) string { return "conv:" + key + ":messages" }
func userConvs(id string) string     { return "user:" + id + ":convs" }

func (s *ConversationStore) AppendMessage(ctx context.Context, key string, msg models.ConversationMessage) error {
	a, b, ok := models.ConversationParticipants(key)
	if !ok {
		return storage.ErrInvalid
	}

	meta := models.Conversation{
		Key:          key,
		Participants: [2]string{a, b},
		CreatedAt:    time.Now().UTC(),
	}
	metaDoc, err := marshalDoc(&meta)
	if err != nil {
		return err
	}
	msgDoc, err := marshalDoc(&msg)
	if err != nil {
		return err
	}

	// SETNX seeds the room lazily; the RPUSH append is atomic on its own.
	for _, resp := range s.client.DoMulti(ctx,
		s.client.B().Setnx().Key(convKey(key)).Value(metaDoc).Build(),
		s.client.B().Sadd().Key(userConvs(a)).Member(key).Build(),
		s.client.B().Sadd().Key(userConvs(b)).Member(key).Build(),
		s.client.B().Rpush().Key(convMessages(key)).Element(msgDoc).Build(),
	) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("valkey: append conversation message: %w", err)
		}
	}
	return nil
}

func (s *ConversationStore) GetConversation(ctx context.Context, key string) (*models.Conversation, error) {
	raw, err := s.client.Do(ctx, s.client.B().Get().Key(convKey(key)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("valkey: get conversation: %w", err)
	}
	var conv models.Conversation
	if err := unmarshalDoc(raw, &conv); err != nil {
		return nil, err
	}

	raws, err := s.client.Do(ctx, s.client.B().Lrange().Key(convMessages(key)).Start(0).Stop(-1).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("valkey: conversation history: %w", err)
	}
	conv.Messages = make([]models.ConversationMessage, 0, len(raws))
	for _, r := range raws {
		var m models.ConversationMessage
		if err := unmarshalDoc(r, &m); err != nil {
			return nil, err
		}
		conv.Messages = append(conv.Messages, m)
	}
	if n := len(conv.Messages); n > 0 {
		conv.UpdatedAt = conv.Messages[n-1].CreatedAt
	}
	return &conv, nil
}

func (s *ConversationStore) ConversationsForUser(ctx context.Context, userID string) ([]*models.Conversation, error) {
	keys, err := s.client.Do(ctx, s.client.B().Smembers().Key(userConvs(userID)).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("valkey: user conversations: %w", err)
	}
	out := make([]*models.Conversation, 0, len(keys))
	for _, key := range keys {
		conv, err := s.GetConversation(ctx, key)
		if err != nil {
			if err == storage.ErrNotFound {
				continue
			}
			return nil, err
		}
		out = append(out, conv)
	}
	return out, nil
}
