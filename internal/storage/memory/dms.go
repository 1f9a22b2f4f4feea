package memory

import (
	"context"
	"sync"
	"time"

	"github.com/connectly/connectly-backend/internal/models"
	"github.com/connectly/connectly-backend/internal/storage"
)

// ConversationStore keeps direct-message rooms keyed by the deterministic
// pair key.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation // key -> room
	userIndex     map[string][]string             // userID -> []key
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string]*models.Conversation),
		userIndex:     make(map[string][]string),
	}
}

var _ storage.ConversationStore = (*ConversationStore)(nil)

// AppendMessage upserts the room on first use, seeding participants from the
// key, then appends the message. The whole step runs under one lock so
// concurrent sends to the same room are individually atomic.
func (s *ConversationStore) AppendMessage(_ context.Context, key string, msg models.ConversationMessage) error {
	a, b, ok := models.ConversationParticipants(key)
	if !ok {
		return storage.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, exists := s.conversations[key]
	if !exists {
		conv = &models.Conversation{
			Key:          key,
			Participants: [2]string{a, b},
			CreatedAt:    time.Now().UTC(),
		}
		s.conversations[key] = conv
		s.userIndex[a] = append(s.userIndex[a], key)
		s.userIndex[b] = append(s.userIndex[b], key)
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = msg.CreatedAt
	return nil
}

func (s *ConversationStore) GetConversation(_ context.Context, key string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneConversation(conv), nil
}

func (s *ConversationStore) ConversationsForUser(_ context.Context, userID string) ([]*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Conversation
	for _, key := range s.userIndex[userID] {
		out = append(out, cloneConversation(s.conversations[key]))
	}
	return out, nil
}

func cloneConversation(c *models.Conversation) *models.Conversation {
	cp := *c
	cp.Messages = append([]models.ConversationMessage(nil), c.Messages...)
	return &cp
}
