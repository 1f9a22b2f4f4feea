package memory

import (
	"context"
	"sync"

	"github.com/connectly/connectly-backend/internal/models"
	"github.com/connectly/connectly-backend/internal/storage"
)

// NotificationStore keeps per-user notification lists, newest last.
type NotificationStore struct {
	mu    sync.RWMutex
	lists map[string][]models.Notification
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{lists: make(map[string][]models.Notification)}
}

var _ storage.NotificationStore = (*NotificationStore)(nil)

func (s *NotificationStore) Append(_ context.Context, n models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[n.UserID] = append(s.lists[n.UserID], n)
	return nil
}

// ListForUser returns notifications newest first.
func (s *NotificationStore) ListForUser(_ context.Context, userID string) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.lists[userID]
	out := make([]models.Notification, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		out = append(out, list[i])
	}
	return out, nil
}

func (s *NotificationStore) MarkAllRead(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[userID]
	for i := range list {
		list[i].Read = true
	}
	return nil
}
