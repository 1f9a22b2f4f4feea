package valkeystore

import (
	"context"
	"fmt"

	valkey "github.com/valkey-io/valkey-go"

	"github.com/connectly/connectly-backend/internal/models"
	"github.com/connectly/connectly-backend/internal/storage"
)

// NotificationStore persists per-user notification lists under
// user:{id}:notifications, append order.
type NotificationStore struct {
	client valkey.Client
}

func NewNotificationStore(client valkey.Client) *NotificationStore {
	return &NotificationStore{client: client}
}

var _ storage.NotificationStore = (*NotificationStore)(nil)

func notificationsKey(id string) string { return "user:" + id + ":notifications" }

func (s *NotificationStore) Append(ctx context.Context, n models.Notification) error {
	doc, err := marshalDoc(&n)
	if err != nil {
		return err
	}
	if err := s.client.Do(ctx, s.client.B().Rpush().Key(notificationsKey(n.UserID)).Element(doc).Build()).Error(); err != nil {
		return fmt.Errorf("valkey: append notification: %w", err)
	}
	return nil
}

// ListForUser returns notifications newest first.
func (s *NotificationStore) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	raws, err := s.client.Do(ctx, s.client.B().Lrange().Key(notificationsKey(userID)).Start(0).Stop(-1).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("valkey: list notifications: %w", err)
	}
	out := make([]models.Notification, 0, len(raws))
	for i := len(raws) - 1; i >= 0; i-- {
		var n models.Notification
		if err := unmarshalDoc(raws[i], &n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, userID string) error {
	raws, err := s.client.Do(ctx, s.client.B().Lrange().Key(notificationsKey(userID)).Start(0).Stop(-1).Build()).AsStrSlice()
	if err != nil {
		return fmt.Errorf("valkey: list notifications: %w", err)
	}
	for i, raw := range raws {
		var n models.Notification
		if err := unmarshalDoc(raw, &n); err != nil {
			return err
		}
		if n.Read {
			continue
		}
		n.Read = true
		doc, err := marshalDoc(&n)
		if err != nil {
			return err
		}
		if err := s.client.Do(ctx, s.client.B().Lset().Key(notificationsKey(userID)).Index(int64(i)).Element(doc).Build()).Error(); err != nil {
			return fmt.Errorf("valkey: mark read: %w", err)
		}
	}
	return nil
}
