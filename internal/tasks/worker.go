package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/connectly/connectly-backend/internal/models"
	"github.com/connectly/connectly-backend/internal/storage"
)

// LivePusher delivers an event to a user's live connection, if one exists.
// The gateway implements it; delivery is best-effort.
type LivePusher interface {
	NotifyUser(userID string, event any)
}

// Worker processes background tasks. Handlers must be idempotent up to
// duplicate notifications, which the at-least-once queue may produce.
type Worker struct {
	Notifications storage.NotificationStore
	Users         storage.UserStore
	Pusher        LivePusher
	Log           *zap.Logger
}

// Register wires the worker's handlers onto an asynq mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeFollowNotification, w.HandleFollowNotification)
}

type notificationEvent struct {
	Type         string              `json:"type"`
	Notification models.Notification `json:"notification"`
}

// HandleFollowNotification persists the notification document and pushes it
// to the recipient when they are connected.
func (w *Worker) HandleFollowNotification(ctx context.Context, t *asynq.Task) error {
	var payload FollowNotificationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("follow notification: unmarshal payload: %w", err)
	}

	n := models.Notification{
		ID:        uuid.NewString(),
		UserID:    payload.FolloweeID,
		Type:      models.NotificationFollow,
		ActorID:   payload.FollowerID,
		CreatedAt: time.Now().UTC(),
	}
	if actor, err := w.Users.GetUser(ctx, payload.FollowerID); err == nil {
		n.ActorName = actor.DisplayName
	}

	if err := w.Notifications.Append(ctx, n); err != nil {
		return fmt.Errorf("follow notification: persist: %w", err)
	}

	if w.Pusher != nil {
		w.Pusher.NotifyUser(payload.FolloweeID, notificationEvent{Type: "notification", Notification: n})
	}
	w.Log.Info("follow notification delivered",
		zap.String("follower", payload.FollowerID),
		zap.String("followee", payload.FolloweeID))
	return nil
}

// NewServer builds the asynq server consuming the notification queue.
func NewServer(redisURL string, log *zap.Logger) (*asynq.Server, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse redis url: %w", err)
	}
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: 5,
		Queues:      map[string]int{QueueNotifications: 1, "default": 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error("task failed", zap.String("type", task.Type()), zap.Error(err))
		}),
	})
	return srv, nil
}

// NewClient builds the asynq enqueue client.
func NewClient(redisURL string) (*asynq.Client, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse redis url: %w", err)
	}
	return asynq.NewClient(opt), nil
}
