// Package tasks defines the background jobs processed by the asynq worker
// that runs alongside the HTTP server.
package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// TypeFollowNotification fans a follow event into the followed user's
	// notification list.
	TypeFollowNotification = "notification:follow"

	// QueueNotifications is the asynq queue notification jobs run on.
	QueueNotifications = "notifications"
)

// Enqueuer is the slice of asynq.Client the handlers depend on.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// FollowNotificationPayload is the task body for TypeFollowNotification.
type FollowNotificationPayload struct {
	FollowerID string `json:"followerId"`
	FolloweeID string `json:"followeeId"`
}

// NewFollowNotificationTask builds the asynq task for a new follow edge.
func NewFollowNotificationTask(followerID, followeeID string) (*asynq.Task, error) {
	payload, err := json.Marshal(FollowNotificationPayload{FollowerID: followerID, FolloweeID: followeeID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeFollowNotification, payload, asynq.Queue(QueueNotifications), asynq.MaxRetry(3)), nil
}
