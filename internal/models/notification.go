package models

import "time"

// NotificationType identifies what produced a notification.
type NotificationType string

const (
	NotificationFollow NotificationType = "follow"
)

// Notification is a fan-in event record on the recipient's list.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Type      NotificationType `json:"type"`
	ActorID   string           `json:"actorId"`
	ActorName string           `json:"actorName,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}
