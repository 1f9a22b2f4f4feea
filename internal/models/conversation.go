package models

import (
	"sort"
	"strings"
	"time"
)

// Conversation is a direct-message room between exactly two users. The key is
// derived from the participant pair so either side computes the same value;
// the room is upserted lazily on first message and never deleted.
type Conversation struct {
	Key          string                `json:"key"`
	Participants [2]string             `json:"participants"`
	Messages     []ConversationMessage `json:"messages"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// ConversationMessage is immutable once appended to its room.
type ConversationMessage struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text"`
	Delivered bool      `json:"delivered"`
	Seen      bool      `json:"seen"`
	CreatedAt time.Time `json:"createdAt"`
}

// ConversationKey derives the room key for a participant pair. The pair is
// sorted lexicographically before joining, so key(a,b) == key(b,a).
func ConversationKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + "_" + pair[1]
}

// ConversationParticipants splits a room key back into its pair. Only
// canonical keys parse: the parts must be non-empty and strictly ordered, so
// an unsorted or self-pair key can never address a second room.
func ConversationParticipants(key string) (string, string, bool) {
	a, b, ok := strings.Cut(key, "_")
	if !ok || a == "" || b == "" || a >= b {
		return "", "", false
	}
	return a, b, true
}

// HasParticipant reports whether userID is one of the room's two members.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.Participants[0] == userID || c.Participants[1] == userID
}
