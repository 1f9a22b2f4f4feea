package models

import (
	"strings"
	"time"
)

// Community is a Discord-style server: members with roles plus a set of
// channels.
type Community struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"ownerId"`
	IconURL     string    `json:"iconUrl,omitempty"`
	Members     int       `json:"members"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Role is a community membership role, ordered by privilege.
type Role string

const (
	RoleOwner     Role = "owner"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleMember    Role = "member"
)

var rolePrivilege = map[Role]int{
	RoleOwner:     3,
	RoleAdmin:     2,
	RoleModerator: 1,
	RoleMember:    0,
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := rolePrivilege[r]
	return ok
}

// AtLeast reports whether r carries at least the privilege of min.
func (r Role) AtLeast(min Role) bool {
	return rolePrivilege[r] >= rolePrivilege[min]
}

// Membership ties one user to one community; unique per (user, community).
type Membership struct {
	UserID      string    `json:"userId"`
	CommunityID string    `json:"communityId"`
	Role        Role      `json:"role"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// ChannelKind distinguishes text channels, which accept messages, from voice
// channels, which do not.
type ChannelKind string

const (
	ChannelText  ChannelKind = "text"
	ChannelVoice ChannelKind = "voice"
)

// Channel belongs to exactly one community. Name is unique within the
// community after normalization.
type Channel struct {
	ID          string      `json:"id"`
	CommunityID string      `json:"communityId"`
	Name        string      `json:"name"`
	Kind        ChannelKind `json:"kind"`
	Topic       string      `json:"topic,omitempty"`
	Position    int         `json:"position"`
	ParentID    string      `json:"parentId,omitempty"`
	CreatedBy   string      `json:"createdBy"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// ChannelMessage is immutable once created.
type ChannelMessage struct {
	ID          string    `json:"id"`
	ChannelID   string    `json:"channelId"`
	SenderID    string    `json:"senderId"`
	SenderName  string    `json:"senderName,omitempty"`
	Text        string    `json:"text"`
	Attachments []string  `json:"attachments,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NormalizeChannelName lowercases the name and collapses whitespace runs to
// single hyphens, so "General Chat" persists as "general-chat".
func NormalizeChannelName(name string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(name)))
	return strings.Join(fields, "-")
}
