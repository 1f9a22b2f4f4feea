package storage

import (
	"context"

	"github.com/connectly/connectly-backend/internal/models"
)

// Store interfaces are the ports the handlers and the gateway depend on.
// Two adapters exist: valkey (production document store) and memory
// (tests, local dev). Implementations must be safe for concurrent use.

// UserStore holds account records and the username/email uniqueness indexes.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	ListUserIDs(ctx context.Context) ([]string, error)
}

// GraphStore holds follow edges. Friends are the mutual-follow intersection.
type GraphStore interface {
	Follow(ctx context.Context, followerID, followeeID string) (created bool, err error)
	Unfollow(ctx context.Context, followerID, followeeID string) error
	Followers(ctx context.Context, userID string) ([]string, error)
	Following(ctx context.Context, userID string) ([]string, error)
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
	Friends(ctx context.Context, userID string) ([]string, error)
	Counts(ctx context.Context, userID string) (followers, following int, err error)
}

// PostStore holds post documents with embedded likes and comments.
type PostStore interface {
	CreatePost(ctx context.Context, p *models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	PostsByUser(ctx context.Context, userID string) ([]*models.Post, error)
	Feed(ctx context.Context, authorIDs []string, limit int) ([]*models.Post, error)
	ToggleLike(ctx context.Context, postID, userID string) (liked bool, likes int, err error)
	AddComment(ctx context.Context, postID string, c models.Comment) error
}

// CommunityStore holds communities, memberships, channels and channel
// message history. Channel history is append-only; pages are counted from
// the newest message and returned in chronological order.
type CommunityStore interface {
	CreateCommunity(ctx context.Context, c *models.Community) error
	GetCommunity(ctx context.Context, id string) (*models.Community, error)
	CommunitiesForUser(ctx context.Context, userID string) ([]*models.Community, error)

	AddMember(ctx context.Context, m models.Membership) error
	RemoveMember(ctx context.Context, communityID, userID string) error
	GetMembership(ctx context.Context, communityID, userID string) (*models.Membership, error)
	SetRole(ctx context.Context, communityID, userID string, role models.Role) error

	CreateChannel(ctx context.Context, ch *models.Channel) error
	GetChannel(ctx context.Context, channelID string) (*models.Channel, error)
	ChannelsForCommunity(ctx context.Context, communityID string) ([]*models.Channel, error)

	AppendChannelMessage(ctx context.Context, msg *models.ChannelMessage) error
	ChannelMessages(ctx context.Context, channelID string, page, limit int) ([]models.ChannelMessage, error)
}

// ConversationStore holds direct-message rooms keyed by the deterministic
// pair key. AppendMessage upserts the room on first use, seeding its
// participant set from the key, and appends in one atomic step.
type ConversationStore interface {
	AppendMessage(ctx context.Context, key string, msg models.ConversationMessage) error
	GetConversation(ctx context.Context, key string) (*models.Conversation, error)
	ConversationsForUser(ctx context.Context, userID string) ([]*models.Conversation, error)
}

// NotificationStore holds per-user fan-in event lists.
type NotificationStore interface {
	Append(ctx context.Context, n models.Notification) error
	ListForUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkAllRead(ctx context.Context, userID string) error
}

// ChannelHistoryLimit bounds a single history page; requests above it are
// clamped, requests at or below zero fall back to the default (same value).
const ChannelHistoryLimit = 50
