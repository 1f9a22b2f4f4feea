package valkeystore

import (
	"context"
	"fmt"

	valkey "github.com/valkey-io/valkey-go"

	"github.com/connectly/connectly-backend/internal/storage"
)

// GraphStore persists follow edges as paired sets:
// graph:followers:{id} and graph:following:{id}.
type GraphStore struct {
	client valkey.Client
}

func NewGraphStore(client valkey.Client) *GraphStore {
	return &GraphStore{client: client}
}

var _ storage.GraphStore = (*GraphStore)(nil)

func followersKey(id string) string { return "graph:followers:" + id }
func followingKey(id string) string { return "graph:following:" + id }

func (s *GraphStore) Follow(ctx context.Context, followerID, followeeID string) (bool, error) {
	if followerID == followeeID {
		return false, storage.ErrInvalid
	}
	added, err := s.client.Do(ctx, s.client.B().Sadd().Key(followingKey(followerID)).Member(followeeID).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("valkey: add following edge: %w", err)
	}
	if err := s.client.Do(ctx, s.client.B().Sadd().Key(followersKey(followeeID)).Member(followerID).Build()).Error(); err != nil {
		return false, fmt.Errorf("valkey: add follower edge: %w", err)
	}
	return added == 1, nil
}

func (s *GraphStore) Unfollow(ctx context.Context, followerID, followeeID string) error {
	for _, resp := range s.client.DoMulti(ctx,
		s.client.B().Srem().Key(followingKey(followerID)).Member(followeeID).Build(),
		s.client.B().Srem().Key(followersKey(followeeID)).Member(followerID).Build(),
	) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("valkey: remove follow edge: %w", err)
		}
	}
	return nil
}

func (s *GraphStore) Followers(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.client.Do(ctx, s.client.B().Smembers().Key(followersKey(userID)).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("valkey: followers: %w", err)
	}
	return ids, nil
}

func (s *GraphStore) Following(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.client.Do(ctx, s.client.B().Smembers().Key(followingKey(userID)).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("valkey: following: %w", err)
	}
	return ids, nil
}

func (s *GraphStore) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	ok, err := s.client.Do(ctx, s.client.B().Sismember().Key(followingKey(followerID)).Member(followeeID).Build()).AsBool()
	if err != nil {
		return false, fmt.Errorf("valkey: is following: %w", err)
	}
	return ok, nil
}

// Friends is the intersection of the user's follower and following sets.
func (s *GraphStore) Friends(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.client.Do(ctx, s.client.B().Sinter().Key(followersKey(userID), followingKey(userID)).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("valkey: friends: %w", err)
	}
	return ids, nil
}

func (s *GraphStore) Counts(ctx context.Context, userID string) (int, int, error) {
	followers, err := s.client.Do(ctx, s.client.B().Scard().Key(followersKey(userID)).Build()).AsInt64()
	if err != nil {
		return 0, 0, fmt.Errorf("valkey: follower count: %w", err)
	}
	following, err := s.client.Do(ctx, s.client.B().Scard().Key(followingKey(userID)).Build()).AsInt64()
	if err != nil {
		return 0, 0, fmt.Errorf("valkey: following count: %w", err)
	}
	return int(followers), int(following), nil
}
