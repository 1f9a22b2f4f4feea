package memory

import (
	"context"
	"sync"

	"github.com/connectly/connectly-backend/internal/storage"
)

// GraphStore keeps follow edges as paired adjacency sets.
type GraphStore struct {
	mu        sync.RWMutex
	followers map[string]map[string]bool // userID -> set of follower ids
	following map[string]map[string]bool // userID -> set of followed ids
}

func NewGraphStore() *GraphStore {
	return &GraphStore{
		followers: make(map[string]map[string]bool),
		following: make(map[string]map[string]bool),
	}
}

var _ storage.GraphStore = (*GraphStore)(nil)

func (s *GraphStore) Follow(_ context.Context, followerID, followeeID string) (bool, error) {
	if followerID == followeeID {
		return false, storage.ErrInvalid
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.following[followerID][followeeID] {
		return false, nil
	}
	if s.following[followerID] == nil {
		s.following[followerID] = make(map[string]bool)
	}
	if s.followers[followeeID] == nil {
		s.followers[followeeID] = make(map[string]bool)
	}
	s.following[followerID][followeeID] = true
	s.followers[followeeID][followerID] = true
	return true, nil
}

func (s *GraphStore) Unfollow(_ context.Context, followerID, followeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.following[followerID], followeeID)
	delete(s.followers[followeeID], followerID)
	return nil
}

func (s *GraphStore) Followers(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return setToSlice(s.followers[userID]), nil
}

func (s *GraphStore) Following(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return setToSlice(s.following[userID]), nil
}

func (s *GraphStore) IsFollowing(_ context.Context, followerID, followeeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.following[followerID][followeeID], nil
}

// Friends returns the mutual-follow intersection for userID.
func (s *GraphStore) Friends(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var friends []string
	for id := range s.following[userID] {
		if s.followers[userID][id] {
			friends = append(friends, id)
		}
	}
	return friends, nil
}

func (s *GraphStore) Counts(_ context.Context, userID string) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.followers[userID]), len(s.following[userID]), nil
}

func setToSlice(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
