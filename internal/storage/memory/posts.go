package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/connectly/connectly-backend/internal/models"
	"github.com/connectly/connectly-backend/internal/storage"
)

// PostStore keeps post documents with their likes and comments embedded.
type PostStore struct {
	mu        sync.RWMutex
	posts     map[string]*models.Post
	userIndex map[string][]string // authorID -> []postID, append order
}

func NewPostStore() *PostStore {
	return &PostStore{
		posts:     make(map[string]*models.Post),
		userIndex: make(map[string][]string),
	}
}

var _ storage.PostStore = (*PostStore)(nil)

func (s *PostStore) CreatePost(_ context.Context, p *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := clonePost(p)
	s.posts[p.ID] = cp
	s.userIndex[p.AuthorID] = append(s.userIndex[p.AuthorID], p.ID)
	return nil
}

func (s *PostStore) GetPost(_ context.Context, id string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clonePost(p), nil
}

func (s *PostStore) PostsByUser(_ context.Context, userID string) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.userIndex[userID]
	out := make([]*models.Post, 0, len(ids))
	// Newest first.
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, clonePost(s.posts[ids[i]]))
	}
	return out, nil
}

func (s *PostStore) Feed(_ context.Context, authorIDs []string, limit int) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Post
	for _, author := range authorIDs {
		for _, id := range s.userIndex[author] {
			out = append(out, clonePost(s.posts[id]))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *PostStore) ToggleLike(_ context.Context, postID, userID string) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok {
		return false, 0, storage.ErrNotFound
	}
	for i, id := range p.LikedBy {
		if id == userID {
			p.LikedBy = append(p.LikedBy[:i], p.LikedBy[i+1:]...)
			return false, len(p.LikedBy), nil
		}
	}
	p.LikedBy = append(p.LikedBy, userID)
	return true, len(p.LikedBy), nil
}

func (s *PostStore) AddComment(_ context.Context, postID string, c models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok {
		return storage.ErrNotFound
	}
	p.Comments = append(p.Comments, c)
	return nil
}

func clonePost(p *models.Post) *models.Post {
	cp := *p
	cp.LikedBy = append([]string(nil), p.LikedBy...)
	cp.Comments = append([]models.Comment(nil), p.Comments...)
	return &cp
}
