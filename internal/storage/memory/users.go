package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/connectly/connectly-backend/internal/models"
	"github.com/connectly/connectly-backend/internal/storage"
)

// UserStore keeps account records in process memory. Used by tests and
// local development; the valkey adapter is the production counterpart.
type UserStore struct {
	mu      sync.RWMutex
	users   map[string]*models.User // id -> user
	byName  map[string]string       // lowercase username -> id
	byEmail map[string]string       // lowercase email -> id
	order   []string                // insertion order of ids
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:   make(map[string]*models.User),
		byName:  make(map[string]string),
		byEmail: make(map[string]string),
	}
}

var _ storage.UserStore = (*UserStore)(nil)

func (s *UserStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.ToLower(u.Username)
	email := strings.ToLower(u.Email)
	if _, taken := s.byName[name]; taken {
		return storage.ErrConflict
	}
	if _, taken := s.byEmail[email]; taken {
		return storage.ErrConflict
	}

	cp := *u
	s.users[u.ID] = &cp
	s.byName[name] = u.ID
	s.byEmail[email] = u.ID
	s.order = append(s.order, u.ID)
	return nil
}

func (s *UserStore) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *UserStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[strings.ToLower(username)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *UserStore) UpdateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return storage.ErrNotFound
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *UserStore) ListUserIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids, nil
}
