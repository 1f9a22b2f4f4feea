package memory

import (
	"context"
	"sync"

	"github.com/connectly/connectly-backend/internal/models"
	"github.com/connectly/connectly-backend/internal/storage"
)

// CommunityStore keeps communities, memberships, channels and channel
// message history in process memory.
type CommunityStore struct {
	mu          sync.RWMutex
	communities map[string]*models.Community
	memberships map[string]map[string]*models.Membership // communityID -> userID -> membership
	userIndex   map[string][]string                      // userID -> []communityID
	channels    map[string]*models.Channel               // channelID -> channel
	byCommunity map[string][]string                      // communityID -> []channelID, creation order
	messages    map[string][]models.ChannelMessage       // channelID -> history, append order
}

func NewCommunityStore() *CommunityStore {
	return &CommunityStore{
		communities: make(map[string]*models.Community),
		memberships: make(map[string]map[string]*models.Membership),
		userIndex:   make(map[string][]string),
		channels:    make(map[string]*models.Channel),
		byCommunity: make(map[string][]string),
		messages:    make(map[string][]models.ChannelMessage),
	}
}

var _ storage.CommunityStore = (*CommunityStore)(nil)

func (s *CommunityStore) CreateCommunity(_ context.Context, c *models.Community) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.communities[c.ID] = &cp
	s.memberships[c.ID] = make(map[string]*models.Membership)
	return nil
}

func (s *CommunityStore) GetCommunity(_ context.Context, id string) (*models.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.communities[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *c
	cp.Members = len(s.memberships[id])
	return &cp, nil
}

func (s *CommunityStore) CommunitiesForUser(_ context.Context, userID string) ([]*models.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Community
	for _, id := range s.userIndex[userID] {
		if c, ok := s.communities[id]; ok {
			cp := *c
			cp.Members = len(s.memberships[id])
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *CommunityStore) AddMember(_ context.Context, m models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.memberships[m.CommunityID]
	if !ok {
		return storage.ErrNotFound
	}
	if _, exists := members[m.UserID]; exists {
		return storage.ErrConflict
	}
	cp := m
	members[m.UserID] = &cp
	s.userIndex[m.UserID] = append(s.userIndex[m.UserID], m.CommunityID)
	return nil
}

func (s *CommunityStore) RemoveMember(_ context.Context, communityID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.memberships[communityID]
	if !ok {
		return storage.ErrNotFound
	}
	if _, exists := members[userID]; !exists {
		return storage.ErrNotFound
	}
	delete(members, userID)
	ids := s.userIndex[userID]
	for i, id := range ids {
		if id == communityID {
			s.userIndex[userID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (s *CommunityStore) GetMembership(_ context.Context, communityID, userID string) (*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members, ok := s.memberships[communityID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	m, ok := members[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *CommunityStore) SetRole(_ context.Context, communityID, userID string, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.memberships[communityID]
	if !ok {
		return storage.ErrNotFound
	}
	m, ok := members[userID]
	if !ok {
		return storage.ErrNotFound
	}
	m.Role = role
	return nil
}

func (s *CommunityStore) CreateChannel(_ context.Context, ch *models.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.communities[ch.CommunityID]; !ok {
		return storage.ErrNotFound
	}
	for _, id := range s.byCommunity[ch.CommunityID] {
		if s.channels[id].Name == ch.Name {
			return storage.ErrConflict
		}
	}
	cp := *ch
	s.channels[ch.ID] = &cp
	s.byCommunity[ch.CommunityID] = append(s.byCommunity[ch.CommunityID], ch.ID)
	return nil
}

func (s *CommunityStore) GetChannel(_ context.Context, channelID string) (*models.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.channels[channelID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *ch
	return &cp, nil
}

func (s *CommunityStore) ChannelsForCommunity(_ context.Context, communityID string) ([]*models.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.communities[communityID]; !ok {
		return nil, storage.ErrNotFound
	}
	ids := s.byCommunity[communityID]
	out := make([]*models.Channel, 0, len(ids))
	for _, id := range ids {
		cp := *s.channels[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *CommunityStore) AppendChannelMessage(_ context.Context, msg *models.ChannelMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[msg.ChannelID]; !ok {
		return storage.ErrNotFound
	}
	s.messages[msg.ChannelID] = append(s.messages[msg.ChannelID], *msg)
	return nil
}

func (s *CommunityStore) ChannelMessages(_ context.Context, channelID string, page, limit int) ([]models.ChannelMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.channels[channelID]; !ok {
		return nil, storage.ErrNotFound
	}
	page, limit = storage.NormalizePage(page, limit)
	history := s.messages[channelID]
	start, end := storage.PageBounds(len(history), page, limit)
	out := make([]models.ChannelMessage, end-start)
	copy(out, history[start:end])
	return out, nil
}
