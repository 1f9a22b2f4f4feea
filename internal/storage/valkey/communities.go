package valkeystore

import (
	"context"
	"fmt"

	valkey "github.com/valkey-io/valkey-go"

	"github.com/connectly/connectly-backend/internal/models"
	"github.com/connectly/connectly-backend/internal/storage"
)

// CommunityStore persists community documents, a membership hash per
// community, channel documents and per-channel history lists.
type CommunityStore struct {
	client valkey.Client
}

func NewCommunityStore(client valkey.Client) *CommunityStore {
	return &CommunityStore{client: client}
}

var _ storage.CommunityStore = (*CommunityStore)(nil)

func communityKey(id string) string    { return "community:" + id }
func membersKey(id string) string      { return "community:" + id + ":members" }
func channelsKey(id string) string     { return "community:" + id + ":channels" }
func channelNames(id string) string    { return "community:" + id + ":channelnames" }
func userCommunities(id string) string { return "user:" + id + ":communities" }
func channelKey(id string) string      { return "channel:" + id }
func channelHistory(id string) string  { return "channel:" + id + ":messages" }

func (s *CommunityStore) CreateCommunity(ctx context.Context, c *models.Community) error {
	doc, err := marshalDoc(c)
	if err != nil {
		return err
	}
	if err := s.client.Do(ctx, s.client.B().Set().Key(communityKey(c.ID)).Value(doc).Build()).Error(); err != nil {
		return fmt.Errorf("valkey: store community: %w", err)
	}
	return nil
}

func (s *CommunityStore) GetCommunity(ctx context.Context, id string) (*models.Community, error) {
	raw, err := s.client.Do(ctx, s.client.B().Get().Key(communityKey(id)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("valkey: get community: %w", err)
	}
	var c models.Community
	if err := unmarshalDoc(raw, &c); err != nil {
		return nil, err
	}
	count, err := s.client.Do(ctx, s.client.B().Hlen().Key(membersKey(id)).Build()).AsInt64()
	if err != nil {
		return nil, fmt.Errorf("valkey: member count: %w", err)
	}
	c.Members = int(count)
	return &c, nil
}

func (s *CommunityStore) CommunitiesForUser(ctx context.Context, userID string) ([]*models.Community, error) {
	ids, err := s.client.Do(ctx, s.client.B().Smembers().Key(userCommunities(userID)).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("valkey: user communities: %w", err)
	}
	out := make([]*models.Community, 0, len(ids))
	for _, id := range ids {
		c, err := s.GetCommunity(ctx, id)
		if err != nil {
			if err == storage.ErrNotFound {
				continue
			}
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *CommunityStore) AddMember(ctx context.Context, m models.Membership) error {
	if _, err := s.GetCommunity(ctx, m.CommunityID); err != nil {
		return err
	}
	doc, err := marshalDoc(m)
	if err != nil {
		return err
	}
	// HSETNX keeps (user, community) unique.
	added, err := s.client.Do(ctx, s.client.B().Hsetnx().Key(membersKey(m.CommunityID)).Field(m.UserID).Value(doc).Build()).AsBool()
	if err != nil {
		return fmt.Errorf("valkey: add member: %w", err)
	}
	if !added {
		return storage.ErrConflict
	}
	if err := s.client.Do(ctx, s.client.B().Sadd().Key(userCommunities(m.UserID)).Member(m.CommunityID).Build()).Error(); err != nil {
		return fmt.Errorf("valkey: index membership: %w", err)
	}
	return nil
}

func (s *CommunityStore) RemoveMember(ctx context.Context, communityID, userID string) error {
	removed, err := s.client.Do(ctx, s.client.B().Hdel().Key(membersKey(communityID)).Field(userID).Build()).AsInt64()
	if err != nil {
		return fmt.Errorf("valkey: remove member: %w", err)
	}
	if removed == 0 {
		return storage.ErrNotFound
	}
	if err := s.client.Do(ctx, s.client.B().Srem().Key(userCommunities(userID)).Member(communityID).Build()).Error(); err != nil {
		return fmt.Errorf("valkey: unindex membership: %w", err)
	}
	return nil
}

func (s *CommunityStore) GetMembership(ctx context.Context, communityID, userID string) (*models.Membership, error) {
	raw, err := s.client.Do(ctx, s.client.B().Hget().Key(membersKey(communityID)).Field(userID).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("valkey: get membership: %w", err)
	}
	var m models.Membership
	if err := unmarshalDoc(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// setRoleScript writes the membership only if the field still exists, so a
// concurrent RemoveMember cannot be resurrected by the HSET.
var setRoleScript = valkey.NewLuaScript(`if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 0 then return 0 end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 1`)

func (s *CommunityStore) SetRole(ctx context.Context, communityID, userID string, role models.Role) error {
	m, err := s.GetMembership(ctx, communityID, userID)
	if err != nil {
		return err
	}
	m.Role = role
	doc, err := marshalDoc(m)
	if err != nil {
		return err
	}
	updated, err := setRoleScript.Exec(ctx, s.client, []string{membersKey(communityID)}, []string{userID, doc}).AsInt64()
	if err != nil {
		return fmt.Errorf("valkey: set role: %w", err)
	}
	if updated == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *CommunityStore) CreateChannel(ctx context.Context, ch *models.Channel) error {
	if _, err := s.GetCommunity(ctx, ch.CommunityID); err != nil {
		return err
	}
	// SADD on the name set doubles as the per-community uniqueness check.
	added, err := s.client.Do(ctx, s.client.B().Sadd().Key(channelNames(ch.CommunityID)).Member(ch.Name).Build()).AsInt64()
	if err != nil {
		return fmt.Errorf("valkey: claim channel name: %w", err)
	}
	if added == 0 {
		return storage.ErrConflict
	}
	doc, err := marshalDoc(ch)
	if err != nil {
		return err
	}
	for _, resp := range s.client.DoMulti(ctx,
		s.client.B().Set().Key(channelKey(ch.ID)).Value(doc).Build(),
		s.client.B().Rpush().Key(channelsKey(ch.CommunityID)).Element(ch.ID).Build(),
	) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("valkey: store channel: %w", err)
		}
	}
	return nil
}

func (s *CommunityStore) GetChannel(ctx context.Context, channelID string) (*models.Channel, error) {
	raw, err := s.client.Do(ctx, s.client.B().Get().Key(channelKey(channelID)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("valkey: get channel: %w", err)
	}
	var ch models.Channel
	if err := unmarshalDoc(raw, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (s *CommunityStore) ChannelsForCommunity(ctx context.Context, communityID string) ([]*models.Channel, error) {
	if _, err := s.GetCommunity(ctx, communityID); err != nil {
		return nil, err
	}
	ids, err := s.client.Do(ctx, s.client.B().Lrange().Key(channelsKey(communityID)).Start(0).Stop(-1).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("valkey: community channels: %w", err)
	}
	out := make([]*models.Channel, 0, len(ids))
	for _, id := range ids {
		ch, err := s.GetChannel(ctx, id)
		if err != nil {
			if err == storage.ErrNotFound {
				continue
			}
			return nil, err
		}
		out = append(out, ch)
	}
	return out, nil
}

func (s *CommunityStore) AppendChannelMessage(ctx context.Context, msg *models.ChannelMessage) error {
	if _, err := s.GetChannel(ctx, msg.ChannelID); err != nil {
		return err
	}
	doc, err := marshalDoc(msg)
	if err != nil {
		return err
	}
	if err := s.client.Do(ctx, s.client.B().Rpush().Key(channelHistory(msg.ChannelID)).Element(doc).Build()).Error(); err != nil {
		return fmt.Errorf("valkey: append channel message: %w", err)
	}
	return nil
}

func (s *CommunityStore) ChannelMessages(ctx context.Context, channelID string, page, limit int) ([]models.ChannelMessage, error) {
	if _, err := s.GetChannel(ctx, channelID); err != nil {
		return nil, err
	}
	page, limit = storage.NormalizePage(page, limit)

	total, err := s.client.Do(ctx, s.client.B().Llen().Key(channelHistory(channelID)).Build()).AsInt64()
	if err != nil {
		return nil, fmt.Errorf("valkey: history length: %w", err)
	}
	start, end := storage.PageBounds(int(total), page, limit)
	if start == end {
		return []models.ChannelMessage{}, nil
	}

	raws, err := s.client.Do(ctx, s.client.B().Lrange().Key(channelHistory(channelID)).Start(int64(start)).Stop(int64(end-1)).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("valkey: fetch history: %w", err)
	}
	out := make([]models.ChannelMessage, 0, len(raws))
	for _, raw := range raws {
		var m models.ChannelMessage
		if err := unmarshalDoc(raw, &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
