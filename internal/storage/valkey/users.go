package valkeystore

import (
	"context"
	"fmt"
	"strings"

	valkey "github.com/valkey-io/valkey-go"

	"github.com/connectly/connectly-backend/internal/models"
	"github.com/connectly/connectly-backend/internal/storage"
)

// UserStore persists account documents under user:{id} with username and
// email uniqueness indexes.
type UserStore struct {
	client valkey.Client
}

func NewUserStore(client valkey.Client) *UserStore {
	return &UserStore{client: client}
}

var _ storage.UserStore = (*UserStore)(nil)

func userKey(id string) string       { return "user:" + id }
func usernameKey(name string) string { return "user:byname:" + strings.ToLower(name) }
func emailKey(email string) string   { return "user:byemail:" + strings.ToLower(email) }

func (s *UserStore) CreateUser(ctx context.Context, u *models.User) error {
	// Claim the uniqueness indexes first; SETNX loses cleanly on races.
	ok, err := s.client.Do(ctx, s.client.B().Setnx().Key(usernameKey(u.Username)).Value(u.ID).Build()).AsBool()
	if err != nil {
		return fmt.Errorf("valkey: claim username: %w", err)
	}
	if !ok {
		return storage.ErrConflict
	}
	ok, err = s.client.Do(ctx, s.client.B().Setnx().Key(emailKey(u.Email)).Value(u.ID).Build()).AsBool()
	if err != nil {
		return fmt.Errorf("valkey: claim email: %w", err)
	}
	if !ok {
		_ = s.client.Do(ctx, s.client.B().Del().Key(usernameKey(u.Username)).Build()).Error()
		return storage.ErrConflict
	}

	doc, err := marshalDoc(u)
	if err != nil {
		return err
	}
	for _, resp := range s.client.DoMulti(ctx,
		s.client.B().Set().Key(userKey(u.ID)).Value(doc).Build(),
		s.client.B().Rpush().Key("users:ids").Element(u.ID).Build(),
	) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("valkey: store user: %w", err)
		}
	}
	return nil
}

func (s *UserStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	raw, err := s.client.Do(ctx, s.client.B().Get().Key(userKey(id)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("valkey: get user: %w", err)
	}
	var u models.User
	if err := unmarshalDoc(raw, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	id, err := s.client.Do(ctx, s.client.B().Get().Key(usernameKey(username)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("valkey: resolve username: %w", err)
	}
	return s.GetUser(ctx, id)
}

func (s *UserStore) UpdateUser(ctx context.Context, u *models.User) error {
	exists, err := s.client.Do(ctx, s.client.B().Exists().Key(userKey(u.ID)).Build()).AsInt64()
	if err != nil {
		return fmt.Errorf("valkey: check user: %w", err)
	}
	if exists == 0 {
		return storage.ErrNotFound
	}
	doc, err := marshalDoc(u)
	if err != nil {
		return err
	}
	if err := s.client.Do(ctx, s.client.B().Set().Key(userKey(u.ID)).Value(doc).Build()).Error(); err != nil {
		return fmt.Errorf("valkey: update user: %w", err)
	}
	return nil
}

func (s *UserStore) ListUserIDs(ctx context.Context) ([]string, error) {
	ids, err := s.client.Do(ctx, s.client.B().Lrange().Key("users:ids").Start(0).Stop(-1).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("valkey: list users: %w", err)
	}
	return ids, nil
}
