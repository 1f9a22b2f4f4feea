package valkeystore

import (
	"context"
	"fmt"
	"sort"

	valkey "github.com/valkey-io/valkey-go"

	"github.com/connectly/connectly-backend/internal/models"
	"github.com/connectly/connectly-backend/internal/storage"
)

// PostStore persists the post body under post:{id}, the like set under
// post:{id}:likes and the comment list under post:{id}:comments, so likes
// and comments mutate atomically without rewriting the document.
type PostStore struct {
	client valkey.Client
}

func NewPostStore(client valkey.Client) *PostStore {
	return &PostStore{client: client}
}

var _ storage.PostStore = (*PostStore)(nil)

func postKey(id string) string      { return "post:" + id }
func postLikes(id string) string    { return "post:" + id + ":likes" }
func postComments(id string) string { return "post:" + id + ":comments" }
func userPosts(id string) string    { return "user:" + id + ":posts" }

func (s *PostStore) CreatePost(ctx context.Context, p *models.Post) error {
	doc, err := marshalDoc(p)
	if err != nil {
		return err
	}
	for _, resp := range s.client.DoMulti(ctx,
		s.client.B().Set().Key(postKey(p.ID)).Value(doc).Build(),
		s.client.B().Rpush().Key(userPosts(p.AuthorID)).Element(p.ID).Build(),
	) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("valkey: store post: %w", err)
		}
	}
	return nil
}

func (s *PostStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	raw, err := s.client.Do(ctx, s.client.B().Get().Key(postKey(id)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("valkey: get post: %w", err)
	}
	var p models.Post
	if err := unmarshalDoc(raw, &p); err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostStore) PostsByUser(ctx context.Context, userID string) ([]*models.Post, error) {
	ids, err := s.client.Do(ctx, s.client.B().Lrange().Key(userPosts(userID)).Start(0).Stop(-1).Build()).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("valkey: user posts: %w", err)
	}
	out := make([]*models.Post, 0, len(ids))
	// Newest first.
	for i := len(ids) - 1; i >= 0; i-- {
		p, err := s.GetPost(ctx, ids[i])
		if err != nil {
			if err == storage.ErrNotFound {
				continue
			}
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *PostStore) Feed(ctx context.Context, authorIDs []string, limit int) ([]*models.Post, error) {
	var out []*models.Post
	for _, author := range authorIDs {
		posts, err := s.PostsByUser(ctx, author)
		if err != nil {
			return nil, err
		}
		out = append(out, posts...)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *PostStore) ToggleLike(ctx context.Context, postID, userID string) (bool, int, error) {
	exists, err := s.client.Do(ctx, s.client.B().Exists().Key(postKey(postID)).Build()).AsInt64()
	if err != nil {
		return false, 0, fmt.Errorf("valkey: check post: %w", err)
	}
	if exists == 0 {
		return false, 0, storage.ErrNotFound
	}

	added, err := s.client.Do(ctx, s.client.B().Sadd().Key(postLikes(postID)).Member(userID).Build()).AsInt64()
	if err != nil {
		return false, 0, fmt.Errorf("valkey: like post: %w", err)
	}
	liked := added == 1
	if !liked {
		if err := s.client.Do(ctx, s.client.B().Srem().Key(postLikes(postID)).Member(userID).Build()).Error(); err != nil {
			return false, 0, fmt.Errorf("valkey: unlike post: %w", err)
		}
	}
	count, err := s.client.Do(ctx, s.client.B().Scard().Key(postLikes(postID)).Build()).AsInt64()
	if err != nil {
		return liked, 0, fmt.Errorf("valkey: like count: %w", err)
	}
	return liked, int(count), nil
}

func (s *PostStore) AddComment(ctx context.Context, postID string, c models.Comment) error {
	exists, err := s.client.Do(ctx, s.client.B().Exists().Key(postKey(postID)).Build()).AsInt64()
	if err != nil {
		return fmt.Errorf("valkey: check post: %w", err)
	}
	if exists == 0 {
		return storage.ErrNotFound
	}
	doc, err := marshalDoc(c)
	if err != nil {
		return err
	}
	if err := s.client.Do(ctx, s.client.B().Rpush().Key(postComments(postID)).Element(doc).Build()).Error(); err != nil {
		return fmt.Errorf("valkey: append comment: %w", err)
	}
	return nil
}

// hydrate fills the embedded like set and comment list from their keys.
func (s *PostStore) hydrate(ctx context.Context, p *models.Post) error {
	likes, err := s.client.Do(ctx, s.client.B().Smembers().Key(postLikes(p.ID)).Build()).AsStrSlice()
	if err != nil {
		return fmt.Errorf("valkey: post likes: %w", err)
	}
	p.LikedBy = likes

	raws, err := s.client.Do(ctx, s.client.B().Lrange().Key(postComments(p.ID)).Start(0).Stop(-1).Build()).AsStrSlice()
	if err != nil {
		return fmt.Errorf("valkey: post comments: %w", err)
	}
	p.Comments = make([]models.Comment, 0, len(raws))
	for _, raw := range raws {
		var c models.Comment
		if err := unmarshalDoc(raw, &c); err != nil {
			return err
		}
		p.Comments = append(p.Comments, c)
	}
	return nil
}
