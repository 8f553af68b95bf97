package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/SargisDallakyan/blogPlatform/internal/auth"
	"github.com/SargisDallakyan/blogPlatform/internal/mq"
	"github.com/SargisDallakyan/blogPlatform/internal/storage"
	"github.com/SargisDallakyan/blogPlatform/internal/store"
	"github.com/SargisDallakyan/blogPlatform/types"
)

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.Post, int, error)
	Get(ctx context.Context, id int) (types.Post, error)
	Create(ctx context.Context, post types.Post) (types.Post, error)
	Update(ctx context.Context, post types.Post) (types.Post, error)
	SetCover(ctx context.Context, id int, key string) error
	Delete(ctx context.Context, id int) error
}

// PostInput carries the writable fields of a post.
type PostInput struct {
	Title string
	Body  string
}

// CoverUpload is an image to be stored as a post cover.
type CoverUpload struct {
	Body        io.Reader
	Size        int64
	ContentType string
}

// PostService encapsulates post use-cases.
type PostService struct {
	repo   PostRepository
	covers storage.ObjectStorage
	events *mq.Publisher
	logger *slog.Logger
}

// NewPostService constructs a PostService. covers and events may be nil.
func NewPostService(repo PostRepository, covers storage.ObjectStorage, events *mq.Publisher, logger *slog.Logger) *PostService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostService{
		repo:   repo,
		covers: covers,
		events: events,
		logger: logger,
	}
}

// CoversEnabled reports whether cover images can be stored.
func (s *PostService) CoversEnabled() bool {
	return s.covers != nil
}

func (s *PostService) List(ctx context.Context, offset, limit int) ([]types.Post, int, error) {
	return s.repo.List(ctx, offset, limit)
}

func (s *PostService) Get(ctx context.Context, id int) (types.Post, error) {
	return s.repo.Get(ctx, id)
}

// Create stores a post written by actor.
func (s *PostService) Create(ctx context.Context, actor auth.Principal, in PostInput) (types.Post, error) {
	post, err := s.repo.Create(ctx, types.Post{
		Title:    in.Title,
		Body:     in.Body,
		AuthorID: actor.UserID,
	})
	if err != nil {
		return types.Post{}, err
	}
	post.Author = &types.Author{ID: actor.UserID, Username: actor.Username}

	s.events.Emit(ctx, mq.EventPostCreated, map[string]any{
		"post_id":   post.ID,
		"author_id": post.AuthorID,
		"title":     post.Title,
	})
	return post, nil
}

// Update overwrites title and body. Posts of other authors are reported as not found.
func (s *PostService) Update(ctx context.Context, actor auth.Principal, id int, in PostInput) (types.Post, error) {
	post, err := s.owned(ctx, actor, id, false)
	if err != nil {
		return types.Post{}, err
	}

	post.Title = in.Title
	post.Body = in.Body
	updated, err := s.repo.Update(ctx, post)
	if err != nil {
		return types.Post{}, err
	}
	updated.Author = post.Author
	return updated, nil
}

// Delete removes a post owned by actor, or any post when actor is an admin.
func (s *PostService) Delete(ctx context.Context, actor auth.Principal, id int) error {
	post, err := s.owned(ctx, actor, id, true)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if post.CoverKey != "" && s.covers != nil {
		if err := s.covers.Delete(ctx, post.CoverKey); err != nil {
			s.logger.WarnContext(ctx, "delete cover", "post_id", id, "key", post.CoverKey, "error", err)
		}
	}

	s.events.Emit(ctx, mq.EventPostDeleted, map[string]any{
		"post_id":    id,
		"author_id":  post.AuthorID,
		"deleted_by": actor.UserID,
	})
	return nil
}

// SetCover uploads the cover image of a post owned by actor.
func (s *PostService) SetCover(ctx context.Context, actor auth.Principal, id int, upload CoverUpload) (types.Post, error) {
	if s.covers == nil {
		return types.Post{}, ErrCoversDisabled
	}
	post, err := s.owned(ctx, actor, id, false)
	if err != nil {
		return types.Post{}, err
	}

	key := storage.CoverKey(id)
	if err := s.covers.Put(ctx, key, upload.Body, upload.Size, upload.ContentType); err != nil {
		return types.Post{}, fmt.Errorf("storing cover: %w", err)
	}
	if err := s.repo.SetCover(ctx, id, key); err != nil {
		return types.Post{}, err
	}
	post.CoverKey = key
	return post, nil
}

// Cover opens the stored cover image of a post. The caller closes the body.
func (s *PostService) Cover(ctx context.Context, id int) (storage.Object, error) {
	if s.covers == nil {
		return storage.Object{}, ErrCoversDisabled
	}
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return storage.Object{}, err
	}
	if post.CoverKey == "" {
		return storage.Object{}, fmt.Errorf("cover of post %d: %w", id, store.ErrNotFound)
	}

	obj, err := s.covers.Get(ctx, post.CoverKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return storage.Object{}, fmt.Errorf("cover of post %d: %w", id, store.ErrNotFound)
		}
		return storage.Object{}, err
	}
	return obj, nil
}

func (s *PostService) owned(ctx context.Context, actor auth.Principal, id int, adminAllowed bool) (types.Post, error) {
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Post{}, err
	}
	if post.AuthorID == actor.UserID {
		return post, nil
	}
	if adminAllowed && actor.Role == types.RoleAdmin {
		return post, nil
	}
	return types.Post{}, fmt.Errorf("post %d: %w", id, store.ErrNotFound)
}
