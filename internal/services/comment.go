package services

import (
	"context"
	"fmt"

	"github.com/SargisDallakyan/blogPlatform/internal/auth"
	"github.com/SargisDallakyan/blogPlatform/internal/mq"
	"github.com/SargisDallakyan/blogPlatform/types"
)

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	ListByPost(ctx context.Context, postID int) ([]types.Comment, error)
	Get(ctx context.Context, id int) (types.Comment, error)
	Create(ctx context.Context, comment types.Comment) (types.Comment, error)
	Delete(ctx context.Context, id int) error
}

// PostLookup resolves the post a comment belongs to.
type PostLookup interface {
	Get(ctx context.Context, id int) (types.Post, error)
}

// CommentService encapsulates comment use-cases.
type CommentService struct {
	repo   CommentRepository
	posts  PostLookup
	events *mq.Publisher
}

func NewCommentService(repo CommentRepository, posts PostLookup, events *mq.Publisher) *CommentService {
	return &CommentService{repo: repo, posts: posts, events: events}
}

// ListByPost returns the comments of a post, oldest first.
func (s *CommentService) ListByPost(ctx context.Context, postID int) ([]types.Comment, error) {
	if _, err := s.posts.Get(ctx, postID); err != nil {
		return nil, err
	}
	return s.repo.ListByPost(ctx, postID)
}

// Create attaches a comment written by actor to an existing post.
func (s *CommentService) Create(ctx context.Context, actor auth.Principal, postID int, text string) (types.Comment, error) {
	if _, err := s.posts.Get(ctx, postID); err != nil {
		return types.Comment{}, err
	}

	comment, err := s.repo.Create(ctx, types.Comment{
		PostID:   postID,
		AuthorID: actor.UserID,
		Text:     text,
	})
	if err != nil {
		return types.Comment{}, err
	}
	comment.Author = &types.Author{ID: actor.UserID, Username: actor.Username}

	s.events.Emit(ctx, mq.EventCommentCreated, map[string]any{
		"comment_id": comment.ID,
		"post_id":    postID,
		"author_id":  actor.UserID,
	})
	return comment, nil
}

// Delete removes a comment. Only its author or an admin may do so.
func (s *CommentService) Delete(ctx context.Context, actor auth.Principal, id int) error {
	comment, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if comment.AuthorID != actor.UserID && actor.Role != types.RoleAdmin {
		return fmt.Errorf("delete comment %d: %w", id, ErrForbidden)
	}
	return s.repo.Delete(ctx, id)
}
