package services

import (
	"context"
	"testing"

	"github.com/SargisDallakyan/blogPlatform/internal/mq"
	"github.com/SargisDallakyan/blogPlatform/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentService(t *testing.T) {
	posts, _, _ := newPostService(nil)
	backend := &fakeBackend{}
	comments := newFakeCommentRepo()
	svc := NewCommentService(comments, posts, mq.NewPublisher(backend, discardLogger()))
	ctx := context.Background()

	post, err := posts.Create(ctx, alice, PostInput{Title: "Hello", Body: "World"})
	require.NoError(t, err)

	t.Run("missing post", func(t *testing.T) {
		_, err := svc.Create(ctx, bob, 404, "hi")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = svc.ListByPost(ctx, 404)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	first, err := svc.Create(ctx, bob, post.ID, "first")
	require.NoError(t, err)
	require.NotNil(t, first.Author)
	assert.Equal(t, "bobby", first.Author.Username)
	_, err = svc.Create(ctx, alice, post.ID, "second")
	require.NoError(t, err)
	assert.Equal(t, []string{mq.EventCommentCreated, mq.EventCommentCreated}, backend.channels())

	listed, err := svc.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "first", listed[0].Text)

	t.Run("only author or admin deletes", func(t *testing.T) {
		assert.ErrorIs(t, svc.Delete(ctx, alice, first.ID), ErrForbidden)
		require.NoError(t, svc.Delete(ctx, bob, first.ID))
		assert.ErrorIs(t, svc.Delete(ctx, bob, first.ID), store.ErrNotFound)

		listed, err := svc.ListByPost(ctx, post.ID)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		require.NoError(t, svc.Delete(ctx, admin, listed[0].ID))
	})
}
