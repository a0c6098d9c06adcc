package comments

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidshare/api/internal/auth"
	"github.com/vidshare/api/internal/models"
	"github.com/vidshare/api/internal/store"
)

var (
	alice = &auth.Principal{UserID: "u-alice", Username: "alice"}
	bob   = &auth.Principal{UserID: "u-bob", Username: "bob"}
)

func newTestService() (*Service, *store.MemoryCommentStore) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cs := store.NewMemoryCommentStore()
	return NewService(cs, logger), cs
}

func TestService_CreateAndList(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	first, err := svc.Create(ctx, alice, "v1", models.CommentRequest{Text: "  first  "})
	require.NoError(t, err)
	assert.Equal(t, "first", first.Text)
	assert.Equal(t, "u-alice", first.AuthorID)
	assert.Equal(t, "alice", first.AuthorName)
	assert.NotEmpty(t, first.ID)

	_, err = svc.Create(ctx, bob, "v1", models.CommentRequest{Text: "second"})
	require.NoError(t, err)

	list, err := svc.List(ctx, "v1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Text)
	assert.Equal(t, "first", list[1].Text)
}

func TestService_CreateRequiresPrincipal(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Create(context.Background(), nil, "v1", models.CommentRequest{Text: "hi"})
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestService_CreateValidation(t *testing.T) {
	svc, _ := newTestService()

	tests := []struct {
		name    string
		videoID string
		text    string
		field   string
	}{
		{"blank text", "v1", "   ", "text"},
		{"text too long", "v1", strings.Repeat("a", 1001), "text"},
		{"blank video", " ", "hi", "videoId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), alice, tt.videoID, models.CommentRequest{Text: tt.text})

			var vErr *models.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Violations[0].Field)
		})
	}
}

func TestService_UpdateOwnership(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	c, err := svc.Create(ctx, alice, "v1", models.CommentRequest{Text: "original"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, bob, c.ID, models.CommentRequest{Text: "hijacked"})
	assert.ErrorIs(t, err, auth.ErrForbidden)

	updated, err := svc.Update(ctx, alice, c.ID, models.CommentRequest{Text: "edited"})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Text)
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))
}

func TestService_NotFoundBeforeForbidden(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Update(ctx, bob, "missing", models.CommentRequest{Text: "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, bob, "missing"), store.ErrNotFound)
}

func TestService_ForbiddenBeforeValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	c, err := svc.Create(ctx, alice, "v1", models.CommentRequest{Text: "original"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, bob, c.ID, models.CommentRequest{Text: ""})
	assert.ErrorIs(t, err, auth.ErrForbidden)
}

func TestService_CheckAccess(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	c, err := svc.Create(ctx, alice, "v1", models.CommentRequest{Text: "original"})
	require.NoError(t, err)

	assert.NoError(t, svc.CheckAccess(ctx, alice, c.ID))
	assert.ErrorIs(t, svc.CheckAccess(ctx, bob, c.ID), auth.ErrForbidden)
	assert.ErrorIs(t, svc.CheckAccess(ctx, bob, "missing"), store.ErrNotFound)
	assert.ErrorIs(t, svc.CheckAccess(ctx, nil, c.ID), auth.ErrUnauthenticated)
}

func TestService_DeleteOwnership(t *testing.T) {
	svc, cs := newTestService()
	ctx := context.Background()

	c, err := svc.Create(ctx, alice, "v1", models.CommentRequest{Text: "bye"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, bob, c.ID), auth.ErrForbidden)
	_, err = cs.Get(ctx, c.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, alice, c.ID))
	assert.ErrorIs(t, svc.Delete(ctx, alice, c.ID), store.ErrNotFound)
}

func TestService_ListEmpty(t *testing.T) {
	svc, _ := newTestService()
	list, err := svc.List(context.Background(), "nothing-here")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

// racingStore deletes the comment between Get and the conditional write.
type racingStore struct {
	*store.MemoryCommentStore
}

func (r racingStore) UpdateText(ctx context.Context, id, authorID, text string, at time.Time) (*models.Comment, error) {
	_ = r.MemoryCommentStore.Delete(ctx, id, authorID)
	return r.MemoryCommentStore.UpdateText(ctx, id, authorID, text, at)
}

func TestService_UpdateLosesRaceToDelete(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	mem := store.NewMemoryCommentStore()
	svc := NewService(racingStore{mem}, logger)
	ctx := context.Background()

	c, err := svc.Create(ctx, alice, "v1", models.CommentRequest{Text: "x"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, alice, c.ID, models.CommentRequest{Text: "y"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
