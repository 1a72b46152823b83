package feedcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stride/internal/events"
	"stride/internal/models"
)

// stubStore implements remote.Store with function fields.
type stubStore struct {
	fetchFn func(ctx context.Context, limit int) ([]*models.Activity, error)
}

func (s *stubStore) FetchPublicActivities(ctx context.Context, limit int) ([]*models.Activity, error) {
	return s.fetchFn(ctx, limit)
}

func (s *stubStore) ToggleLike(ctx context.Context, activityID string) (bool, error) {
	return false, errors.New("not used")
}

func (s *stubStore) AddComment(ctx context.Context, activityID, text, authorName, authorAvatarURL string) (*models.Comment, error) {
	return nil, errors.New("not used")
}

func (s *stubStore) DeleteComment(ctx context.Context, commentID string) error {
	return errors.New("not used")
}

func (s *stubStore) LoadComments(ctx context.Context, activityID string) ([]models.Comment, error) {
	return nil, errors.New("not used")
}

func feedActivity(id string, likeCount int) *models.Activity {
	a := &models.Activity{
		ID:         id,
		OwnerID:    "owner-" + id,
		Title:      "Activity " + id,
		Visibility: models.VisibilityPublic,
		LikeCount:  likeCount,
		CreatedAt:  time.Date(2023, 4, 1, 8, 0, 0, 0, time.UTC),
	}
	a.Normalize()
	return a
}

func fixedFeed(pages ...[]*models.Activity) *stubStore {
	i := 0
	return &stubStore{
		fetchFn: func(context.Context, int) ([]*models.Activity, error) {
			page := pages[i]
			if i < len(pages)-1 {
				i++
			}
			return page, nil
		},
	}
}

func TestCache_RefreshReplacesWholesale(t *testing.T) {
	t.Parallel()

	store := fixedFeed(
		[]*models.Activity{feedActivity("a1", 1), feedActivity("a2", 0)},
		[]*models.Activity{feedActivity("a2", 3)},
	)
	c := New(store, nil)

	require.NoError(t, c.Refresh(context.Background(), 50))
	assert.Len(t, c.Snapshot(), 2)

	require.NoError(t, c.Refresh(context.Background(), 50))
	snap := c.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "a2", snap[0].ID)
	assert.Equal(t, 3, snap[0].LikeCount)

	_, ok := c.Get("a1")
	assert.False(t, ok, "activities absent from the fresh feed are dropped")
}

func TestCache_RefreshPreservesLoadedComments(t *testing.T) {
	t.Parallel()

	store := fixedFeed([]*models.Activity{feedActivity("a1", 0)})
	c := New(store, nil)
	require.NoError(t, c.Refresh(context.Background(), 50))

	c.SetComments("a1", []models.Comment{{ID: "c1", Text: "loaded"}})

	// Feed rows never carry comment bodies; a refresh must not wipe them.
	require.NoError(t, c.Refresh(context.Background(), 50))
	got, ok := c.Get("a1")
	require.True(t, ok)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "loaded", got.Comments[0].Text)
}

func TestCache_RefreshErrorKeepsOldContents(t *testing.T) {
	t.Parallel()

	calls := 0
	store := &stubStore{
		fetchFn: func(context.Context, int) ([]*models.Activity, error) {
			calls++
			if calls > 1 {
				return nil, errors.New("backend down")
			}
			return []*models.Activity{feedActivity("a1", 1)}, nil
		},
	}
	c := New(store, nil)
	require.NoError(t, c.Refresh(context.Background(), 50))

	assert.Error(t, c.Refresh(context.Background(), 50))
	_, ok := c.Get("a1")
	assert.True(t, ok)
}

func TestCache_ApplyOptimisticIgnoresUnknownIDs(t *testing.T) {
	t.Parallel()

	c := New(fixedFeed([]*models.Activity{feedActivity("a1", 0)}), nil)
	require.NoError(t, c.Refresh(context.Background(), 50))

	stranger := feedActivity("private-1", 2)
	c.ApplyOptimistic(stranger)

	_, ok := c.Get("private-1")
	assert.False(t, ok, "local mutations never add entries the feed did not return")
}

func TestCache_ApplyOptimisticMergesKnownIDs(t *testing.T) {
	t.Parallel()

	c := New(fixedFeed([]*models.Activity{feedActivity("a1", 0)}), nil)
	require.NoError(t, c.Refresh(context.Background(), 50))

	mutated := feedActivity("a1", 1)
	mutated.LikedBy.Add("userA")
	c.ApplyOptimistic(mutated)

	got, _ := c.Get("a1")
	assert.Equal(t, 1, got.LikeCount)
	assert.True(t, got.LikedBy.Contains("userA"))
}

func TestCache_CommentOperations(t *testing.T) {
	t.Parallel()

	c := New(fixedFeed([]*models.Activity{feedActivity("a1", 0)}), nil)
	require.NoError(t, c.Refresh(context.Background(), 50))

	assert.True(t, c.AddComment("a1", models.Comment{ID: "tmp-1", Text: "hi"}))
	assert.False(t, c.AddComment("ghost", models.Comment{ID: "x"}))

	c.ReplaceCommentID("a1", "tmp-1", "srv-1")
	got, _ := c.Get("a1")
	assert.Equal(t, "srv-1", got.Comments[0].ID)
	assert.Equal(t, 1, got.CommentCount)

	assert.True(t, c.RemoveComment("a1", "srv-1"))
	assert.False(t, c.RemoveComment("a1", "srv-1"), "second delete finds nothing")
	got, _ = c.Get("a1")
	assert.Empty(t, got.Comments)
	assert.Equal(t, 0, got.CommentCount)
}

func TestCache_RestoreRevertsExactly(t *testing.T) {
	t.Parallel()

	c := New(fixedFeed([]*models.Activity{feedActivity("a1", 1)}), nil)
	require.NoError(t, c.Refresh(context.Background(), 50))

	before, _ := c.Get("a1")
	mutated := before.Clone()
	mutated.SetLiked("userA", true)
	c.ApplyOptimistic(mutated)

	c.Restore(before)
	got, _ := c.Get("a1")
	assert.Equal(t, 1, got.LikeCount)
	assert.False(t, got.LikedBy.Contains("userA"))

	// Restoring an id the feed dropped is ignored.
	c.Restore(feedActivity("gone", 0))
	_, ok := c.Get("gone")
	assert.False(t, ok)
}

func TestCache_AttachBus(t *testing.T) {
	t.Parallel()

	c := New(fixedFeed([]*models.Activity{feedActivity("a1", 0), feedActivity("a2", 0)}), nil)
	require.NoError(t, c.Refresh(context.Background(), 50))

	bus := events.NewBus(nil)
	cancel := c.AttachBus(bus)
	defer cancel()

	liked := feedActivity("a1", 1)
	liked.LikedBy.Add("userA")
	bus.Publish(events.ActivityUpdated{Activity: liked})
	// Redelivery of the same update is idempotent.
	bus.Publish(events.ActivityUpdated{Activity: liked})

	got, _ := c.Get("a1")
	assert.Equal(t, 1, got.LikeCount)
	assert.True(t, got.LikedBy.Contains("userA"))

	bus.Publish(events.ActivityDeleted{ActivityID: "a2"})
	_, ok := c.Get("a2")
	assert.False(t, ok)
	assert.Len(t, c.Snapshot(), 1)
}
