package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stride/internal/models"
)

// memoryBlob is an in-process BlobStore for tests.
type memoryBlob struct {
	mu       sync.Mutex
	data     []byte
	readErr  error
	writeErr error
}

func (m *memoryBlob) ReadAll() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	return m.data, nil
}

func (m *memoryBlob) WriteAll(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *memoryBlob) snapshot() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

func newTestStore(t *testing.T, blob BlobStore) *Store {
	t.Helper()
	if blob == nil {
		blob = &memoryBlob{}
	}
	s := New(blob, nil)
	require.NoError(t, <-s.Load(context.Background()))
	return s
}

func sampleActivity(id, owner string) *models.Activity {
	a := &models.Activity{
		ID:         id,
		OwnerID:    owner,
		Title:      "Morning run",
		Visibility: models.VisibilityPublic,
		CreatedAt:  time.Date(2023, 4, 1, 8, 0, 0, 0, time.UTC),
	}
	a.Normalize()
	return a
}

func TestStore_LoadCorruptBlobStartsEmpty(t *testing.T) {
	t.Parallel()

	blob := &memoryBlob{data: []byte("{not json")}
	s := New(blob, nil)
	err := <-s.Load(context.Background())
	assert.Error(t, err)
	assert.Empty(t, s.All())

	// The store stays usable after a failed load.
	s.Upsert(sampleActivity("a1", "u1"))
	_, ok := s.Get("a1")
	assert.True(t, ok)
}

func TestStore_LoadSkipsNullAndIDLessEntries(t *testing.T) {
	t.Parallel()

	// A null array element is valid JSON and must not crash the load.
	blob := &memoryBlob{data: []byte(`{"activities":[null,{"owner_id":"u0"},{"id":"a1","owner_id":"u1"}]}`)}
	s := New(blob, nil)
	require.NoError(t, <-s.Load(context.Background()))

	assert.Len(t, s.All(), 1)
	got, ok := s.Get("a1")
	require.True(t, ok)
	assert.Equal(t, models.VisibilityPrivate, got.Visibility)
}

func TestStore_LoadReadErrorStartsEmpty(t *testing.T) {
	t.Parallel()

	blob := &memoryBlob{readErr: errors.New("disk on fire")}
	s := New(blob, nil)
	assert.Error(t, <-s.Load(context.Background()))
	assert.Empty(t, s.All())
}

func TestStore_UpsertMergePreservesComments(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, nil)

	full := sampleActivity("a1", "u1")
	full.Comments = []models.Comment{{ID: "c1", Text: "keep me"}}
	full.CommentCount = 1
	s.Upsert(full)

	sparse := sampleActivity("a1", "u1")
	sparse.LikeCount = 3
	sparse.CommentCount = 2
	s.Upsert(sparse)

	got, ok := s.Get("a1")
	require.True(t, ok)
	assert.Equal(t, 3, got.LikeCount)
	assert.Equal(t, 2, got.CommentCount)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "keep me", got.Comments[0].Text)
}

func TestStore_GetReturnsClone(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, nil)
	s.Upsert(sampleActivity("a1", "u1"))

	got, _ := s.Get("a1")
	got.Title = "mutated"
	got.LikedBy.Add("intruder")

	again, _ := s.Get("a1")
	assert.Equal(t, "Morning run", again.Title)
	assert.False(t, again.LikedBy.Contains("intruder"))
}

func TestStore_DeleteRequiresOwner(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, nil)
	s.Upsert(sampleActivity("a1", "u1"))

	err := s.Delete("a1", "someone-else")
	assert.Equal(t, models.CodeUnauthorized, models.CodeOf(err))
	_, ok := s.Get("a1")
	assert.True(t, ok, "denied delete must leave the activity in place")

	require.NoError(t, s.Delete("a1", "u1"))
	_, ok = s.Get("a1")
	assert.False(t, ok)

	err = s.Delete("a1", "u1")
	assert.Equal(t, models.CodeNotFound, models.CodeOf(err))
}

func TestStore_ToggleLike(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, nil)
	s.Upsert(sampleActivity("a1", "u1"))

	liked, err := s.ToggleLike("a1", "u2")
	require.NoError(t, err)
	assert.True(t, liked)

	liked, err = s.ToggleLike("a1", "u2")
	require.NoError(t, err)
	assert.False(t, liked)

	got, _ := s.Get("a1")
	assert.Equal(t, 0, got.LikeCount)

	_, err = s.ToggleLike("missing", "u2")
	assert.Equal(t, models.CodeNotFound, models.CodeOf(err))
}

func TestStore_AddCommentToUnknownActivity(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, nil)
	err := s.AddComment("ghost", models.Comment{ID: "c1", Text: "hello"})
	assert.Equal(t, models.CodeNotFound, models.CodeOf(err))
	_, ok := s.Get("ghost")
	assert.False(t, ok, "a failed comment must not fabricate an activity")
}

func TestStore_DeleteCommentAuthorization(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, nil)
	a := sampleActivity("a1", "u1")
	a.Comments = []models.Comment{
		{ID: "c1", AuthorID: "u2", Text: "mine"},
		{ID: "c2", AuthorEmail: "legacy@stride.dev", Text: "old record"},
	}
	a.CommentCount = 2
	s.Upsert(a)

	t.Run("non-author denied", func(t *testing.T) {
		err := s.DeleteComment("a1", "c1", models.Identity{AccountID: "u3"})
		assert.Equal(t, models.CodeUnauthorized, models.CodeOf(err))
		got, _ := s.Get("a1")
		assert.Len(t, got.Comments, 2)
	})

	t.Run("email fallback for legacy comments", func(t *testing.T) {
		err := s.DeleteComment("a1", "c2", models.Identity{AccountID: "u9", Email: "Legacy@Stride.dev"})
		require.NoError(t, err)
		got, _ := s.Get("a1")
		assert.Len(t, got.Comments, 1)
		assert.Equal(t, 1, got.CommentCount)
	})

	t.Run("author by account id", func(t *testing.T) {
		err := s.DeleteComment("a1", "c1", models.Identity{AccountID: "u2"})
		require.NoError(t, err)
		got, _ := s.Get("a1")
		assert.Empty(t, got.Comments)
		assert.Equal(t, 0, got.CommentCount)
	})

	t.Run("count floored at zero", func(t *testing.T) {
		b := sampleActivity("a2", "u1")
		b.Comments = []models.Comment{{ID: "c9", AuthorID: "u2"}}
		b.CommentCount = 0
		s.Upsert(b)
		require.NoError(t, s.DeleteComment("a2", "c9", models.Identity{AccountID: "u2"}))
		got, _ := s.Get("a2")
		assert.Equal(t, 0, got.CommentCount)
	})
}

func TestStore_ReplaceCommentID(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, nil)
	a := sampleActivity("a1", "u1")
	a.Comments = []models.Comment{{ID: "local-tmp", Text: "hi"}}
	a.CommentCount = 1
	s.Upsert(a)

	s.ReplaceCommentID("a1", "local-tmp", "srv-42")
	got, _ := s.Get("a1")
	assert.Equal(t, "srv-42", got.Comments[0].ID)

	// Unknown ids are silent no-ops.
	s.ReplaceCommentID("a1", "nope", "x")
	s.ReplaceCommentID("ghost", "local-tmp", "x")
}

func TestStore_SetComments(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, nil)
	a := sampleActivity("a1", "u1")
	a.Comments = []models.Comment{{ID: "stale"}}
	a.CommentCount = 5
	s.Upsert(a)

	// Empty fresh list never wipes what we have.
	s.SetComments("a1", nil)
	got, _ := s.Get("a1")
	assert.Len(t, got.Comments, 1)

	s.SetComments("a1", []models.Comment{{ID: "c1"}, {ID: "c2"}})
	got, _ = s.Get("a1")
	assert.Len(t, got.Comments, 2)
	assert.Equal(t, 5, got.CommentCount, "count above the loaded subset is kept")
}

func TestStore_ReconcileCounts(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, nil)
	a := sampleActivity("a1", "u1")
	a.LikedBy = models.NewActorSet("userB")
	a.LikeCount = 1
	s.Upsert(a)

	changed := s.ReconcileCounts("a1", 2, 0, "userA", true)
	assert.True(t, changed)

	got, _ := s.Get("a1")
	assert.Equal(t, 2, got.LikeCount)
	assert.True(t, got.LikedBy.Contains("userA"))
	assert.True(t, got.LikedBy.Contains("userB"), "reconciliation must not drop other actors' bits")

	// Re-applying the same confirmed state reports no change.
	assert.False(t, s.ReconcileCounts("a1", 2, 0, "userA", true))

	t.Run("comment count never drops below loaded subset", func(t *testing.T) {
		b := sampleActivity("a2", "u1")
		b.Comments = []models.Comment{{ID: "c1"}, {ID: "c2"}}
		b.CommentCount = 2
		s.Upsert(b)
		s.ReconcileCounts("a2", 0, 1, "userA", false)
		got, _ := s.Get("a2")
		assert.Equal(t, 2, got.CommentCount)
	})

	t.Run("unknown activity is a no-op", func(t *testing.T) {
		assert.False(t, s.ReconcileCounts("ghost", 1, 1, "userA", true))
	})
}

func TestStore_RestoreRevertsExactly(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, nil)
	a := sampleActivity("a1", "u1")
	a.LikedBy = models.NewActorSet("userB")
	a.LikeCount = 1
	s.Upsert(a)

	before, _ := s.Get("a1")
	_, err := s.ToggleLike("a1", "userA")
	require.NoError(t, err)

	s.Restore(before)
	got, _ := s.Get("a1")
	assert.Equal(t, 1, got.LikeCount)
	assert.False(t, got.LikedBy.Contains("userA"))
	assert.True(t, got.LikedBy.Contains("userB"))
}

func TestStore_PersistsAndReloads(t *testing.T) {
	t.Parallel()

	blob := &memoryBlob{}
	s := newTestStore(t, blob)

	a := sampleActivity("a1", "u1")
	a.Comments = []models.Comment{{ID: "c1", AuthorID: "u2", Text: "hello"}}
	a.CommentCount = 1
	s.Upsert(a)
	s.Upsert(sampleActivity("a2", "u1"))

	require.Eventually(t, func() bool {
		var state persistedState
		data := blob.snapshot()
		return json.Unmarshal(data, &state) == nil && len(state.Activities) == 2
	}, 2*time.Second, 10*time.Millisecond)

	reloaded := New(blob, nil)
	require.NoError(t, <-reloaded.Load(context.Background()))
	got, ok := reloaded.Get("a1")
	require.True(t, ok)
	assert.Equal(t, "hello", got.Comments[0].Text)
	assert.Equal(t, 1, got.CommentCount)
}

func TestStore_SaveFailureKeepsMemoryAuthoritative(t *testing.T) {
	t.Parallel()

	blob := &memoryBlob{writeErr: errors.New("read-only fs")}
	s := newTestStore(t, blob)

	s.Upsert(sampleActivity("a1", "u1"))
	got, ok := s.Get("a1")
	require.True(t, ok)
	assert.Equal(t, "Morning run", got.Title)
}

func TestFileBlobStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "activities.json")
	blob, err := NewFileBlobStore(path)
	require.NoError(t, err)

	data, err := blob.ReadAll()
	require.NoError(t, err)
	assert.Nil(t, data, "missing blob reads as empty")

	require.NoError(t, blob.WriteAll([]byte(`{"activities":[]}`)))
	data, err = blob.ReadAll()
	require.NoError(t, err)
	assert.JSONEq(t, `{"activities":[]}`, string(data))

	// The temp file never lingers after a successful write.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
