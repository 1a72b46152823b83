package localstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"stride/internal/models"
	"stride/internal/observability"
)

type persistedState struct {
	Activities []*models.Activity `json:"activities"`
}

// Store holds the current actor's activities in memory and mirrors every
// mutation to a BlobStore asynchronously. The in-memory state is
// authoritative for the process lifetime: a failed write is logged, never
// surfaced, and a failed or missing read degrades to an empty set.
//
// All mutations run synchronously under one mutex; only Load and the
// background saves touch I/O.
type Store struct {
	mu         sync.Mutex
	blob       BlobStore
	log        *observability.Logger
	activities map[string]*models.Activity

	// saveSeq orders async writes so a slow older snapshot can never
	// clobber a newer one.
	saveSeq  uint64
	writeMu  sync.Mutex
	writeSeq uint64
}

// New creates a store over the given blob. Call Load before first use.
func New(blob BlobStore, log *observability.Logger) *Store {
	if log == nil {
		log = observability.Discard()
	}
	return &Store{
		blob:       blob,
		log:        log.Named("localstore"),
		activities: make(map[string]*models.Activity),
	}
}

// Load reads the persisted blob on a background goroutine and publishes the
// outcome on the returned channel (exactly one value). A corrupt or missing
// blob leaves the store empty and usable; the error is informational only.
func (s *Store) Load(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		err := s.load()
		if err != nil {
			s.log.Warn("load failed, starting with empty cache", "error", err)
		}
		select {
		case done <- err:
		case <-ctx.Done():
		}
	}()
	return done
}

func (s *Store) load() error {
	data, err := s.blob.ReadAll()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range state.Activities {
		if a == nil || a.ID == "" {
			continue
		}
		a.Normalize()
		s.activities[a.ID] = a
	}
	return nil
}

// scheduleSave snapshots the current state and writes it on a background
// goroutine. Must be called with s.mu held.
func (s *Store) scheduleSave() {
	state := persistedState{Activities: make([]*models.Activity, 0, len(s.activities))}
	for _, a := range s.activities {
		state.Activities = append(state.Activities, a.Clone())
	}
	sort.Slice(state.Activities, func(i, j int) bool {
		return state.Activities[i].ID < state.Activities[j].ID
	})

	s.saveSeq++
	seq := s.saveSeq

	go func() {
		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			s.log.Error("marshal cache state", "error", err)
			return
		}
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		if seq <= s.writeSeq {
			// A newer snapshot already hit disk.
			return
		}
		if err := s.blob.WriteAll(data); err != nil {
			s.log.Warn("save failed, in-memory state remains authoritative", "error", err)
			return
		}
		s.writeSeq = seq
	}()
}

// Get returns a clone of the activity, if present.
func (s *Store) Get(id string) (*models.Activity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[id]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// All returns clones of every cached activity, newest first by SortTime.
func (s *Store) All() []*models.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Activity, 0, len(s.activities))
	for _, a := range s.activities {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SortTime().After(out[j].SortTime())
	})
	return out
}

// Upsert inserts or replaces the activity by id with the merge rule: loaded
// comments survive a sparser incoming record and the comment count never
// shrinks. Returns a clone of the stored result.
func (s *Store) Upsert(incoming *models.Activity) *models.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := models.Merged(s.activities[incoming.ID], incoming)
	s.activities[merged.ID] = merged
	s.scheduleSave()
	return merged.Clone()
}

// Delete removes the activity only when the requesting actor owns it.
// Anything else is a no-op reported as an authorization failure; the backend
// enforces the same rule independently.
func (s *Store) Delete(id, requestingActorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[id]
	if !ok {
		return models.NewNotFoundError("activity", id)
	}
	if a.OwnerID != requestingActorID {
		return models.NewUnauthorizedError("Only the owner can delete an activity")
	}
	delete(s.activities, id)
	s.scheduleSave()
	return nil
}

// ToggleLike flips the actor's membership and adjusts the count by one,
// clamped at zero. The new membership state is returned synchronously so the
// UI can update before any network confirmation.
func (s *Store) ToggleLike(id, actorID string) (liked bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[id]
	if !ok {
		return false, models.NewNotFoundError("activity", id)
	}
	liked = !a.LikedBy.Contains(actorID)
	a.SetLiked(actorID, liked)
	s.scheduleSave()
	return liked, nil
}

// AddComment appends the comment and bumps the count. When the activity is
// not cached locally (it belongs to another actor and was only ever seen in
// the community feed) this reports not-found rather than fabricating a
// phantom entry; the caller still owns the comment value it built.
func (s *Store) AddComment(id string, comment models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[id]
	if !ok {
		return models.NewNotFoundError("activity", id)
	}
	a.Comments = append(a.Comments, comment)
	a.CommentCount++
	s.scheduleSave()
	return nil
}

// ReplaceCommentID swaps a client-generated comment id for the id the
// backend assigned. Missing activity or comment is a silent no-op.
func (s *Store) ReplaceCommentID(activityID, oldID, newID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[activityID]
	if !ok {
		return
	}
	for i := range a.Comments {
		if a.Comments[i].ID == oldID {
			a.Comments[i].ID = newID
			s.scheduleSave()
			return
		}
	}
}

// SetComments replaces the loaded comment list when the fresh list is
// non-empty and lifts the count to at least the loaded length.
func (s *Store) SetComments(activityID string, comments []models.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[activityID]
	if !ok {
		return
	}
	if len(comments) == 0 {
		return
	}
	a.Comments = make([]models.Comment, len(comments))
	copy(a.Comments, comments)
	if a.CommentCount < len(comments) {
		a.CommentCount = len(comments)
	}
	s.scheduleSave()
}

// DeleteComment removes the comment only when the requesting identity
// authored it, matching by stable account id first and legacy email second.
// The count decrements floored at zero.
func (s *Store) DeleteComment(activityID, commentID string, requester models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[activityID]
	if !ok {
		return models.NewNotFoundError("activity", activityID)
	}
	for i := range a.Comments {
		if a.Comments[i].ID != commentID {
			continue
		}
		if !a.Comments[i].AuthoredBy(requester) {
			return models.NewUnauthorizedError("Only the author can delete a comment")
		}
		a.Comments = append(a.Comments[:i], a.Comments[i+1:]...)
		if a.CommentCount > 0 {
			a.CommentCount--
		}
		s.scheduleSave()
		return nil
	}
	return models.NewNotFoundError("comment", commentID)
}

// ReconcileCounts overwrites the aggregate counters with backend-confirmed
// values and asserts only the given actor's own membership bit. It must
// never bulk-replace LikedBy: the store may know other actors' likes the
// backend response doesn't carry.
func (s *Store) ReconcileCounts(id string, likeCount, commentCount int, actorID string, actorLiked bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[id]
	if !ok {
		return false
	}
	changed := false
	if a.LikeCount != likeCount {
		a.LikeCount = likeCount
		changed = true
	}
	// Backend count wins, but never below the loaded subset.
	if commentCount < len(a.Comments) {
		commentCount = len(a.Comments)
	}
	if a.CommentCount != commentCount {
		a.CommentCount = commentCount
		changed = true
	}
	if a.LikedBy.Contains(actorID) != actorLiked {
		if actorLiked {
			a.LikedBy.Add(actorID)
		} else {
			a.LikedBy.Remove(actorID)
		}
		changed = true
	}
	if changed {
		s.scheduleSave()
	}
	return changed
}

// Restore puts back an exact pre-mutation snapshot; the rollback half of the
// optimistic-update protocol.
func (s *Store) Restore(a *models.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities[a.ID] = a.Clone()
	s.scheduleSave()
}
