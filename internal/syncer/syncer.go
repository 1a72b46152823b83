// Package syncer implements the write-through-with-optimistic-UI protocol
// that keeps the local store, the community feed cache, and the remote
// backend convergent.
//
// Every social mutation follows the same shape: apply optimistically to
// whichever caches hold the activity, publish, confirm against the backend,
// then reconcile or revert. Centralizing the protocol here is what prevents
// two call sites from stacking independent optimistic increments.
package syncer

import (
	"context"
	"sort"
	"strings"
	"sync"

	"stride/internal/events"
	"stride/internal/feedcache"
	"stride/internal/localstore"
	"stride/internal/models"
	"stride/internal/observability"
	"stride/internal/profile"
	"stride/internal/remote"
)

// DefaultFeedLimit bounds how many public activities a refresh pulls.
const DefaultFeedLimit = 50

// Syncer orchestrates the two caches and the remote store for one actor.
// Construct one per process at the composition root and route every social
// mutation through it; the caches must not be mutated behind its back.
type Syncer struct {
	// mu is the designated mutation context: all cache writes happen under
	// it, atomically with respect to each other. Network I/O never does.
	mu sync.Mutex

	actor     models.Identity
	local     *localstore.Store
	feed      *feedcache.Cache
	remote    remote.Store
	bus       *events.Bus
	profiles  profile.Resolver
	log       *observability.Logger
	feedLimit int
}

// Options tune a Syncer beyond its required collaborators.
type Options struct {
	FeedLimit int
	Logger    *observability.Logger
}

// New wires a Syncer from explicitly-constructed collaborators.
func New(actor models.Identity, local *localstore.Store, feed *feedcache.Cache, store remote.Store, bus *events.Bus, profiles profile.Resolver, opts Options) *Syncer {
	if opts.FeedLimit <= 0 {
		opts.FeedLimit = DefaultFeedLimit
	}
	if opts.Logger == nil {
		opts.Logger = observability.Discard()
	}
	if profiles == nil {
		profiles = profile.Static{}
	}
	return &Syncer{
		actor:     actor,
		local:     local,
		feed:      feed,
		remote:    store,
		bus:       bus,
		profiles:  profiles,
		log:       opts.Logger.Named("syncer"),
		feedLimit: opts.FeedLimit,
	}
}

// snapshot captures the exact pre-mutation copies held by each cache so a
// failed confirmation can revert to them bit-for-bit.
type snapshot struct {
	local *models.Activity
	feed  *models.Activity
}

func (s *Syncer) take(id string) snapshot {
	var snap snapshot
	if a, ok := s.local.Get(id); ok {
		snap.local = a
	}
	if a, ok := s.feed.Get(id); ok {
		snap.feed = a
	}
	return snap
}

// current is the view mutations consult: the local copy takes precedence
// for membership and loaded comments, with the feed copy filling in what
// only it holds. Comments loaded while an activity was local-only must stay
// visible after the feed starts returning the same id without bodies.
func (snap snapshot) current() *models.Activity {
	if snap.local == nil {
		return snap.feed
	}
	if snap.feed == nil {
		return snap.local
	}
	return models.Merged(snap.feed, snap.local)
}

// ToggleLike flips the acting actor's like on the activity. The new state
// lands in both caches and on the bus before the network round trip; a
// failed confirmation restores the exact pre-toggle state and publishes a
// corrective update. Returns the optimistic membership state.
func (s *Syncer) ToggleLike(ctx context.Context, activityID string) (liked bool, err error) {
	s.mu.Lock()
	snap := s.take(activityID)
	current := snap.current()
	if current == nil {
		s.mu.Unlock()
		return false, models.NewNotFoundError("activity", activityID)
	}

	liked = !current.LikedBy.Contains(s.actor.AccountID)
	s.applyLike(snap, liked)
	s.mu.Unlock()

	if _, err := s.remote.ToggleLike(ctx, activityID); err != nil {
		s.revert(snap)
		return !liked, err
	}

	if err := s.RefreshFeed(ctx); err != nil {
		// The toggle itself was confirmed; a failed refresh only delays
		// reconciliation until the next one.
		s.log.Warn("feed refresh after like toggle failed", "activity_id", activityID, "error", err)
	}
	return liked, nil
}

// applyLike writes the deterministic new like state into every cache that
// holds a copy and publishes the result. Caller holds s.mu.
func (s *Syncer) applyLike(snap snapshot, liked bool) {
	var published *models.Activity
	if snap.local != nil {
		updated := snap.local.Clone()
		updated.SetLiked(s.actor.AccountID, liked)
		published = s.local.Upsert(updated)
	}
	if snap.feed != nil {
		updated := snap.feed.Clone()
		updated.SetLiked(s.actor.AccountID, liked)
		s.feed.Restore(updated)
		published = updated
	}
	if published != nil {
		s.bus.Publish(events.ActivityUpdated{Activity: published.Clone()})
	}
}

// revert restores the exact pre-mutation snapshots and re-notifies
// observers so the failed mutation becomes indistinguishable from one that
// never happened.
func (s *Syncer) revert(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var published *models.Activity
	if snap.local != nil {
		s.local.Restore(snap.local)
		published = snap.local
	}
	if snap.feed != nil {
		s.feed.Restore(snap.feed)
		published = snap.feed
	}
	if published != nil {
		s.bus.Publish(events.ActivityUpdated{Activity: published.Clone()})
	}
}

// AddComment records the actor's comment optimistically and confirms it
// against the backend. A failed confirmation is logged, not rolled back:
// the local mutation already satisfied user intent, and recovery UI is a
// product decision this engine does not make. On success the client
// generated comment id is replaced with the backend's.
func (s *Syncer) AddComment(ctx context.Context, activityID, text string) (models.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return models.Comment{}, models.NewValidationError("Comment text is required")
	}

	prof, _ := s.profiles.ResolveCurrentActor(ctx)
	comment := models.NewComment(activityID, s.actor, prof.DisplayName, prof.AvatarURL, text)

	s.mu.Lock()
	snap := s.take(activityID)
	if snap.current() == nil {
		s.mu.Unlock()
		return models.Comment{}, models.NewNotFoundError("activity", activityID)
	}
	if snap.local != nil {
		if err := s.local.AddComment(activityID, comment); err != nil {
			s.mu.Unlock()
			return models.Comment{}, err
		}
	}
	if snap.feed != nil {
		s.feed.AddComment(activityID, comment)
	}
	s.publishCurrent(activityID)
	s.mu.Unlock()

	created, err := s.remote.AddComment(ctx, activityID, comment.Text, comment.AuthorName, comment.AuthorAvatarURL)
	if err != nil {
		s.log.Warn("comment not confirmed by backend, keeping optimistic copy",
			"activity_id", activityID, "comment_id", comment.ID, "error", err)
		return comment, nil
	}

	s.mu.Lock()
	s.local.ReplaceCommentID(activityID, comment.ID, created.ID)
	s.feed.ReplaceCommentID(activityID, comment.ID, created.ID)
	s.mu.Unlock()
	comment.ID = created.ID
	return comment, nil
}

// DeleteComment removes the actor's own comment. A non-author request is a
// pure no-op: no state change and no network call. The backend delete runs
// in the background; its failure is logged only, since the local deletion
// already satisfied user intent.
func (s *Syncer) DeleteComment(ctx context.Context, activityID, commentID string) error {
	s.mu.Lock()
	snap := s.take(activityID)
	current := snap.current()
	if current == nil {
		s.mu.Unlock()
		return models.NewNotFoundError("activity", activityID)
	}

	var target *models.Comment
	for i := range current.Comments {
		if current.Comments[i].ID == commentID {
			target = &current.Comments[i]
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		return models.NewNotFoundError("comment", commentID)
	}
	if !target.AuthoredBy(s.actor) {
		s.mu.Unlock()
		return models.NewUnauthorizedError("Only the author can delete a comment")
	}

	if snap.local != nil {
		if err := s.local.DeleteComment(activityID, commentID, s.actor); err != nil && models.CodeOf(err) != models.CodeNotFound {
			s.mu.Unlock()
			return err
		}
	}
	if snap.feed != nil {
		s.feed.RemoveComment(activityID, commentID)
	}
	s.publishCurrent(activityID)
	s.mu.Unlock()

	go func() {
		if err := s.remote.DeleteComment(context.WithoutCancel(ctx), commentID); err != nil {
			s.log.Warn("comment delete not confirmed by backend",
				"activity_id", activityID, "comment_id", commentID, "error", err)
		}
	}()
	return nil
}

// DeleteActivity removes an owned activity. Deletion cascades: both caches
// purge the id and every observer hears ActivityDeleted.
func (s *Syncer) DeleteActivity(ctx context.Context, activityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.take(activityID)
	current := snap.current()
	if current == nil {
		return models.NewNotFoundError("activity", activityID)
	}
	if current.OwnerID != s.actor.AccountID {
		return models.NewUnauthorizedError("Only the owner can delete an activity")
	}
	if snap.local != nil {
		if err := s.local.Delete(activityID, s.actor.AccountID); err != nil {
			return err
		}
	}
	s.feed.Remove(activityID)
	s.bus.Publish(events.ActivityDeleted{ActivityID: activityID})
	return nil
}

// LoadComments pulls the full comment list from the backend and merges it
// into every cache holding the activity.
func (s *Syncer) LoadComments(ctx context.Context, activityID string) ([]models.Comment, error) {
	comments, err := s.remote.LoadComments(ctx, activityID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.local.SetComments(activityID, comments)
	s.feed.SetComments(activityID, comments)
	s.publishCurrent(activityID)
	s.mu.Unlock()
	return comments, nil
}

// RefreshFeed refreshes the community cache wholesale and reconciles
// backend-confirmed counts back into the local store.
func (s *Syncer) RefreshFeed(ctx context.Context) error {
	if err := s.feed.Refresh(ctx, s.feedLimit); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fresh := range s.feed.Snapshot() {
		if _, ok := s.local.Get(fresh.ID); !ok {
			continue
		}
		changed := s.local.ReconcileCounts(fresh.ID, fresh.LikeCount, fresh.CommentCount,
			s.actor.AccountID, fresh.LikedBy.Contains(s.actor.AccountID))
		if changed {
			if updated, ok := s.local.Get(fresh.ID); ok {
				s.bus.Publish(events.ActivityUpdated{Activity: updated})
			}
		}
	}
	return nil
}

// CombinedFeed is the deduplicated view shown wherever both caches render
// together. When an id exists in both, the feed cache's counts win, but
// comments only the local store has loaded stay visible. Sorted newest first.
func (s *Syncer) CombinedFeed() []*models.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()

	feedIDs := s.feed.IDs()
	combined := s.feed.Snapshot()
	for i, a := range combined {
		if local, ok := s.local.Get(a.ID); ok {
			combined[i] = models.Merged(local, a)
		}
	}
	for _, a := range s.local.All() {
		if _, dup := feedIDs[a.ID]; dup {
			continue
		}
		combined = append(combined, a)
	}
	sortActivities(combined)
	return combined
}

// publishCurrent broadcasts the freshest cached copy of the activity.
// Caller holds s.mu.
func (s *Syncer) publishCurrent(activityID string) {
	if a, ok := s.feed.Get(activityID); ok {
		s.bus.Publish(events.ActivityUpdated{Activity: a})
		return
	}
	if a, ok := s.local.Get(activityID); ok {
		s.bus.Publish(events.ActivityUpdated{Activity: a})
	}
}

func sortActivities(activities []*models.Activity) {
	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].SortTime().After(activities[j].SortTime())
	})
}
