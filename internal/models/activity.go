// Package models contains data structures for the stride sync engine's domain.
package models

import (
	"time"
)

// Activity represents one likeable/commentable activity record, as held by
// the local store, the community feed cache, and the remote backend.
type Activity struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Title   string `json:"title,omitempty"`

	// Visibility governs whether the activity appears in the community feed.
	// Records persisted before the field existed decode to private.
	Visibility Visibility `json:"visibility,omitempty"`

	// LikeCount is the authoritative aggregate reported by the backend. It can
	// disagree with len(LikedBy) because the backend only reports the calling
	// actor's own membership, never the full roster.
	LikeCount int      `json:"like_count"`
	LikedBy   ActorSet `json:"liked_by,omitempty"`

	// CommentCount is the authoritative total and may exceed len(Comments)
	// when not all comments have been loaded.
	CommentCount int       `json:"comment_count"`
	Comments     []Comment `json:"comments,omitempty"`

	StartedAt time.Time `json:"started_at,omitempty"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Normalize repairs an activity decoded from an older persisted record:
// missing collections become empty, missing visibility becomes private, and
// counts are clamped to zero.
func (a *Activity) Normalize() {
	if a.LikedBy == nil {
		a.LikedBy = ActorSet{}
	}
	if a.Visibility == "" {
		a.Visibility = VisibilityPrivate
	}
	if a.LikeCount < 0 {
		a.LikeCount = 0
	}
	if a.CommentCount < 0 {
		a.CommentCount = 0
	}
}

// Clone returns a deep copy. Caches hand out clones so callers can never
// mutate cache internals in place.
func (a *Activity) Clone() *Activity {
	if a == nil {
		return nil
	}
	cp := *a
	cp.LikedBy = a.LikedBy.Clone()
	if a.Comments != nil {
		cp.Comments = make([]Comment, len(a.Comments))
		copy(cp.Comments, a.Comments)
	}
	return &cp
}

// SortTime is the ordering key for combined feeds: the activity's end time,
// falling back to its creation time for records that never recorded one.
func (a *Activity) SortTime() time.Time {
	if !a.EndedAt.IsZero() {
		return a.EndedAt
	}
	return a.CreatedAt
}

// SetLiked asserts or clears a single actor's membership, adjusting LikeCount
// by one in the matching direction and clamping it at zero. It never touches
// any other actor's membership. Returns true if membership changed.
func (a *Activity) SetLiked(actorID string, liked bool) bool {
	if a.LikedBy == nil {
		a.LikedBy = ActorSet{}
	}
	if liked {
		if a.LikedBy.Contains(actorID) {
			return false
		}
		a.LikedBy.Add(actorID)
		a.LikeCount++
		return true
	}
	if !a.LikedBy.Contains(actorID) {
		return false
	}
	a.LikedBy.Remove(actorID)
	if a.LikeCount > 0 {
		a.LikeCount--
	}
	return true
}

// Merged applies the merge-upsert rule: the incoming record wins, except that
// previously-loaded comments are preserved when the incoming record carries
// none, and the comment count never moves below what either side reports.
// Partial updates (a like-only refresh) must not erase loaded comments.
func Merged(existing, incoming *Activity) *Activity {
	if existing == nil {
		out := incoming.Clone()
		out.Normalize()
		return out
	}
	out := incoming.Clone()
	out.Normalize()
	if len(out.Comments) == 0 && len(existing.Comments) > 0 {
		out.Comments = make([]Comment, len(existing.Comments))
		copy(out.Comments, existing.Comments)
	}
	if existing.CommentCount > out.CommentCount {
		out.CommentCount = existing.CommentCount
	}
	return out
}
