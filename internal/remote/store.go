// Package remote talks to the backend that is ground truth for aggregate
// social counts.
package remote

import (
	"context"

	"stride/internal/models"
)

// Store abstracts the five backend operations the sync engine needs. Every
// method fails with a REMOTE_UNAVAILABLE AppError on transport trouble and a
// REJECTED AppError when the backend refuses the request; callers decide
// between retry and surface-and-revert from the code.
type Store interface {
	// FetchPublicActivities returns up to limit public activities, newest
	// first, each carrying authoritative counts and a LikedBy holding only
	// the calling actor's own membership (one entry or none).
	FetchPublicActivities(ctx context.Context, limit int) ([]*models.Activity, error)

	// ToggleLike flips the calling actor's like server-side and returns the
	// resulting state. Concurrent toggles by the same actor are serialized by
	// the backend; local optimistic state is unconfirmed until this resolves.
	ToggleLike(ctx context.Context, activityID string) (liked bool, err error)

	// AddComment creates a durable comment row; the backend bumps the
	// activity's authoritative comment count. Returns the created comment
	// with its server-assigned id.
	AddComment(ctx context.Context, activityID, text, authorName, authorAvatarURL string) (*models.Comment, error)

	// DeleteComment removes a comment row; the backend decrements the count
	// floored at zero and enforces author-only deletion on its own.
	DeleteComment(ctx context.Context, commentID string) error

	// LoadComments returns the full comment list, oldest first, with
	// denormalized author metadata.
	LoadComments(ctx context.Context, activityID string) ([]models.Comment, error)
}
