package feedcache

import (
	"stride/internal/models"
)

// The merge rule intentionally refuses to drop loaded comments, so comment
// mutations need their own operations instead of going through
// ApplyOptimistic.

// AddComment appends the comment to the cached copy and bumps the count.
// No-op when the feed doesn't hold the activity.
func (c *Cache) AddComment(activityID string, comment models.Comment) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.activities[activityID]
	if !ok {
		return false
	}
	a.Comments = append(a.Comments, comment)
	a.CommentCount++
	return true
}

// RemoveComment deletes the comment from the cached copy, decrementing the
// count floored at zero.
func (c *Cache) RemoveComment(activityID, commentID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.activities[activityID]
	if !ok {
		return false
	}
	for i := range a.Comments {
		if a.Comments[i].ID == commentID {
			a.Comments = append(a.Comments[:i], a.Comments[i+1:]...)
			if a.CommentCount > 0 {
				a.CommentCount--
			}
			return true
		}
	}
	return false
}

// ReplaceCommentID swaps a client-generated comment id for the backend's.
func (c *Cache) ReplaceCommentID(activityID, oldID, newID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.activities[activityID]
	if !ok {
		return
	}
	for i := range a.Comments {
		if a.Comments[i].ID == oldID {
			a.Comments[i].ID = newID
			return
		}
	}
}

// SetComments replaces the loaded comment list when the fresh list is
// non-empty and lifts the count to at least the loaded length.
func (c *Cache) SetComments(activityID string, comments []models.Comment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.activities[activityID]
	if !ok || len(comments) == 0 {
		return
	}
	a.Comments = make([]models.Comment, len(comments))
	copy(a.Comments, comments)
	if a.CommentCount < len(comments) {
		a.CommentCount = len(comments)
	}
}

// Restore puts back an exact pre-mutation snapshot; the rollback half of
// the optimistic-update protocol. Ids the feed no longer holds are ignored.
func (c *Cache) Restore(a *models.Activity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.activities[a.ID]; !ok {
		return
	}
	c.activities[a.ID] = a.Clone()
}
