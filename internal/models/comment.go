package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Comment represents one remark on an activity, with author metadata
// denormalized at comment time.
type Comment struct {
	ID         string `json:"id"`
	ActivityID string `json:"activity_id"`
	AuthorID   string `json:"author_id"`
	// AuthorEmail survives only on records persisted before author ids were
	// denormalized; it exists for the legacy delete-authorization fallback.
	AuthorEmail     string    `json:"author_email,omitempty"`
	AuthorName      string    `json:"author_name,omitempty"`
	AuthorAvatarURL string    `json:"author_avatar_url,omitempty"`
	Text            string    `json:"text"`
	CreatedAt       time.Time `json:"created_at"`
}

// Identity is the acting actor's identity as known on-device: a stable
// account id, plus the contact email used only as a legacy match.
type Identity struct {
	AccountID string
	Email     string
}

// NewComment builds a comment with a client-generated id. Comments are
// append-only, so a random id is safe to mint before the backend confirms.
func NewComment(activityID string, author Identity, name, avatarURL, text string) Comment {
	return Comment{
		ID:              uuid.NewString(),
		ActivityID:      activityID,
		AuthorID:        author.AccountID,
		AuthorEmail:     author.Email,
		AuthorName:      name,
		AuthorAvatarURL: avatarURL,
		Text:            strings.TrimSpace(text),
		CreatedAt:       time.Now().UTC(),
	}
}

// AuthoredBy reports whether the given identity wrote this comment. The
// stable account id is checked first; the email comparison only applies to
// legacy records that never captured an author id.
func (c *Comment) AuthoredBy(id Identity) bool {
	if c.AuthorID != "" && id.AccountID != "" {
		return c.AuthorID == id.AccountID
	}
	if c.AuthorEmail != "" && id.Email != "" {
		return strings.EqualFold(c.AuthorEmail, id.Email)
	}
	return false
}
