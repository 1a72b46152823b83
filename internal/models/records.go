package models

import (
	"time"

	"gorm.io/gorm"
)

// ActivityRecord is the backend's persisted row for an activity. Aggregate
// counts and the caller's liked bit are not stored; they are computed at
// query time from the likes and comment rows, which is what makes the
// backend ground truth for counts.
type ActivityRecord struct {
	ID         string `gorm:"primaryKey" json:"id"`
	OwnerID    string `gorm:"not null;index" json:"owner_id"`
	Title      string `json:"title"`
	Visibility string `gorm:"not null;default:private;index" json:"visibility"`
	// LikeCount is not persisted; computed at query time
	LikeCount int `gorm:"->" json:"like_count"`
	// CommentCount is not persisted; computed at query time
	CommentCount int `gorm:"->" json:"comment_count"`
	// Liked indicates whether the current requesting actor liked this activity (computed)
	Liked     bool           `gorm:"->" json:"liked"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   time.Time      `json:"ended_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ActivityRecord) TableName() string { return "activities" }

// LikeRecord represents one actor's like on an activity.
// The combination of ActorID and ActivityID must be unique.
type LikeRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ActorID    string    `gorm:"not null;uniqueIndex:idx_actor_activity" json:"actor_id"`
	ActivityID string    `gorm:"not null;uniqueIndex:idx_actor_activity" json:"activity_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func (LikeRecord) TableName() string { return "likes" }

// CommentRecord is the backend's persisted row for a comment, with author
// display metadata denormalized at creation time.
type CommentRecord struct {
	ID              string         `gorm:"primaryKey" json:"id"`
	ActivityID      string         `gorm:"not null;index" json:"activity_id"`
	AuthorID        string         `gorm:"not null;index" json:"author_id"`
	AuthorName      string         `json:"author_name,omitempty"`
	AuthorAvatarURL string         `json:"author_avatar_url,omitempty"`
	Text            string         `gorm:"not null" json:"text"`
	CreatedAt       time.Time      `json:"created_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (CommentRecord) TableName() string { return "comments" }

// User is a backend account.
type User struct {
	ID          string         `gorm:"primaryKey" json:"id"`
	Email       string         `gorm:"uniqueIndex;not null" json:"email"`
	DisplayName string         `json:"display_name"`
	AvatarURL   string         `json:"avatar_url,omitempty"`
	Password    string         `gorm:"not null" json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
