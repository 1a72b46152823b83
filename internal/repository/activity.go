// Package repository provides data access layer implementations for the backend.
package repository

import (
	"context"

	"stride/internal/models"

	"gorm.io/gorm"
)

// ActivityRepository defines the interface for activity data operations
type ActivityRepository interface {
	Create(ctx context.Context, activity *models.ActivityRecord) error
	GetByID(ctx context.Context, id string, currentActorID string) (*models.ActivityRecord, error)
	ListPublic(ctx context.Context, limit int, currentActorID string) ([]*models.ActivityRecord, error)
	Delete(ctx context.Context, id string) error
	IsLiked(ctx context.Context, actorID, activityID string) (bool, error)
	Like(ctx context.Context, actorID, activityID string) error
	Unlike(ctx context.Context, actorID, activityID string) error
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, activity *models.ActivityRecord) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

func (r *activityRepository) GetByID(ctx context.Context, id string, currentActorID string) (*models.ActivityRecord, error) {
	var activity models.ActivityRecord
	err := r.applyActivityDetails(r.db.WithContext(ctx), currentActorID).
		Where("activities.id = ?", id).
		First(&activity).Error
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

func (r *activityRepository) ListPublic(ctx context.Context, limit int, currentActorID string) ([]*models.ActivityRecord, error) {
	var activities []*models.ActivityRecord
	err := r.applyActivityDetails(r.db.WithContext(ctx), currentActorID).
		Where("activities.visibility = ?", string(models.VisibilityPublic)).
		Order("activities.created_at DESC").
		Limit(limit).
		Find(&activities).Error
	return activities, err
}

// applyActivityDetails adds subqueries to fetch counts and liked status in a single query.
func (r *activityRepository) applyActivityDetails(db *gorm.DB, currentActorID string) *gorm.DB {
	selectQuery := "activities.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.activity_id = activities.id AND comments.deleted_at IS NULL) as comment_count, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.activity_id = activities.id) as like_count"

	if currentActorID != "" {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM likes WHERE likes.activity_id = activities.id AND likes.actor_id = ?) as liked", currentActorID)
	}

	return db.Select(selectQuery + ", false as liked")
}

func (r *activityRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.ActivityRecord{}, "id = ?", id).Error
}

func (r *activityRepository) IsLiked(ctx context.Context, actorID, activityID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.LikeRecord{}).
		Where("actor_id = ? AND activity_id = ?", actorID, activityID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *activityRepository) Like(ctx context.Context, actorID, activityID string) error {
	// INSERT ... ON CONFLICT DO NOTHING is atomic under concurrent toggles
	// from the same actor; the unique index serializes them.
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO likes (actor_id, activity_id, created_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (actor_id, activity_id) DO NOTHING`,
		actorID, activityID,
	).Error
}

func (r *activityRepository) Unlike(ctx context.Context, actorID, activityID string) error {
	return r.db.WithContext(ctx).
		Where("actor_id = ? AND activity_id = ?", actorID, activityID).
		Delete(&models.LikeRecord{}).Error
}
