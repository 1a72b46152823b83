package repository

import (
	"context"

	"stride/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.CommentRecord) error
	GetByID(ctx context.Context, id string) (*models.CommentRecord, error)
	ListByActivity(ctx context.Context, activityID string) ([]*models.CommentRecord, error)
	Delete(ctx context.Context, id string) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.CommentRecord) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*models.CommentRecord, error) {
	var comment models.CommentRecord
	if err := r.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByActivity returns comments oldest first, the display order.
func (r *commentRepository) ListByActivity(ctx context.Context, activityID string) ([]*models.CommentRecord, error) {
	var comments []*models.CommentRecord
	err := r.db.WithContext(ctx).
		Where("activity_id = ?", activityID).
		Order("created_at asc").
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.CommentRecord{}, "id = ?", id).Error
}
