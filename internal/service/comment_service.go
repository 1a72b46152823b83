package service

import (
	"context"
	"strings"

	"stride/internal/models"
	"stride/internal/repository"

	"github.com/google/uuid"
)

type CommentService struct {
	commentRepo  repository.CommentRepository
	activityRepo repository.ActivityRepository
}

type CreateCommentInput struct {
	ActorID         string
	ActivityID      string
	Text            string
	AuthorName      string
	AuthorAvatarURL string
}

type DeleteCommentInput struct {
	ActorID   string
	CommentID string
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	activityRepo repository.ActivityRepository,
) *CommentService {
	return &CommentService{
		commentRepo:  commentRepo,
		activityRepo: activityRepo,
	}
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.CommentRecord, error) {
	if _, err := s.activityRepo.GetByID(ctx, in.ActivityID, ""); err != nil {
		return nil, err
	}
	const maxCommentLen = 2000

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, models.NewValidationError("Text is required")
	}
	if len(text) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 2000 characters)")
	}

	comment := &models.CommentRecord{
		ID:              uuid.NewString(),
		ActivityID:      in.ActivityID,
		AuthorID:        in.ActorID,
		AuthorName:      in.AuthorName,
		AuthorAvatarURL: in.AuthorAvatarURL,
		Text:            text,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	return s.commentRepo.GetByID(ctx, comment.ID)
}

func (s *CommentService) ListComments(ctx context.Context, activityID string) ([]*models.CommentRecord, error) {
	if _, err := s.activityRepo.GetByID(ctx, activityID, ""); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByActivity(ctx, activityID)
}

func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) error {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != in.ActorID {
		return models.NewUnauthorizedError("You can only delete your own comments")
	}
	return s.commentRepo.Delete(ctx, in.CommentID)
}
