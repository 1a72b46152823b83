// Package service contains the backend's business logic over the repositories.
package service

import (
	"context"
	"strings"
	"time"

	"stride/internal/models"
	"stride/internal/repository"

	"github.com/google/uuid"
)

type ActivityService struct {
	activityRepo repository.ActivityRepository
}

type CreateActivityInput struct {
	OwnerID    string
	Title      string
	Visibility string
	StartedAt  time.Time
	EndedAt    time.Time
}

type DeleteActivityInput struct {
	ActorID    string
	ActivityID string
}

func NewActivityService(activityRepo repository.ActivityRepository) *ActivityService {
	return &ActivityService{activityRepo: activityRepo}
}

func (s *ActivityService) CreateActivity(ctx context.Context, in CreateActivityInput) (*models.ActivityRecord, error) {
	const maxTitleLen = 300

	if strings.TrimSpace(in.Title) == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(in.Title) > maxTitleLen {
		return nil, models.NewValidationError("Title too long (max 300 characters)")
	}

	visibility := in.Visibility
	if visibility == "" {
		visibility = string(models.VisibilityPrivate)
	}
	switch models.Visibility(visibility) {
	case models.VisibilityPublic, models.VisibilityFriends, models.VisibilityPrivate:
		// valid
	default:
		return nil, models.NewValidationError("Invalid visibility")
	}

	activity := &models.ActivityRecord{
		ID:         uuid.NewString(),
		OwnerID:    in.OwnerID,
		Title:      in.Title,
		Visibility: visibility,
		StartedAt:  in.StartedAt,
		EndedAt:    in.EndedAt,
	}
	if err := s.activityRepo.Create(ctx, activity); err != nil {
		return nil, err
	}
	return s.activityRepo.GetByID(ctx, activity.ID, in.OwnerID)
}

func (s *ActivityService) ListPublic(ctx context.Context, limit int, currentActorID string) ([]*models.ActivityRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	return s.activityRepo.ListPublic(ctx, limit, currentActorID)
}

func (s *ActivityService) GetActivity(ctx context.Context, id, currentActorID string) (*models.ActivityRecord, error) {
	return s.activityRepo.GetByID(ctx, id, currentActorID)
}

func (s *ActivityService) DeleteActivity(ctx context.Context, in DeleteActivityInput) error {
	activity, err := s.activityRepo.GetByID(ctx, in.ActivityID, in.ActorID)
	if err != nil {
		return err
	}
	if activity.OwnerID != in.ActorID {
		return models.NewUnauthorizedError("You can only delete your own activities")
	}
	return s.activityRepo.Delete(ctx, in.ActivityID)
}

// ToggleLike flips the actor's like and returns the activity with fresh
// counts and the actor's resulting liked state.
func (s *ActivityService) ToggleLike(ctx context.Context, actorID, activityID string) (*models.ActivityRecord, error) {
	if _, err := s.activityRepo.GetByID(ctx, activityID, ""); err != nil {
		return nil, err
	}

	isLiked, err := s.activityRepo.IsLiked(ctx, actorID, activityID)
	if err != nil {
		return nil, err
	}

	if isLiked {
		if err := s.activityRepo.Unlike(ctx, actorID, activityID); err != nil {
			return nil, err
		}
	} else {
		if err := s.activityRepo.Like(ctx, actorID, activityID); err != nil {
			return nil, err
		}
	}

	return s.activityRepo.GetByID(ctx, activityID, actorID)
}
