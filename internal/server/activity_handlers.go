package server

import (
	"strconv"
	"time"

	"stride/internal/middleware"
	"stride/internal/models"
	"stride/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListFeed returns public activities newest first, annotated with the
// requesting actor's own liked status when authenticated. The like roster is
// never returned; each caller only learns their own bit.
func (s *Server) ListFeed(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	activities, err := s.activityService.ListPublic(c.UserContext(), limit, middleware.ActorID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"activities": activities})
}

// CreateActivity records a new activity for the authenticated actor.
func (s *Server) CreateActivity(c *fiber.Ctx) error {
	actorID := middleware.ActorID(c)

	var req struct {
		Title      string    `json:"title"`
		Visibility string    `json:"visibility"`
		StartedAt  time.Time `json:"started_at"`
		EndedAt    time.Time `json:"ended_at"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}

	created, err := s.activityService.CreateActivity(c.UserContext(), service.CreateActivityInput{
		OwnerID:    actorID,
		Title:      req.Title,
		Visibility: req.Visibility,
		StartedAt:  req.StartedAt,
		EndedAt:    req.EndedAt,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// DeleteActivity removes an activity owned by the authenticated actor.
func (s *Server) DeleteActivity(c *fiber.Ctx) error {
	err := s.activityService.DeleteActivity(c.UserContext(), service.DeleteActivityInput{
		ActorID:    middleware.ActorID(c),
		ActivityID: c.Params("id"),
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleLike flips the authenticated actor's like and returns the resulting
// state with authoritative counts.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	activity, err := s.activityService.ToggleLike(c.UserContext(), middleware.ActorID(c), c.Params("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"liked":      activity.Liked,
		"like_count": activity.LikeCount,
	})
}
