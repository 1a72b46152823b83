package server

import (
	"stride/internal/middleware"
	"stride/internal/models"
	"stride/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListComments returns an activity's full comment list, oldest first.
func (s *Server) ListComments(c *fiber.Ctx) error {
	comments, err := s.commentService.ListComments(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"comments": comments})
}

// CreateComment creates a comment on an activity (protected).
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req struct {
		Text            string `json:"text"`
		AuthorName      string `json:"author_name"`
		AuthorAvatarURL string `json:"author_avatar_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}

	created, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		ActorID:         middleware.ActorID(c),
		ActivityID:      c.Params("id"),
		Text:            req.Text,
		AuthorName:      req.AuthorName,
		AuthorAvatarURL: req.AuthorAvatarURL,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// DeleteComment removes a comment authored by the authenticated actor.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	err := s.commentService.DeleteComment(c.UserContext(), service.DeleteCommentInput{
		ActorID:   middleware.ActorID(c),
		CommentID: c.Params("id"),
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
