// Package server contains HTTP handlers for the backend API endpoints.
package server

import (
	"errors"

	"stride/internal/config"
	"stride/internal/middleware"
	"stride/internal/models"
	"stride/internal/repository"
	"stride/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config          *config.Config
	db              *gorm.DB
	userRepo        repository.UserRepository
	activityRepo    repository.ActivityRepository
	commentRepo     repository.CommentRepository
	activityService *service.ActivityService
	commentService  *service.CommentService
}

// NewServerWithDeps creates a Server using an already-connected database;
// the composition root (or a test) establishes it.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB) *Server {
	userRepo := repository.NewUserRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	s := &Server{
		config:       cfg,
		db:           db,
		userRepo:     userRepo,
		activityRepo: activityRepo,
		commentRepo:  commentRepo,
	}
	s.activityService = service.NewActivityService(activityRepo)
	s.commentService = service.NewCommentService(commentRepo, activityRepo)

	middleware.InitMiddleware(cfg)
	return s
}

// SetupMiddleware registers the middleware stack.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: s.config.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	prom := fiberprometheus.New("stride-api")
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)
}

// SetupRoutes registers all API routes.
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", s.Register)
	auth.Post("/login", s.Login)

	api.Get("/feed", middleware.OptionalAuth, s.ListFeed)

	activities := api.Group("/activities")
	activities.Post("/", middleware.AuthRequired, s.CreateActivity)
	activities.Delete("/:id", middleware.AuthRequired, s.DeleteActivity)
	activities.Post("/:id/like", middleware.AuthRequired, s.ToggleLike)
	activities.Get("/:id/comments", s.ListComments)
	activities.Post("/:id/comments", middleware.AuthRequired, s.CreateComment)

	api.Delete("/comments/:id", middleware.AuthRequired, s.DeleteComment)
}

// statusForError maps AppError codes onto HTTP statuses.
func statusForError(err error) int {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.StatusNotFound
		}
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeUnauthorized:
		return fiber.StatusForbidden
	case models.CodeNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

func respondServiceError(c *fiber.Ctx, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = models.NewNotFoundError("resource", c.Params("id"))
	}
	return models.RespondWithError(c, statusForError(err), err)
}
