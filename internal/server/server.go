package server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"reviewhub/internal/auth"
	"reviewhub/internal/catalog"
)

// ErrJWTMissingOrMalformed is returned when no bearer token could be extracted.
var ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")

// Server wires the HTTP surface: one optional-auth middleware on the API
// group, guard middleware per route, controllers per resource family.
type Server struct {
	app    *fiber.App
	cfg    auth.Config
	logger auth.Logger
	tokens auth.TokenService
	repo   auth.RepositoryManager
	store  catalog.Store
	mailer auth.Mailer
}

type Options struct {
	Config auth.Config
	Logger auth.Logger
	Tokens auth.TokenService
	Repo   auth.RepositoryManager
	Store  catalog.Store
	Mailer auth.Mailer

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func New(opts Options) *Server {
	s := &Server{
		cfg:    opts.Config,
		logger: opts.Logger,
		tokens: opts.Tokens,
		repo:   opts.Repo,
		store:  opts.Store,
		mailer: opts.Mailer,
	}

	if s.logger == nil {
		s.logger = nopLogger{}
	}

	s.app = fiber.New(fiber.Config{
		AppName:      "reviewhub",
		ErrorHandler: s.errorHandler,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.IdleTimeout,
	})

	s.registerRoutes()

	return s
}

// App exposes the underlying fiber app for serving and tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(address string) error {
	return s.app.Listen(address)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) registerRoutes() {
	authCtrl := NewAuthController(s.repo, s.tokens, s.mailer, s.logger, s.cfg)
	usersCtrl := NewUsersController(s.repo, s.logger)
	catalogCtrl := NewCatalogController(s.store, s.logger)
	reviewsCtrl := NewReviewsController(s.store, s.repo, s.logger)

	api := s.app.Group("/api/v1")

	// Anonymous reads are allowed platform-wide, so the credential is
	// optional here; each route's guard decides what the caller may do.
	api.Use(NewAuthMiddleware(s.tokens, true))

	api.Post("/auth/signup", authCtrl.SignupPost)
	api.Post("/auth/token", authCtrl.TokenPost)

	categories := api.Group("/categories")
	categories.Get("/", Guard(auth.ResourceCategory, auth.ActionRead), catalogCtrl.CategoriesList)
	categories.Post("/", Guard(auth.ResourceCategory, auth.ActionCreate), catalogCtrl.CategoryCreate)
	categories.Delete("/:slug", Guard(auth.ResourceCategory, auth.ActionDelete), catalogCtrl.CategoryDelete)

	genres := api.Group("/genres")
	genres.Get("/", Guard(auth.ResourceGenre, auth.ActionRead), catalogCtrl.GenresList)
	genres.Post("/", Guard(auth.ResourceGenre, auth.ActionCreate), catalogCtrl.GenreCreate)
	genres.Delete("/:slug", Guard(auth.ResourceGenre, auth.ActionDelete), catalogCtrl.GenreDelete)

	titles := api.Group("/titles")
	titles.Get("/", Guard(auth.ResourceTitle, auth.ActionRead), catalogCtrl.TitlesList)
	titles.Post("/", Guard(auth.ResourceTitle, auth.ActionCreate), catalogCtrl.TitleCreate)
	titles.Get("/:id", Guard(auth.ResourceTitle, auth.ActionRead), catalogCtrl.TitleShow)
	titles.Patch("/:id", Guard(auth.ResourceTitle, auth.ActionUpdate), catalogCtrl.TitleUpdate)
	titles.Delete("/:id", Guard(auth.ResourceTitle, auth.ActionDelete), catalogCtrl.TitleDelete)

	reviews := api.Group("/titles/:title_id/reviews")
	reviews.Get("/", Guard(auth.ResourceReview, auth.ActionRead), reviewsCtrl.ReviewsList)
	reviews.Post("/", Guard(auth.ResourceReview, auth.ActionCreate), reviewsCtrl.ReviewCreate)
	reviews.Get("/:id", Guard(auth.ResourceReview, auth.ActionRead), reviewsCtrl.ReviewShow)
	reviews.Patch("/:id", GuardAuthenticated(), reviewsCtrl.ReviewUpdate)
	reviews.Delete("/:id", GuardAuthenticated(), reviewsCtrl.ReviewDelete)

	comments := api.Group("/reviews/:review_id/comments")
	comments.Get("/", Guard(auth.ResourceComment, auth.ActionRead), reviewsCtrl.CommentsList)
	comments.Post("/", Guard(auth.ResourceComment, auth.ActionCreate), reviewsCtrl.CommentCreate)
	comments.Get("/:id", Guard(auth.ResourceComment, auth.ActionRead), reviewsCtrl.CommentShow)
	comments.Patch("/:id", GuardAuthenticated(), reviewsCtrl.CommentUpdate)
	comments.Delete("/:id", GuardAuthenticated(), reviewsCtrl.CommentDelete)

	users := api.Group("/users")
	users.Get("/me", Guard(auth.ResourceProfile, auth.ActionRead), usersCtrl.MeShow)
	users.Patch("/me", Guard(auth.ResourceProfile, auth.ActionUpdate), usersCtrl.MeUpdate)
	users.Get("/", Guard(auth.ResourceUser, auth.ActionRead), usersCtrl.UsersList)
	users.Post("/", Guard(auth.ResourceUser, auth.ActionCreate), usersCtrl.UserCreate)
	users.Get("/:username", GuardAuthenticated(), usersCtrl.UserShow)
	users.Patch("/:username", Guard(auth.ResourceUser, auth.ActionUpdate), usersCtrl.UserUpdate)
	users.Delete("/:username", Guard(auth.ResourceUser, auth.ActionDelete), usersCtrl.UserDelete)
}

// errorHandler is the single error-to-HTTP mapping for the service.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrJWTMissingOrMalformed) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"detail": ErrJWTMissingOrMalformed.Error(),
		})
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		status := richErr.Code
		if status == 0 {
			status = statusFromCategory(richErr)
		}

		if status >= fiber.StatusInternalServerError {
			s.logger.Error("request failed",
				"error", richErr.Message,
				"text_code", richErr.TextCode,
				"path", c.OriginalURL(),
			)
			return c.Status(status).JSON(fiber.Map{
				"detail": "internal server error",
			})
		}

		return c.Status(status).JSON(fiber.Map{
			"detail": richErr.Message,
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"detail": fiberErr.Message,
		})
	}

	s.logger.Error("unhandled request error", "error", err, "path", c.OriginalURL())
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"detail": "internal server error",
	})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func statusFromCategory(richErr *goerrors.Error) int {
	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput, goerrors.CategoryConflict:
		return fiber.StatusBadRequest
	case goerrors.CategoryAuth:
		return fiber.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return fiber.StatusForbidden
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}
