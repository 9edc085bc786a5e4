package server

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"

	"reviewhub/internal/auth"
)

var usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)

// AuthController serves the two-step signup flow: request a
// confirmation code, then trade code for an access token.
type AuthController struct {
	repo   auth.RepositoryManager
	tokens auth.TokenService
	mailer auth.Mailer
	logger auth.Logger
	cfg    auth.Config
}

func NewAuthController(repo auth.RepositoryManager, tokens auth.TokenService, mailer auth.Mailer, logger auth.Logger, cfg auth.Config) *AuthController {
	return &AuthController{
		repo:   repo,
		tokens: tokens,
		mailer: mailer,
		logger: logger,
		cfg:    cfg,
	}
}

type SignupPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (p SignupPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username,
			validation.Required,
			validation.Length(1, 150),
			validation.Match(usernameRe),
			validation.NotIn("me"),
		),
		validation.Field(&p.Email,
			validation.Required,
			validation.Length(3, 254),
			is.Email,
		),
	)
}

func (a *AuthController) SignupPost(c *fiber.Ctx) error {
	var payload SignupPayload
	if err := c.BodyParser(&payload); err != nil {
		return badRequest("invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return SendValidationError(c, err)
	}

	var response *auth.SignupResponse

	msg := auth.SignupMessage{
		Username: payload.Username,
		Email:    payload.Email,
		OnResponse: func(r *auth.SignupResponse) {
			response = r
		},
	}

	handler := &auth.SignupHandler{
		Repo:       a.repo,
		Mailer:     a.mailer,
		Logger:     a.logger,
		BcryptCost: a.cfg.GetBcryptCost(),
	}

	if err := handler.Execute(c.UserContext(), msg); err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

type TokenPayload struct {
	Username         string `json:"username"`
	ConfirmationCode string `json:"confirmation_code"`
}

func (p TokenPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username,
			validation.Required,
			validation.Length(1, 150),
			validation.Match(usernameRe),
		),
		validation.Field(&p.ConfirmationCode, validation.Required),
	)
}

func (a *AuthController) TokenPost(c *fiber.Ctx) error {
	var payload TokenPayload
	if err := c.BodyParser(&payload); err != nil {
		return badRequest("invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return SendValidationError(c, err)
	}

	var response *auth.ExchangeTokenResponse

	msg := auth.ExchangeTokenMessage{
		Username: payload.Username,
		Code:     payload.ConfirmationCode,
		OnResponse: func(r *auth.ExchangeTokenResponse) {
			response = r
		},
	}

	handler := &auth.ExchangeTokenHandler{
		Repo:   a.repo,
		Tokens: a.tokens,
		Logger: a.logger,
	}

	if err := handler.Execute(c.UserContext(), msg); err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(response)
}
