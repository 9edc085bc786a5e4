package server

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"

	"reviewhub/internal/auth"
)

// UsersController serves the admin user directory plus the caller's
// own /users/me profile.
type UsersController struct {
	repo   auth.RepositoryManager
	logger auth.Logger
}

func NewUsersController(repo auth.RepositoryManager, logger auth.Logger) *UsersController {
	return &UsersController{repo: repo, logger: logger}
}

// UserView is the wire projection of a user record.
type UserView struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
	Role      string `json:"role"`
}

func NewUserView(u *auth.User) UserView {
	return UserView{
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Bio:       u.Bio,
		Role:      string(u.Role),
	}
}

type UserCreatePayload struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
	Role      string `json:"role"`
}

func (p UserCreatePayload) Validate() error {
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
		validation.Field(&p.FirstName, validation.Length(0, 150)),
		validation.Field(&p.LastName, validation.Length(0, 150)),
		validation.Field(&p.Role, validation.In(rolesAsAny()...)),
	)
}

type UserUpdatePayload struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Bio       *string `json:"bio"`
	Role      *string `json:"role"`
}

func (p UserUpdatePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Length(3, 254), is.Email),
		validation.Field(&p.FirstName, validation.Length(0, 150)),
		validation.Field(&p.LastName, validation.Length(0, 150)),
		validation.Field(&p.Role, validation.By(validRolePtr)),
	)
}

func validRolePtr(value any) error {
	var role string
	switch v := value.(type) {
	case string:
		role = v
	case *string:
		if v == nil {
			return nil
		}
		role = *v
	default:
		return nil
	}

	if !auth.IsValidRole(role) {
		return errors.New("must be a valid role")
	}
	return nil
}

func rolesAsAny() []any {
	roles := auth.GetAllRoles()
	out := make([]any, 0, len(roles)+1)
	out = append(out, "")
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}

func (u *UsersController) UsersList(c *fiber.Ctx) error {
	page := ParsePagination(c)
	search := c.Query("search")

	records, count, err := u.repo.Users().Search(c.UserContext(), search, page.Limit(), page.Offset())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not list users")
	}

	views := make([]UserView, 0, len(records))
	for _, record := range records {
		views = append(views, NewUserView(record))
	}

	return SendList(c, count, views)
}

func (u *UsersController) UserCreate(c *fiber.Ctx) error {
	var payload UserCreatePayload
	if err := c.BodyParser(&payload); err != nil {
		return badRequest("invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return SendValidationError(c, err)
	}

	role := auth.RoleUser
	if parsed, ok := auth.ParseRole(payload.Role); ok {
		role = parsed
	}

	id, err := hashid.NewUUID(payload.Email)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not derive user id")
	}

	user := &auth.User{
		ID:        id,
		Username:  payload.Username,
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Bio:       payload.Bio,
		Role:      role,
	}

	err = u.repo.RunInTx(c.UserContext(), nil, func(ctx context.Context, tx bun.Tx) error {
		if existing, lerr := u.repo.Users().GetByUsernameTx(ctx, tx, payload.Username); lerr == nil && existing != nil {
			return auth.ErrSignupConflict
		}
		if existing, lerr := u.repo.Users().GetByEmailTx(ctx, tx, payload.Email); lerr == nil && existing != nil {
			return auth.ErrSignupConflict
		}

		created, rerr := u.repo.Users().RegisterTx(ctx, tx, user)
		if rerr != nil {
			return goerrors.Wrap(rerr, goerrors.CategoryInternal, "could not create user")
		}

		user = created
		return nil
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(NewUserView(user))
}

func (u *UsersController) UserShow(c *fiber.Ctx) error {
	username := c.Params("username")

	caller := CallerFromCtx(c)
	if caller.Role != auth.RoleAdmin && caller.Username != username {
		return auth.ErrForbidden
	}

	user, err := u.repo.Users().GetByUsername(c.UserContext(), username)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return auth.ErrIdentityNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not load user")
	}

	return c.Status(fiber.StatusOK).JSON(NewUserView(user))
}

func (u *UsersController) UserUpdate(c *fiber.Ctx) error {
	username := c.Params("username")

	var payload UserUpdatePayload
	if err := c.BodyParser(&payload); err != nil {
		return badRequest("invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return SendValidationError(c, err)
	}

	var updated *auth.User

	err := u.repo.RunInTx(c.UserContext(), nil, func(ctx context.Context, tx bun.Tx) error {
		user, lerr := u.repo.Users().GetByUsernameTx(ctx, tx, username)
		if lerr != nil {
			if repository.IsRecordNotFound(lerr) {
				return auth.ErrIdentityNotFound
			}
			return goerrors.Wrap(lerr, goerrors.CategoryInternal, "could not load user")
		}

		if payload.Email != nil {
			user.Email = *payload.Email
		}
		if payload.FirstName != nil {
			user.FirstName = *payload.FirstName
		}
		if payload.LastName != nil {
			user.LastName = *payload.LastName
		}
		if payload.Bio != nil {
			user.Bio = *payload.Bio
		}
		if payload.Role != nil {
			user.Role = auth.UserRole(*payload.Role)
		}

		updated, lerr = u.repo.Users().UpdateTx(ctx, tx, user, repository.UpdateByID(user.ID.String()))
		if lerr != nil {
			return goerrors.Wrap(lerr, goerrors.CategoryConflict, "could not update user")
		}

		return nil
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(NewUserView(updated))
}

func (u *UsersController) UserDelete(c *fiber.Ctx) error {
	username := c.Params("username")

	user, err := u.repo.Users().GetByUsername(c.UserContext(), username)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return auth.ErrIdentityNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not load user")
	}

	if err := u.repo.Users().SoftDelete(c.UserContext(), user); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not delete user")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (u *UsersController) MeShow(c *fiber.Ctx) error {
	caller := CallerFromCtx(c)

	user, err := u.repo.Users().GetByUsername(c.UserContext(), caller.Username)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return auth.ErrIdentityNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not load profile")
	}

	return c.Status(fiber.StatusOK).JSON(NewUserView(user))
}

func (u *UsersController) MeUpdate(c *fiber.Ctx) error {
	caller := CallerFromCtx(c)

	var payload UserUpdatePayload
	if err := c.BodyParser(&payload); err != nil {
		return badRequest("invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return SendValidationError(c, err)
	}

	var updated *auth.User

	msg := auth.UpdateSelfMessage{
		Username:  caller.Username,
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Bio:       payload.Bio,
		Role:      payload.Role,
		OnResponse: func(resp *auth.User) {
			updated = resp
		},
	}

	handler := &auth.UpdateSelfHandler{Repo: u.repo, Logger: u.logger}
	if err := handler.Execute(c.UserContext(), msg); err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(NewUserView(updated))
}
