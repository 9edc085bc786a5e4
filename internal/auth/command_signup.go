package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// SignupMessage carries a signup attempt: a username/email pair that is
// either new or a repeat of an existing, consistent pair.
type SignupMessage struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	OnResponse func(resp *SignupResponse)
}

func (e SignupMessage) Type() string { return "auth.signup" }

// SignupResponse echoes the persisted pair. The confirmation code itself is
// only ever sent out-of-band.
type SignupResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// SignupHandler issues a fresh confirmation code for the user: generates a
// random one-time secret, stores its bcrypt hash, and dispatches the
// plaintext to the user's email. Repeat signup regenerates and overwrites the
// hash, so a lost code is recovered by signing up again.
type SignupHandler struct {
	Repo       RepositoryManager
	Mailer     Mailer
	Logger     Logger
	BcryptCost int
}

func (h *SignupHandler) Execute(ctx context.Context, event SignupMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during signup",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignupHandler) execute(ctx context.Context, event SignupMessage) error {
	logger := h.Logger
	if logger == nil {
		logger = defLogger{}
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	code := NewConfirmationCode()
	hash, err := HashSecret(code, h.BcryptCost)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash confirmation code")
	}

	user := &User{}

	err = h.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := h.Repo.Users().GetByUsernameTx(ctx, tx, event.Username)
		if err == nil {
			if existing.Email != event.Email {
				return ErrSignupConflict
			}
			user = existing
			return h.Repo.Users().SetConfirmationHashTx(ctx, tx, user.ID, hash)
		}

		if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up user for signup")
		}

		// The email must not already belong to a different username.
		if _, err := h.Repo.Users().GetByEmailTx(ctx, tx, event.Email); err == nil {
			return ErrSignupConflict
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up email for signup")
		}

		user.Username = event.Username
		user.Email = event.Email
		user.Role = RoleUser
		user.ConfirmationHash = hash
		if id, err := hashid.NewUUID(event.Email); err == nil {
			user.ID = id
		}

		if user, err = h.Repo.Users().RegisterTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		return h.Repo.Users().SetConfirmationHashTx(ctx, tx, user.ID, hash)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "signup transaction failed")
	}

	// Fire-and-forget: an issued-but-undelivered code is recoverable, the
	// user simply signs up again.
	dispatchCode(h.Mailer, logger, user.Email, code)

	if event.OnResponse != nil {
		event.OnResponse(&SignupResponse{
			Username: user.Username,
			Email:    user.Email,
		})
	}

	return nil
}
