package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// UpdateSelfMessage carries a partial self-profile update. Nil pointers mean
// "leave as is". Role is accepted on the wire but deliberately ignored: a
// self-update can never change the caller's own role.
type UpdateSelfMessage struct {
	Username   string  `json:"-"`
	Email      *string `json:"email"`
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Bio        *string `json:"bio"`
	Role       *string `json:"role"`
	OnResponse func(resp *User)
}

func (e UpdateSelfMessage) Type() string { return "user.update_self" }

// UpdateSelfHandler merges the allowed fields into the caller's own record.
type UpdateSelfHandler struct {
	Repo   RepositoryManager
	Logger Logger
}

func (h *UpdateSelfHandler) Execute(ctx context.Context, event UpdateSelfMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during profile update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateSelfHandler) execute(ctx context.Context, event UpdateSelfMessage) error {
	logger := h.Logger
	if logger == nil {
		logger = defLogger{}
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Role != nil {
		logger.Debug("dropping role field from self-update", "username", event.Username)
	}

	var updated *User

	err := h.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.Repo.Users().GetByUsernameTx(ctx, tx, event.Username)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrIdentityNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up user for profile update")
		}

		if event.Email != nil {
			user.Email = *event.Email
		}
		if event.FirstName != nil {
			user.FirstName = *event.FirstName
		}
		if event.LastName != nil {
			user.LastName = *event.LastName
		}
		if event.Bio != nil {
			user.Bio = *event.Bio
		}

		updated, err = h.Repo.Users().UpdateTx(ctx, tx, user, repository.UpdateByID(user.ID.String()))
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not update profile")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "profile update transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(updated)
	}

	return nil
}
