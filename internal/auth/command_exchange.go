package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

// ExchangeTokenMessage carries a token exchange attempt. The submitted code
// exists only for the duration of this call and is never persisted.
type ExchangeTokenMessage struct {
	Username   string `json:"username"`
	Code       string `json:"confirmation_code"`
	OnResponse func(resp *ExchangeTokenResponse)
}

func (e ExchangeTokenMessage) Type() string { return "auth.exchange_token" }

type ExchangeTokenResponse struct {
	Access string `json:"access"`
}

// ExchangeTokenHandler verifies a submitted confirmation code against the
// stored hash and mints a signed credential on match. The stored hash is not
// mutated on success: the code keeps working until the next signup overwrites
// it, so a correct exchange is safe to retry.
type ExchangeTokenHandler struct {
	Repo   RepositoryManager
	Tokens TokenService
	Logger Logger
}

func (h *ExchangeTokenHandler) Execute(ctx context.Context, event ExchangeTokenMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during token exchange",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ExchangeTokenHandler) execute(ctx context.Context, event ExchangeTokenMessage) error {
	logger := h.Logger
	if logger == nil {
		logger = defLogger{}
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.Repo.Users().GetByUsername(ctx, event.Username)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrIdentityNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up user for token exchange")
	}

	if err := CompareSecretAndHash(event.Code, user.ConfirmationHash); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		logger.Error("token exchange hash comparison failed", "error", err)
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify confirmation code")
	}

	access, err := h.Tokens.Generate(NewIdentityFromUser(user))
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mint access token")
	}

	if event.OnResponse != nil {
		event.OnResponse(&ExchangeTokenResponse{Access: access})
	}

	return nil
}
