package auth_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"reviewhub/internal/auth"
	"reviewhub/internal/database"
)

func setupDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))

	db, err := database.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(context.Background(), db))

	return db
}

// captureMailer records delivered codes so tests can complete the flow.
type captureMailer struct {
	codes chan string
}

func newCaptureMailer() *captureMailer {
	return &captureMailer{codes: make(chan string, 4)}
}

func (m *captureMailer) SendConfirmationCode(_ context.Context, _, code string) error {
	m.codes <- code
	return nil
}

func (m *captureMailer) waitForCode(t *testing.T) string {
	t.Helper()
	select {
	case code := <-m.codes:
		return code
	case <-time.After(2 * time.Second):
		t.Fatal("no confirmation code was dispatched")
		return ""
	}
}

func newTokenService() auth.TokenService {
	return auth.NewTokenService(
		[]byte("test-signing-key"), 1, "reviewhub",
		jwt.ClaimStrings{"reviewhub"}, nil,
	)
}

func signup(t *testing.T, repo auth.RepositoryManager, mailer auth.Mailer, username, email string) *auth.SignupResponse {
	t.Helper()

	var resp *auth.SignupResponse
	handler := &auth.SignupHandler{Repo: repo, Mailer: mailer, BcryptCost: 4}
	err := handler.Execute(context.Background(), auth.SignupMessage{
		Username: username,
		Email:    email,
		OnResponse: func(r *auth.SignupResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	return resp
}

func exchange(t *testing.T, repo auth.RepositoryManager, username, code string) (string, error) {
	t.Helper()

	var access string
	handler := &auth.ExchangeTokenHandler{Repo: repo, Tokens: newTokenService()}
	err := handler.Execute(context.Background(), auth.ExchangeTokenMessage{
		Username: username,
		Code:     code,
		OnResponse: func(r *auth.ExchangeTokenResponse) {
			access = r.Access
		},
	})
	return access, err
}

func TestSignupIssuesWorkingCode(t *testing.T) {
	db := setupDB(t)
	repo := auth.NewRepositoryManager(db)
	mailer := newCaptureMailer()

	resp := signup(t, repo, mailer, "reader", "reader@example.com")
	assert.Equal(t, "reader", resp.Username)
	assert.Equal(t, "reader@example.com", resp.Email)

	code := mailer.waitForCode(t)

	access, err := exchange(t, repo, "reader", code)
	require.NoError(t, err)
	require.NotEmpty(t, access)

	claims, err := newTokenService().Validate(access)
	require.NoError(t, err)
	assert.Equal(t, "reader", claims.Username())
	assert.Equal(t, auth.RoleUser, claims.Role())
}

func TestRepeatSignupReplacesCode(t *testing.T) {
	db := setupDB(t)
	repo := auth.NewRepositoryManager(db)
	mailer := newCaptureMailer()

	signup(t, repo, mailer, "reader", "reader@example.com")
	oldCode := mailer.waitForCode(t)

	signup(t, repo, mailer, "reader", "reader@example.com")
	newCode := mailer.waitForCode(t)
	require.NotEqual(t, oldCode, newCode)

	_, err := exchange(t, repo, "reader", oldCode)
	assert.ErrorIs(t, err, auth.ErrInvalidConfirmationCode)

	_, err = exchange(t, repo, "reader", newCode)
	assert.NoError(t, err)
}

func TestSignupConflicts(t *testing.T) {
	db := setupDB(t)
	repo := auth.NewRepositoryManager(db)
	mailer := newCaptureMailer()

	signup(t, repo, mailer, "reader", "reader@example.com")
	mailer.waitForCode(t)

	handler := &auth.SignupHandler{Repo: repo, Mailer: mailer, BcryptCost: 4}

	t.Run("same username different email", func(t *testing.T) {
		err := handler.Execute(context.Background(), auth.SignupMessage{
			Username: "reader",
			Email:    "other@example.com",
		})
		assert.ErrorIs(t, err, auth.ErrSignupConflict)
	})

	t.Run("same email different username", func(t *testing.T) {
		err := handler.Execute(context.Background(), auth.SignupMessage{
			Username: "other",
			Email:    "reader@example.com",
		})
		assert.ErrorIs(t, err, auth.ErrSignupConflict)
	})
}

func TestExchangeFailures(t *testing.T) {
	db := setupDB(t)
	repo := auth.NewRepositoryManager(db)
	mailer := newCaptureMailer()

	signup(t, repo, mailer, "reader", "reader@example.com")
	mailer.waitForCode(t)

	t.Run("unknown username", func(t *testing.T) {
		_, err := exchange(t, repo, "ghost", "whatever")
		assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
	})

	t.Run("wrong code", func(t *testing.T) {
		_, err := exchange(t, repo, "reader", "not-the-code")
		assert.ErrorIs(t, err, auth.ErrInvalidConfirmationCode)

		var richErr *goerrors.Error
		require.True(t, goerrors.As(err, &richErr))
		assert.Equal(t, "code is not correct", richErr.Message)
	})

	t.Run("user who never signed up a code", func(t *testing.T) {
		_, err := repo.Users().Register(context.Background(), &auth.User{
			Username: "nocode",
			Email:    "nocode@example.com",
			Role:     auth.RoleUser,
		})
		require.NoError(t, err)

		_, err = exchange(t, repo, "nocode", "anything")
		assert.ErrorIs(t, err, auth.ErrInvalidConfirmationCode)
	})
}

func TestUpdateSelf(t *testing.T) {
	db := setupDB(t)
	repo := auth.NewRepositoryManager(db)
	mailer := newCaptureMailer()

	signup(t, repo, mailer, "reader", "reader@example.com")
	mailer.waitForCode(t)

	strptr := func(s string) *string { return &s }

	t.Run("updates allowed fields", func(t *testing.T) {
		var updated *auth.User
		handler := &auth.UpdateSelfHandler{Repo: repo}
		err := handler.Execute(context.Background(), auth.UpdateSelfMessage{
			Username:  "reader",
			FirstName: strptr("Ann"),
			Bio:       strptr("I read a lot"),
			OnResponse: func(u *auth.User) {
				updated = u
			},
		})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, "Ann", updated.FirstName)
		assert.Equal(t, "I read a lot", updated.Bio)
		assert.Equal(t, "reader@example.com", updated.Email)
	})

	t.Run("role field is dropped", func(t *testing.T) {
		var updated *auth.User
		handler := &auth.UpdateSelfHandler{Repo: repo}
		err := handler.Execute(context.Background(), auth.UpdateSelfMessage{
			Username: "reader",
			Role:     strptr(auth.RoleAdmin),
			OnResponse: func(u *auth.User) {
				updated = u
			},
		})
		require.NoError(t, err)
		assert.Equal(t, auth.RoleUser, updated.Role)
	})

	t.Run("unknown username", func(t *testing.T) {
		handler := &auth.UpdateSelfHandler{Repo: repo}
		err := handler.Execute(context.Background(), auth.UpdateSelfMessage{
			Username: "ghost",
			Bio:      strptr("boo"),
		})
		assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
	})
}

func TestUsersSearch(t *testing.T) {
	db := setupDB(t)
	repo := auth.NewRepositoryManager(db)
	ctx := context.Background()

	for _, username := range []string{"ana", "anatole", "bruno"} {
		_, err := repo.Users().Register(ctx, &auth.User{
			Username: username,
			Email:    username + "@example.com",
			Role:     auth.RoleUser,
		})
		require.NoError(t, err)
	}

	t.Run("empty search returns everyone ordered", func(t *testing.T) {
		users, count, err := repo.Users().Search(ctx, "", 10, 0)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
		require.Len(t, users, 3)
		assert.Equal(t, "ana", users[0].Username)
		assert.Equal(t, "bruno", users[2].Username)
	})

	t.Run("substring filter", func(t *testing.T) {
		users, count, err := repo.Users().Search(ctx, "ana", 10, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		require.Len(t, users, 2)
		assert.Equal(t, "ana", users[0].Username)
		assert.Equal(t, "anatole", users[1].Username)
	})

	t.Run("pagination keeps total count", func(t *testing.T) {
		users, count, err := repo.Users().Search(ctx, "", 1, 1)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
		require.Len(t, users, 1)
		assert.Equal(t, "anatole", users[0].Username)
	})
}
