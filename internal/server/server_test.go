package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"reviewhub/internal/auth"
	"reviewhub/internal/catalog"
	"reviewhub/internal/config"
	"reviewhub/internal/database"
	"reviewhub/internal/server"
)

type testEnv struct {
	app    *fiber.App
	db     *bun.DB
	repo   auth.RepositoryManager
	store  catalog.Store
	mailer *captureMailer
}

type captureMailer struct {
	codes chan string
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

func setup(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))

	db, err := database.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(context.Background(), db))

	cfg := config.Auth{
		SigningKey:      "test-signing-key",
		TokenExpiration: 1,
		Issuer:          "reviewhub",
		Audience:        []string{"reviewhub"},
		BcryptCost:      4,
	}

	repo := auth.NewRepositoryManager(db)
	store := catalog.NewStore(db)
	mailer := &captureMailer{codes: make(chan string, 4)}

	tokens := auth.NewTokenService(
		[]byte(cfg.SigningKey),
		cfg.TokenExpiration,
		cfg.Issuer,
		jwt.ClaimStrings(cfg.Audience),
		nil,
	)

	srv := server.New(server.Options{
		Config: cfg,
		Tokens: tokens,
		Repo:   repo,
		Store:  store,
		Mailer: mailer,
	})

	return &testEnv{
		app:    srv.App(),
		db:     db,
		repo:   repo,
		store:  store,
		mailer: mailer,
	}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := e.app.Test(req, 5000)
	require.NoError(t, err)
	return res
}

func decode(t *testing.T, res *http.Response, out any) {
	t.Helper()
	defer res.Body.Close()
	require.NoError(t, json.NewDecoder(res.Body).Decode(out))
}

// signupAndToken runs the full two-step flow and returns a working token.
func (e *testEnv) signupAndToken(t *testing.T, username string) string {
	t.Helper()

	res := e.request(t, http.MethodPost, "/api/v1/auth/signup", "", fiber.Map{
		"username": username,
		"email":    username + "@example.com",
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	code := e.mailer.waitForCode(t)

	res = e.request(t, http.MethodPost, "/api/v1/auth/token", "", fiber.Map{
		"username":          username,
		"confirmation_code": code,
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	var payload struct {
		Access string `json:"access"`
	}
	decode(t, res, &payload)
	require.NotEmpty(t, payload.Access)
	return payload.Access
}

// adminToken promotes a signed-up user to admin before minting the token,
// since role is baked into the credential at mint time.
func (e *testEnv) adminToken(t *testing.T, username string) string {
	t.Helper()

	res := e.request(t, http.MethodPost, "/api/v1/auth/signup", "", fiber.Map{
		"username": username,
		"email":    username + "@example.com",
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	code := e.mailer.waitForCode(t)

	_, err := e.db.NewUpdate().
		Model((*auth.User)(nil)).
		Set("user_role = ?", auth.RoleAdmin).
		Where("username = ?", username).
		Exec(context.Background())
	require.NoError(t, err)

	res = e.request(t, http.MethodPost, "/api/v1/auth/token", "", fiber.Map{
		"username":          username,
		"confirmation_code": code,
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	var payload struct {
		Access string `json:"access"`
	}
	decode(t, res, &payload)
	return payload.Access
}

func TestSignupFlow(t *testing.T) {
	env := setup(t)

	t.Run("happy path issues a working token", func(t *testing.T) {
		token := env.signupAndToken(t, "reader")

		res := env.request(t, http.MethodGet, "/api/v1/users/me", token, nil)
		require.Equal(t, http.StatusOK, res.StatusCode)

		var me map[string]any
		decode(t, res, &me)
		assert.Equal(t, "reader", me["username"])
		assert.Equal(t, "user", me["role"])
	})

	t.Run("wrong code is a 400 with the exact message", func(t *testing.T) {
		res := env.request(t, http.MethodPost, "/api/v1/auth/token", "", fiber.Map{
			"username":          "reader",
			"confirmation_code": "not-the-code",
		})
		require.Equal(t, http.StatusBadRequest, res.StatusCode)

		var body map[string]any
		decode(t, res, &body)
		assert.Equal(t, "code is not correct", body["detail"])
	})

	t.Run("unknown username is a 404", func(t *testing.T) {
		res := env.request(t, http.MethodPost, "/api/v1/auth/token", "", fiber.Map{
			"username":          "ghost",
			"confirmation_code": "whatever",
		})
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})

	t.Run("username me is rejected", func(t *testing.T) {
		res := env.request(t, http.MethodPost, "/api/v1/auth/signup", "", fiber.Map{
			"username": "me",
			"email":    "me@example.com",
		})
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("invalid email is rejected", func(t *testing.T) {
		res := env.request(t, http.MethodPost, "/api/v1/auth/signup", "", fiber.Map{
			"username": "someone",
			"email":    "not-an-email",
		})
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})
}

func TestCatalogPermissions(t *testing.T) {
	env := setup(t)

	adminTok := env.adminToken(t, "boss")
	userTok := env.signupAndToken(t, "reader")

	t.Run("anonymous can list categories", func(t *testing.T) {
		res := env.request(t, http.MethodGet, "/api/v1/categories/", "", nil)
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})

	t.Run("anonymous cannot create a category", func(t *testing.T) {
		res := env.request(t, http.MethodPost, "/api/v1/categories/", "", fiber.Map{
			"name": "Films", "slug": "films",
		})
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("regular user cannot create a category", func(t *testing.T) {
		res := env.request(t, http.MethodPost, "/api/v1/categories/", userTok, fiber.Map{
			"name": "Films", "slug": "films",
		})
		assert.Equal(t, http.StatusForbidden, res.StatusCode)
	})

	t.Run("admin creates category genre and title", func(t *testing.T) {
		res := env.request(t, http.MethodPost, "/api/v1/categories/", adminTok, fiber.Map{
			"name": "Films", "slug": "films",
		})
		require.Equal(t, http.StatusCreated, res.StatusCode)

		res = env.request(t, http.MethodPost, "/api/v1/genres/", adminTok, fiber.Map{
			"name": "Drama", "slug": "drama",
		})
		require.Equal(t, http.StatusCreated, res.StatusCode)

		res = env.request(t, http.MethodPost, "/api/v1/titles/", adminTok, fiber.Map{
			"name":     "Big Night",
			"year":     1996,
			"category": "films",
			"genre":    []string{"drama"},
		})
		require.Equal(t, http.StatusCreated, res.StatusCode)

		var title map[string]any
		decode(t, res, &title)
		assert.Equal(t, "Big Night", title["name"])
	})

	t.Run("duplicate slug is a 400", func(t *testing.T) {
		res := env.request(t, http.MethodPost, "/api/v1/categories/", adminTok, fiber.Map{
			"name": "Films Again", "slug": "films",
		})
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("future year is rejected", func(t *testing.T) {
		res := env.request(t, http.MethodPost, "/api/v1/titles/", adminTok, fiber.Map{
			"name": "From The Future",
			"year": time.Now().Year() + 1,
		})
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("list envelope has count and results", func(t *testing.T) {
		res := env.request(t, http.MethodGet, "/api/v1/categories/", "", nil)
		require.Equal(t, http.StatusOK, res.StatusCode)

		var body struct {
			Count   int              `json:"count"`
			Results []map[string]any `json:"results"`
		}
		decode(t, res, &body)
		assert.Equal(t, 1, body.Count)
		require.Len(t, body.Results, 1)
		assert.Equal(t, "films", body.Results[0]["slug"])
	})
}

func TestReviewLifecycle(t *testing.T) {
	env := setup(t)

	adminTok := env.adminToken(t, "boss")
	aliceTok := env.signupAndToken(t, "alice")
	bobTok := env.signupAndToken(t, "bob")

	res := env.request(t, http.MethodPost, "/api/v1/titles/", adminTok, fiber.Map{
		"name": "Big Night",
		"year": 1996,
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)

	var title struct {
		ID string `json:"id"`
	}
	decode(t, res, &title)

	reviewsPath := "/api/v1/titles/" + title.ID + "/reviews/"

	var reviewID string

	t.Run("author posts a review", func(t *testing.T) {
		res := env.request(t, http.MethodPost, reviewsPath, aliceTok, fiber.Map{
			"text":  "warm and funny",
			"score": 9,
		})
		require.Equal(t, http.StatusCreated, res.StatusCode)

		var review struct {
			ID     string `json:"id"`
			Author string `json:"author"`
			Score  int    `json:"score"`
		}
		decode(t, res, &review)
		assert.Equal(t, "alice", review.Author)
		assert.Equal(t, 9, review.Score)
		reviewID = review.ID
	})

	t.Run("second review by same author rejected", func(t *testing.T) {
		res := env.request(t, http.MethodPost, reviewsPath, aliceTok, fiber.Map{
			"text":  "changed my mind",
			"score": 3,
		})
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("score outside range rejected", func(t *testing.T) {
		res := env.request(t, http.MethodPost, reviewsPath, bobTok, fiber.Map{
			"text":  "off the chart",
			"score": 11,
		})
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("another user cannot edit the review", func(t *testing.T) {
		res := env.request(t, http.MethodPatch, reviewsPath+reviewID, bobTok, fiber.Map{
			"text": "hijacked",
		})
		assert.Equal(t, http.StatusForbidden, res.StatusCode)
	})

	t.Run("author edits own review", func(t *testing.T) {
		res := env.request(t, http.MethodPatch, reviewsPath+reviewID, aliceTok, fiber.Map{
			"score": 8,
		})
		require.Equal(t, http.StatusOK, res.StatusCode)

		var review struct {
			Score int `json:"score"`
		}
		decode(t, res, &review)
		assert.Equal(t, 8, review.Score)
	})

	t.Run("title carries the aggregated rating", func(t *testing.T) {
		res := env.request(t, http.MethodGet, "/api/v1/titles/"+title.ID, "", nil)
		require.Equal(t, http.StatusOK, res.StatusCode)

		var got struct {
			Rating *float64 `json:"rating"`
		}
		decode(t, res, &got)
		require.NotNil(t, got.Rating)
		assert.InDelta(t, 8.0, *got.Rating, 0.01)
	})

	t.Run("comments and moderation", func(t *testing.T) {
		commentsPath := "/api/v1/reviews/" + reviewID + "/comments/"

		res := env.request(t, http.MethodPost, commentsPath, bobTok, fiber.Map{
			"text": "agreed",
		})
		require.Equal(t, http.StatusCreated, res.StatusCode)

		var comment struct {
			ID     string `json:"id"`
			Author string `json:"author"`
		}
		decode(t, res, &comment)
		assert.Equal(t, "bob", comment.Author)

		// alice is not a moderator and not the comment author
		res = env.request(t, http.MethodDelete, commentsPath+comment.ID, aliceTok, nil)
		assert.Equal(t, http.StatusForbidden, res.StatusCode)

		// admin outranks moderator and may remove anything
		res = env.request(t, http.MethodDelete, commentsPath+comment.ID, adminTok, nil)
		assert.Equal(t, http.StatusNoContent, res.StatusCode)
	})

	t.Run("anonymous reads reviews", func(t *testing.T) {
		res := env.request(t, http.MethodGet, reviewsPath, "", nil)
		require.Equal(t, http.StatusOK, res.StatusCode)

		var body struct {
			Count int `json:"count"`
		}
		decode(t, res, &body)
		assert.Equal(t, 1, body.Count)
	})
}

func TestUserManagement(t *testing.T) {
	env := setup(t)

	adminTok := env.adminToken(t, "boss")
	userTok := env.signupAndToken(t, "reader")

	t.Run("admin lists users", func(t *testing.T) {
		res := env.request(t, http.MethodGet, "/api/v1/users/", adminTok, nil)
		require.Equal(t, http.StatusOK, res.StatusCode)

		var body struct {
			Count int `json:"count"`
		}
		decode(t, res, &body)
		assert.Equal(t, 2, body.Count)
	})

	t.Run("regular user cannot list users", func(t *testing.T) {
		res := env.request(t, http.MethodGet, "/api/v1/users/", userTok, nil)
		assert.Equal(t, http.StatusForbidden, res.StatusCode)
	})

	t.Run("admin creates a moderator", func(t *testing.T) {
		res := env.request(t, http.MethodPost, "/api/v1/users/", adminTok, fiber.Map{
			"username": "mod",
			"email":    "mod@example.com",
			"role":     "moderator",
		})
		require.Equal(t, http.StatusCreated, res.StatusCode)

		var created map[string]any
		decode(t, res, &created)
		assert.Equal(t, "moderator", created["role"])
	})

	t.Run("admin promotes by username", func(t *testing.T) {
		res := env.request(t, http.MethodPatch, "/api/v1/users/reader", adminTok, fiber.Map{
			"role": "moderator",
		})
		require.Equal(t, http.StatusOK, res.StatusCode)

		var updated map[string]any
		decode(t, res, &updated)
		assert.Equal(t, "moderator", updated["role"])
	})

	t.Run("regular user cannot view another user", func(t *testing.T) {
		res := env.request(t, http.MethodGet, "/api/v1/users/boss", userTok, nil)
		assert.Equal(t, http.StatusForbidden, res.StatusCode)
	})

	t.Run("self update cannot change role", func(t *testing.T) {
		res := env.request(t, http.MethodPatch, "/api/v1/users/me", userTok, fiber.Map{
			"bio":  "just reading",
			"role": "admin",
		})
		require.Equal(t, http.StatusOK, res.StatusCode)

		var me map[string]any
		decode(t, res, &me)
		assert.Equal(t, "just reading", me["bio"])
		assert.NotEqual(t, "admin", me["role"])
	})

	t.Run("anonymous cannot read me", func(t *testing.T) {
		res := env.request(t, http.MethodGet, "/api/v1/users/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("admin deletes a user", func(t *testing.T) {
		res := env.request(t, http.MethodDelete, "/api/v1/users/mod", adminTok, nil)
		assert.Equal(t, http.StatusNoContent, res.StatusCode)

		res = env.request(t, http.MethodGet, "/api/v1/users/mod", adminTok, nil)
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})
}
