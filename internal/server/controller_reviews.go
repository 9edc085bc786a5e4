package server

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"reviewhub/internal/auth"
	"reviewhub/internal/catalog"
)

// ReviewsController serves reviews nested under titles and comments
// nested under reviews. Ownership checks happen here, after the record
// is loaded, since the guard middleware only sees the credential.
type ReviewsController struct {
	store  catalog.Store
	repo   auth.RepositoryManager
	logger auth.Logger
}

func NewReviewsController(store catalog.Store, repo auth.RepositoryManager, logger auth.Logger) *ReviewsController {
	return &ReviewsController{store: store, repo: repo, logger: logger}
}

// ReviewView is the wire projection of a review.
type ReviewView struct {
	ID      uuid.UUID  `json:"id"`
	Author  string     `json:"author"`
	Text    string     `json:"text"`
	Score   int        `json:"score"`
	PubDate *time.Time `json:"pub_date"`
}

func NewReviewView(r *catalog.Review) ReviewView {
	return ReviewView{
		ID:      r.ID,
		Author:  r.AuthorUsername(),
		Text:    r.Text,
		Score:   r.Score,
		PubDate: r.CreatedAt,
	}
}

// CommentView is the wire projection of a comment.
type CommentView struct {
	ID      uuid.UUID  `json:"id"`
	Author  string     `json:"author"`
	Text    string     `json:"text"`
	PubDate *time.Time `json:"pub_date"`
}

func NewCommentView(c *catalog.Comment) CommentView {
	return CommentView{
		ID:      c.ID,
		Author:  c.AuthorUsername(),
		Text:    c.Text,
		PubDate: c.CreatedAt,
	}
}

type ReviewPayload struct {
	Text  string `json:"text"`
	Score int    `json:"score"`
}

func (p ReviewPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Text, validation.Required),
		validation.Field(&p.Score,
			validation.Required,
			validation.Min(1),
			validation.Max(10),
		),
	)
}

type ReviewPatchPayload struct {
	Text  *string `json:"text"`
	Score *int    `json:"score"`
}

func (p ReviewPatchPayload) Validate() error {
	if p.Text != nil && *p.Text == "" {
		return validation.Errors{"text": errors.New("cannot be blank")}
	}
	if p.Score != nil && (*p.Score < 1 || *p.Score > 10) {
		return validation.Errors{"score": errors.New("must be between 1 and 10")}
	}
	return nil
}

type CommentPayload struct {
	Text string `json:"text"`
}

func (p CommentPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Text, validation.Required),
	)
}

func (ctl *ReviewsController) ReviewsList(c *fiber.Ctx) error {
	titleID, err := ctl.titleID(c)
	if err != nil {
		return err
	}

	page := ParsePagination(c)

	records, count, err := ctl.store.Reviews().ListByTitle(c.UserContext(), titleID, page.Limit(), page.Offset())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not list reviews")
	}

	views := make([]ReviewView, 0, len(records))
	for _, record := range records {
		views = append(views, NewReviewView(record))
	}

	return SendList(c, count, views)
}

func (ctl *ReviewsController) ReviewShow(c *fiber.Ctx) error {
	titleID, err := ctl.titleID(c)
	if err != nil {
		return err
	}

	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	record, err := ctl.store.Reviews().GetByID(c.UserContext(), titleID, id)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(NewReviewView(record))
}

func (ctl *ReviewsController) ReviewCreate(c *fiber.Ctx) error {
	titleID, err := ctl.titleID(c)
	if err != nil {
		return err
	}

	var payload ReviewPayload
	if err := c.BodyParser(&payload); err != nil {
		return badRequest("invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return SendValidationError(c, err)
	}

	caller := CallerFromCtx(c)
	authorID, err := uuid.Parse(caller.ID)
	if err != nil {
		return auth.ErrUnauthenticated
	}

	record, err := ctl.store.Reviews().Create(c.UserContext(), &catalog.Review{
		TitleID:  titleID,
		AuthorID: authorID,
		Text:     payload.Text,
		Score:    payload.Score,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(NewReviewView(record))
}

func (ctl *ReviewsController) ReviewUpdate(c *fiber.Ctx) error {
	titleID, err := ctl.titleID(c)
	if err != nil {
		return err
	}

	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var payload ReviewPatchPayload
	if err := c.BodyParser(&payload); err != nil {
		return badRequest("invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return SendValidationError(c, err)
	}

	record, err := ctl.store.Reviews().GetByID(c.UserContext(), titleID, id)
	if err != nil {
		return err
	}

	caller := CallerFromCtx(c)
	if !auth.IsAllowed(caller, auth.ActionUpdate, auth.ResourceReview, record.AuthorID.String()) {
		return denyError(caller)
	}

	if payload.Text != nil {
		record.Text = *payload.Text
	}
	if payload.Score != nil {
		record.Score = *payload.Score
	}

	updated, err := ctl.store.Reviews().Update(c.UserContext(), record)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(NewReviewView(updated))
}

func (ctl *ReviewsController) ReviewDelete(c *fiber.Ctx) error {
	titleID, err := ctl.titleID(c)
	if err != nil {
		return err
	}

	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	record, err := ctl.store.Reviews().GetByID(c.UserContext(), titleID, id)
	if err != nil {
		return err
	}

	caller := CallerFromCtx(c)
	if !auth.IsAllowed(caller, auth.ActionDelete, auth.ResourceReview, record.AuthorID.String()) {
		return denyError(caller)
	}

	if err := ctl.store.Reviews().Delete(c.UserContext(), titleID, id); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (ctl *ReviewsController) CommentsList(c *fiber.Ctx) error {
	reviewID, err := ctl.reviewID(c)
	if err != nil {
		return err
	}

	page := ParsePagination(c)

	records, count, err := ctl.store.Comments().ListByReview(c.UserContext(), reviewID, page.Limit(), page.Offset())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not list comments")
	}

	views := make([]CommentView, 0, len(records))
	for _, record := range records {
		views = append(views, NewCommentView(record))
	}

	return SendList(c, count, views)
}

func (ctl *ReviewsController) CommentShow(c *fiber.Ctx) error {
	reviewID, err := ctl.reviewID(c)
	if err != nil {
		return err
	}

	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	record, err := ctl.store.Comments().GetByID(c.UserContext(), reviewID, id)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(NewCommentView(record))
}

func (ctl *ReviewsController) CommentCreate(c *fiber.Ctx) error {
	reviewID, err := ctl.reviewID(c)
	if err != nil {
		return err
	}

	var payload CommentPayload
	if err := c.BodyParser(&payload); err != nil {
		return badRequest("invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return SendValidationError(c, err)
	}

	caller := CallerFromCtx(c)
	authorID, err := uuid.Parse(caller.ID)
	if err != nil {
		return auth.ErrUnauthenticated
	}

	record, err := ctl.store.Comments().Create(c.UserContext(), &catalog.Comment{
		ReviewID: reviewID,
		AuthorID: authorID,
		Text:     payload.Text,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(NewCommentView(record))
}

func (ctl *ReviewsController) CommentUpdate(c *fiber.Ctx) error {
	reviewID, err := ctl.reviewID(c)
	if err != nil {
		return err
	}

	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var payload CommentPayload
	if err := c.BodyParser(&payload); err != nil {
		return badRequest("invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return SendValidationError(c, err)
	}

	record, err := ctl.store.Comments().GetByID(c.UserContext(), reviewID, id)
	if err != nil {
		return err
	}

	caller := CallerFromCtx(c)
	if !auth.IsAllowed(caller, auth.ActionUpdate, auth.ResourceComment, record.AuthorID.String()) {
		return denyError(caller)
	}

	record.Text = payload.Text

	updated, err := ctl.store.Comments().Update(c.UserContext(), record)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(NewCommentView(updated))
}

func (ctl *ReviewsController) CommentDelete(c *fiber.Ctx) error {
	reviewID, err := ctl.reviewID(c)
	if err != nil {
		return err
	}

	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	record, err := ctl.store.Comments().GetByID(c.UserContext(), reviewID, id)
	if err != nil {
		return err
	}

	caller := CallerFromCtx(c)
	if !auth.IsAllowed(caller, auth.ActionDelete, auth.ResourceComment, record.AuthorID.String()) {
		return denyError(caller)
	}

	if err := ctl.store.Comments().Delete(c.UserContext(), reviewID, id); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// titleID resolves the :title_id segment and verifies the title exists,
// so nested routes 404 on unknown parents.
func (ctl *ReviewsController) titleID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := parseID(c, "title_id")
	if err != nil {
		return uuid.Nil, err
	}

	if _, err := ctl.store.Titles().GetByID(c.UserContext(), id); err != nil {
		return uuid.Nil, err
	}

	return id, nil
}

func (ctl *ReviewsController) reviewID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := parseID(c, "review_id")
	if err != nil {
		return uuid.Nil, err
	}

	exists, err := ctl.store.Reviews().Exists(c.UserContext(), id)
	if err != nil {
		return uuid.Nil, err
	}
	if !exists {
		return uuid.Nil, catalog.ErrNotFound
	}

	return id, nil
}
