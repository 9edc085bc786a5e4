package server

import (
	"errors"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"reviewhub/internal/auth"
	"reviewhub/internal/catalog"
)

var slugRe = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// CatalogController serves categories, genres and titles.
type CatalogController struct {
	store  catalog.Store
	logger auth.Logger
}

func NewCatalogController(store catalog.Store, logger auth.Logger) *CatalogController {
	return &CatalogController{store: store, logger: logger}
}

type ClassifierPayload struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (p ClassifierPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 256)),
		validation.Field(&p.Slug,
			validation.Required,
			validation.Length(1, 50),
			validation.Match(slugRe),
		),
	)
}

func (ctl *CatalogController) CategoriesList(c *fiber.Ctx) error {
	page := ParsePagination(c)

	records, count, err := ctl.store.Categories().List(c.UserContext(), c.Query("search"), page.Limit(), page.Offset())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not list categories")
	}

	return SendList(c, count, records)
}

func (ctl *CatalogController) CategoryCreate(c *fiber.Ctx) error {
	var payload ClassifierPayload
	if err := c.BodyParser(&payload); err != nil {
		return badRequest("invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return SendValidationError(c, err)
	}

	record, err := ctl.store.Categories().Create(c.UserContext(), &catalog.Category{
		Name: payload.Name,
		Slug: payload.Slug,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(record)
}

func (ctl *CatalogController) CategoryDelete(c *fiber.Ctx) error {
	if err := ctl.store.Categories().DeleteBySlug(c.UserContext(), c.Params("slug")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (ctl *CatalogController) GenresList(c *fiber.Ctx) error {
	page := ParsePagination(c)

	records, count, err := ctl.store.Genres().List(c.UserContext(), c.Query("search"), page.Limit(), page.Offset())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not list genres")
	}

	return SendList(c, count, records)
}

func (ctl *CatalogController) GenreCreate(c *fiber.Ctx) error {
	var payload ClassifierPayload
	if err := c.BodyParser(&payload); err != nil {
		return badRequest("invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return SendValidationError(c, err)
	}

	record, err := ctl.store.Genres().Create(c.UserContext(), &catalog.Genre{
		Name: payload.Name,
		Slug: payload.Slug,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(record)
}

func (ctl *CatalogController) GenreDelete(c *fiber.Ctx) error {
	if err := ctl.store.Genres().DeleteBySlug(c.UserContext(), c.Params("slug")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type TitlePayload struct {
	Name        string   `json:"name"`
	Year        int      `json:"year"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Genre       []string `json:"genre"`
}

func (p TitlePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 256)),
		validation.Field(&p.Year,
			validation.Required,
			validation.Min(1),
			validation.Max(time.Now().Year()),
		),
	)
}

// TitlePatchPayload mirrors TitlePayload with every field optional.
type TitlePatchPayload struct {
	Name        *string   `json:"name"`
	Year        *int      `json:"year"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Genre       *[]string `json:"genre"`
}

func (p TitlePatchPayload) Validate() error {
	if p.Name != nil && (*p.Name == "" || len(*p.Name) > 256) {
		return validation.Errors{"name": errors.New("must be 1 to 256 characters")}
	}
	if p.Year != nil && (*p.Year < 1 || *p.Year > time.Now().Year()) {
		return validation.Errors{"year": errors.New("must not be in the future")}
	}
	return nil
}

func (ctl *CatalogController) TitlesList(c *fiber.Ctx) error {
	page := ParsePagination(c)

	filter := catalog.TitleFilter{
		Category: c.Query("category"),
		Genre:    c.Query("genre"),
		Name:     c.Query("name"),
		Year:     c.QueryInt("year"),
	}

	records, count, err := ctl.store.Titles().List(c.UserContext(), filter, page.Limit(), page.Offset())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not list titles")
	}

	return SendList(c, count, records)
}

func (ctl *CatalogController) TitleShow(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	record, err := ctl.store.Titles().GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(record)
}

func (ctl *CatalogController) TitleCreate(c *fiber.Ctx) error {
	var payload TitlePayload
	if err := c.BodyParser(&payload); err != nil {
		return badRequest("invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return SendValidationError(c, err)
	}

	record := &catalog.Title{
		Name:        payload.Name,
		Year:        payload.Year,
		Description: payload.Description,
	}

	if payload.Category != "" {
		category, err := ctl.store.Categories().GetBySlug(c.UserContext(), payload.Category)
		if err != nil {
			return err
		}
		record.CategoryID = &category.ID
	}

	genres, err := ctl.resolveGenres(c, payload.Genre)
	if err != nil {
		return err
	}

	created, err := ctl.store.Titles().Create(c.UserContext(), record, genres)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (ctl *CatalogController) TitleUpdate(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var payload TitlePatchPayload
	if err := c.BodyParser(&payload); err != nil {
		return badRequest("invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return SendValidationError(c, err)
	}

	record, err := ctl.store.Titles().GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}

	if payload.Name != nil {
		record.Name = *payload.Name
	}
	if payload.Year != nil {
		record.Year = *payload.Year
	}
	if payload.Description != nil {
		record.Description = *payload.Description
	}
	if payload.Category != nil {
		category, cerr := ctl.store.Categories().GetBySlug(c.UserContext(), *payload.Category)
		if cerr != nil {
			return cerr
		}
		record.CategoryID = &category.ID
	}

	// Nil genre list keeps the existing associations.
	genres := record.Genres
	if payload.Genre != nil {
		genres, err = ctl.resolveGenres(c, *payload.Genre)
		if err != nil {
			return err
		}
	}

	updated, err := ctl.store.Titles().Update(c.UserContext(), record, genres)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(updated)
}

func (ctl *CatalogController) TitleDelete(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := ctl.store.Titles().Delete(c.UserContext(), id); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (ctl *CatalogController) resolveGenres(c *fiber.Ctx, slugs []string) ([]*catalog.Genre, error) {
	if len(slugs) == 0 {
		return nil, nil
	}

	genres, err := ctl.store.Genres().ResolveSlugs(c.UserContext(), slugs)
	if err != nil {
		return nil, err
	}

	return genres, nil
}

func parseID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, catalog.ErrNotFound
	}
	return id, nil
}
