package server

import (
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Pagination carries the normalized page window for list endpoints.
type Pagination struct {
	Page     int
	PageSize int
}

func (p Pagination) Limit() int {
	return p.PageSize
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// ParsePagination reads page/page_size query params, clamping
// out-of-range values instead of erroring on them.
func ParsePagination(c *fiber.Ctx) Pagination {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	size, err := strconv.Atoi(c.Query("page_size", strconv.Itoa(defaultPageSize)))
	if err != nil || size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	return Pagination{Page: page, PageSize: size}
}

// ListEnvelope is the uniform shape for every paginated collection.
type ListEnvelope struct {
	Count   int `json:"count"`
	Results any `json:"results"`
}

func SendList(c *fiber.Ctx, count int, results any) error {
	return c.Status(fiber.StatusOK).JSON(ListEnvelope{
		Count:   count,
		Results: results,
	})
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field -> messages map suitable for a 400 payload.
func FormatValidationErrorToMap(err error) map[string][]string {
	out := map[string][]string{}

	var verrs validation.Errors
	if goerrors.As(err, &verrs) {
		for field, ferr := range verrs {
			out[field] = append(out[field], ferr.Error())
		}
		return out
	}

	out["detail"] = append(out["detail"], err.Error())
	return out
}

// SendValidationError renders a validation failure as a 400 whose body is
// the per-field message map.
func SendValidationError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(FormatValidationErrorToMap(err))
}

func badRequest(msg string) error {
	return goerrors.New(msg, goerrors.CategoryBadInput).
		WithCode(fiber.StatusBadRequest)
}
