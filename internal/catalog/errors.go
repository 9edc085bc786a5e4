package catalog

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeNotFound signals an unknown slug or ID
	TextCodeNotFound = "RESOURCE_NOT_FOUND"
	// TextCodeDuplicateSlug signals a slug collision on create
	TextCodeDuplicateSlug = "DUPLICATE_SLUG"
	// TextCodeDuplicateReview signals a second review by the same author for one title
	TextCodeDuplicateReview = "DUPLICATE_REVIEW"
)

// ErrNotFound is returned when no record matches the given slug or ID.
var ErrNotFound = goerrors.New("resource not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrDuplicateSlug is returned when a category or genre slug already exists.
var ErrDuplicateSlug = goerrors.New("slug already in use", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateSlug).
	WithCode(goerrors.CodeBadRequest)

// ErrDuplicateReview is returned when an author reviews the same title twice.
var ErrDuplicateReview = goerrors.New("you have already reviewed this title", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateReview).
	WithCode(goerrors.CodeBadRequest)
