package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeIdentityNotFound signals an unknown username
	TextCodeIdentityNotFound = "IDENTITY_NOT_FOUND"
	// TextCodeInvalidCode signals a confirmation code mismatch
	TextCodeInvalidCode = "INVALID_CONFIRMATION_CODE"
	// TextCodeSignupConflict signals a username/email pair mismatch on repeat signup
	TextCodeSignupConflict = "SIGNUP_CONFLICT"
	// TextCodeEmptySecret signals an empty confirmation code
	TextCodeEmptySecret = "EMPTY_SECRET"
	// TextCodeTokenExpired signals an expired access token
	TextCodeTokenExpired = "TOKEN_EXPIRED"
	// TextCodeTokenMalformed signals a token that failed signature or shape checks
	TextCodeTokenMalformed = "TOKEN_MALFORMED"
	// TextCodeClaimsMappingError signals claims that could not be decoded
	TextCodeClaimsMappingError = "CLAIMS_MAPPING_ERROR"
	// TextCodeUnauthenticated signals a request with no usable credential
	TextCodeUnauthenticated = "UNAUTHENTICATED"
	// TextCodeForbidden signals a role or ownership check failure
	TextCodeForbidden = "FORBIDDEN"
)

// ErrIdentityNotFound is returned when no user matches the given username.
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrInvalidConfirmationCode is returned when the submitted code does not
// hash to the stored confirmation hash, or no code was ever issued.
var ErrInvalidConfirmationCode = goerrors.New("code is not correct", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCode).
	WithCode(goerrors.CodeBadRequest)

// ErrSignupConflict is returned when a repeat signup presents a username/email
// pair that disagrees with the stored record.
var ErrSignupConflict = goerrors.New("username and email do not match an existing account", goerrors.CategoryConflict).
	WithTextCode(TextCodeSignupConflict).
	WithCode(goerrors.CodeBadRequest)

// ErrNoEmptyString is returned when an empty secret is handed to the hasher.
var ErrNoEmptyString = goerrors.New("secret must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptySecret).
	WithCode(goerrors.CodeBadRequest)

// ErrTokenExpired is returned for credentials past their expiry.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for credentials that fail parsing or signature checks.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToMapClaims is returned when a valid token carries undecodable claims.
var ErrUnableToMapClaims = goerrors.New("unable to map claims", goerrors.CategoryAuth).
	WithTextCode(TextCodeClaimsMappingError).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnauthenticated is returned when an endpoint requires a credential and none was presented.
var ErrUnauthenticated = goerrors.New("authentication required", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(goerrors.CodeUnauthorized)

// ErrForbidden is returned when the policy evaluator denies an action.
var ErrForbidden = goerrors.New("you do not have permission to perform this action", goerrors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(goerrors.CodeForbidden)
