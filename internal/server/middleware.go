package server

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"reviewhub/internal/auth"
)

// ContextKey is the fiber locals key the validated claims are stored under.
const ContextKey = "user"

// TokenValidator validates a raw credential into structured claims.
type TokenValidator interface {
	Validate(tokenString string) (auth.AuthClaims, error)
}

// NewAuthMiddleware extracts and validates the bearer credential, storing the
// claims in fiber locals and the request context. In optional mode a missing
// credential passes through as the anonymous caller; a credential that is
// present but invalid is still rejected.
func NewAuthMiddleware(validator TokenValidator, optional bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := tokenFromHeader(c.Get(fiber.HeaderAuthorization), "Bearer")
		if err != nil {
			if optional {
				return c.Next()
			}
			return auth.ErrUnauthenticated
		}

		claims, err := validator.Validate(raw)
		if err != nil {
			return err
		}

		c.Locals(ContextKey, claims)
		c.SetUserContext(auth.WithClaimsContext(c.UserContext(), claims))

		return c.Next()
	}
}

// Guard consults the policy evaluator before the handler body runs. Handlers
// that gate on record ownership re-check with the owner once the record is
// loaded; this middleware covers everything that can be decided from the
// claims alone.
func Guard(resource auth.Resource, action auth.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := CallerFromCtx(c)
		if !auth.IsAllowed(caller, action, resource, "") {
			return denyError(caller)
		}
		return c.Next()
	}
}

// GuardAuthenticated only requires a valid credential, deferring the full
// policy decision to the handler (used where ownership matters).
func GuardAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := CallerFromCtx(c)
		if caller.IsAnonymous() {
			return auth.ErrUnauthenticated
		}
		return c.Next()
	}
}

// CallerFromCtx resolves the policy caller for this request, anonymous when
// no claims were stored by the auth middleware.
func CallerFromCtx(c *fiber.Ctx) auth.Caller {
	raw := c.Locals(ContextKey)
	if raw == nil {
		return auth.Caller{}
	}

	claims, ok := raw.(auth.AuthClaims)
	if !ok {
		return auth.Caller{}
	}

	return auth.CallerFromClaims(claims)
}

func denyError(caller auth.Caller) error {
	if caller.IsAnonymous() {
		return auth.ErrUnauthenticated
	}
	return auth.ErrForbidden
}

func tokenFromHeader(header, authScheme string) (string, error) {
	l := len(authScheme)
	if len(header) > l+1 && strings.EqualFold(header[:l], authScheme) {
		return strings.TrimSpace(header[l:]), nil
	}
	return "", ErrJWTMissingOrMalformed
}
