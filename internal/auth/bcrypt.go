package auth

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is used when the configured cost is out of range.
const DefaultBcryptCost = 14

// NewConfirmationCode generates a fresh one-time confirmation code. The code
// is a v4 UUID: 122 random bits, unguessable by construction.
func NewConfirmationCode() string {
	return uuid.NewString()
}

// HashSecret generates a salted bcrypt hash of a one-time secret.
func HashSecret(secret string, cost int) (string, error) {
	if secret == "" {
		return "", ErrNoEmptyString
	}

	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}

	h, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	return string(h), err
}

// CompareSecretAndHash validates the given cleartext secret against the
// stored bcrypt hash. A mismatch is reported as ErrInvalidConfirmationCode.
func CompareSecretAndHash(secret, hash string) error {
	if hash == "" {
		return ErrInvalidConfirmationCode
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidConfirmationCode
		}
		return err
	}
	return nil
}
