package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// low cost keeps the test fast; production uses DefaultBcryptCost
const testBcryptCost = 4

func TestHashSecret(t *testing.T) {
	t.Run("hashes a code", func(t *testing.T) {
		hash, err := HashSecret("some-code", testBcryptCost)
		require.NoError(t, err)
		assert.NotEmpty(t, hash)
		assert.NotEqual(t, "some-code", hash)
	})

	t.Run("rejects empty secret", func(t *testing.T) {
		_, err := HashSecret("", testBcryptCost)
		assert.ErrorIs(t, err, ErrNoEmptyString)
	})

	t.Run("out of range cost falls back to default", func(t *testing.T) {
		hash, err := HashSecret("some-code", 99)
		require.NoError(t, err)
		assert.NoError(t, CompareSecretAndHash("some-code", hash))
	})
}

func TestCompareSecretAndHash(t *testing.T) {
	code := NewConfirmationCode()
	hash, err := HashSecret(code, testBcryptCost)
	require.NoError(t, err)

	t.Run("matching code passes", func(t *testing.T) {
		assert.NoError(t, CompareSecretAndHash(code, hash))
	})

	t.Run("wrong code fails", func(t *testing.T) {
		err := CompareSecretAndHash("not-the-code", hash)
		assert.ErrorIs(t, err, ErrInvalidConfirmationCode)
	})

	t.Run("no stored hash fails", func(t *testing.T) {
		err := CompareSecretAndHash(code, "")
		assert.ErrorIs(t, err, ErrInvalidConfirmationCode)
	})
}

func TestNewConfirmationCode(t *testing.T) {
	a := NewConfirmationCode()
	b := NewConfirmationCode()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
