package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	hasher := &BcryptHasher{Cost: bcrypt.MinCost}

	hash, err := hasher.Hash("s3cret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2"), "expected a bcrypt hash, got %q", hash)
	assert.NotContains(t, hash, "s3cret")

	assert.True(t, hasher.Compare(hash, "s3cret"))
	assert.False(t, hasher.Compare(hash, "wrong"))
	assert.False(t, hasher.Compare(hash, ""))
	assert.False(t, hasher.Compare("", "s3cret"))
}

func TestBcryptHasher_HashesAreSalted(t *testing.T) {
	hasher := &BcryptHasher{Cost: bcrypt.MinCost}

	first, err := hasher.Hash("s3cret")
	require.NoError(t, err)
	second, err := hasher.Hash("s3cret")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, hasher.Compare(first, "s3cret"))
	assert.True(t, hasher.Compare(second, "s3cret"))
}

func TestBcryptHasher_ZeroValueUsesDefaultCost(t *testing.T) {
	var hasher BcryptHasher

	hash, err := hasher.Hash("s3cret")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
