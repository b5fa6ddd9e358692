package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseField(t *testing.T) {
	for _, name := range []string{"username", "email", "phone"} {
		field, err := ParseField(name)
		require.NoError(t, err)
		assert.Equal(t, Field(name), field)
	}

	_, err := ParseField("access_code")
	assert.Error(t, err)
}

func TestResolve_EmptyInputs(t *testing.T) {
	store := newFakeStore()
	hasher := &countingHasher{}
	resolver := NewResolver(store, hasher, FieldUsername)

	for _, tc := range []struct{ identifier, secret string }{
		{"", "secret"},
		{"amina", ""},
		{"", ""},
	} {
		identity, err := resolver.Resolve(context.Background(), tc.identifier, tc.secret)
		assert.NoError(t, err)
		assert.Nil(t, identity)
	}
	assert.Equal(t, 0, hasher.compareCount(), "empty inputs short-circuit before any comparison")
}

func TestResolve_Success(t *testing.T) {
	store := newFakeStore()
	store.addIdentity(&Identity{
		ID:           1,
		Username:     "amina",
		PasswordHash: "hashed:s3cret",
		IsActive:     true,
	})
	resolver := NewResolver(store, &countingHasher{}, FieldUsername)

	identity, err := resolver.Resolve(context.Background(), "amina", "s3cret")
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, int64(1), identity.ID)
}

func TestResolve_PhoneCaseInsensitive(t *testing.T) {
	store := newFakeStore()
	store.addIdentity(&Identity{
		ID:           1,
		Phone:        "0612345678",
		PasswordHash: "hashed:s3cret",
		IsActive:     true,
	})
	resolver := NewResolver(store, &countingHasher{})

	identity, err := resolver.Resolve(context.Background(), "0612345678", "s3cret")
	require.NoError(t, err)
	assert.NotNil(t, identity)
}

func TestResolve_FieldOrder(t *testing.T) {
	store := newFakeStore()
	// Same literal identifier matches one identity's username and
	// another's email; the first configured field wins.
	store.addIdentity(&Identity{
		ID:           1,
		Username:     "amina@example.com",
		PasswordHash: "hashed:pw1",
		IsActive:     true,
	})
	store.addIdentity(&Identity{
		ID:           2,
		Username:     "amina",
		Email:        "amina@example.com",
		PasswordHash: "hashed:pw2",
		IsActive:     true,
	})
	resolver := NewResolver(store, &countingHasher{}, FieldUsername, FieldEmail)

	identity, err := resolver.Resolve(context.Background(), "amina@example.com", "pw1")
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, int64(1), identity.ID)
}

func TestResolve_FallsThroughToNextField(t *testing.T) {
	store := newFakeStore()
	store.addIdentity(&Identity{
		ID:           2,
		Username:     "amina",
		Email:        "amina@example.com",
		PasswordHash: "hashed:pw2",
		IsActive:     true,
	})
	resolver := NewResolver(store, &countingHasher{}, FieldUsername, FieldEmail)

	identity, err := resolver.Resolve(context.Background(), "amina@example.com", "pw2")
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, int64(2), identity.ID)
}

func TestResolve_WrongSecret(t *testing.T) {
	store := newFakeStore()
	store.addIdentity(&Identity{
		ID:           1,
		Username:     "amina",
		PasswordHash: "hashed:s3cret",
		IsActive:     true,
	})
	hasher := &countingHasher{}
	resolver := NewResolver(store, hasher, FieldUsername)
	before := hasher.compareCount()

	identity, err := resolver.Resolve(context.Background(), "amina", "wrong")
	assert.NoError(t, err)
	assert.Nil(t, identity)
	assert.Equal(t, 1, hasher.compareCount()-before)
}

func TestResolve_InactiveIdentity(t *testing.T) {
	store := newFakeStore()
	store.addIdentity(&Identity{
		ID:           1,
		Username:     "amina",
		PasswordHash: "hashed:s3cret",
		IsActive:     false,
	})
	resolver := NewResolver(store, &countingHasher{}, FieldUsername)

	// Correct password, inactive account: indistinguishable from a miss.
	identity, err := resolver.Resolve(context.Background(), "amina", "s3cret")
	assert.NoError(t, err)
	assert.Nil(t, identity)
}

func TestResolve_MissCostsOneComparison(t *testing.T) {
	store := newFakeStore()
	store.addIdentity(&Identity{
		ID:           1,
		Username:     "amina",
		PasswordHash: "hashed:s3cret",
		IsActive:     true,
	})
	hasher := &countingHasher{}
	resolver := NewResolver(store, hasher, FieldUsername)

	before := hasher.compareCount()
	identity, err := resolver.Resolve(context.Background(), "nobody", "whatever")
	assert.NoError(t, err)
	assert.Nil(t, identity)
	missCost := hasher.compareCount() - before

	before = hasher.compareCount()
	_, err = resolver.Resolve(context.Background(), "amina", "wrong")
	assert.NoError(t, err)
	hitCost := hasher.compareCount() - before

	assert.Equal(t, hitCost, missCost, "unknown identifier must cost the same comparisons as a wrong password")
	assert.Equal(t, 1, missCost)
}

func TestResolve_StoreError(t *testing.T) {
	store := newFakeStore()
	store.lookupErr = errors.New("connection refused")
	resolver := NewResolver(store, &countingHasher{}, FieldUsername)

	identity, err := resolver.Resolve(context.Background(), "amina", "s3cret")
	assert.Nil(t, identity)
	assert.Error(t, err)
}
