package helper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	ctx := context.Background()

	digest, err := h.Hash(ctx, "longenough1")
	require.NoError(t, err)
	assert.NotEqual(t, "longenough1", digest)

	ok, err := h.Verify(ctx, "longenough1", digest)
	require.NoError(t, err)
	assert.True(t, ok)

	for _, other := range []string{"", "longenough2", "LONGENOUGH1", "longenough1 "} {
		ok, err := h.Verify(ctx, other, digest)
		require.NoError(t, err)
		assert.False(t, ok, other)
	}
}

func TestPasswordHasher_SaltPerCall(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	a, err := h.Hash(context.Background(), "same-password")
	require.NoError(t, err)
	b, err := h.Hash(context.Background(), "same-password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestPasswordHasher_MalformedDigest(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	_, err := h.Verify(context.Background(), "x", "not-a-bcrypt-hash")
	assert.Error(t, err)
}

func TestPasswordHasher_CancelledContext(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Hash(ctx, "longenough1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewPasswordHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(99).cost)
	assert.Equal(t, 12, NewPasswordHasher(12).cost)
}
