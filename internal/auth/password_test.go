package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	h, err := NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	hash, err := h.Hash("Password1!")
	require.NoError(t, err)
	assert.NotEqual(t, "Password1!", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))

	assert.True(t, h.Verify("Password1!", hash))
	assert.False(t, h.Verify("Password1?", hash))
	assert.False(t, h.Verify("", hash))
}

func TestBcryptHasher_FreshSaltPerHash(t *testing.T) {
	h, err := NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	a, err := h.Hash("Password1!")
	require.NoError(t, err)
	b, err := h.Hash("Password1!")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, h.Verify("Password1!", a))
	assert.True(t, h.Verify("Password1!", b))
}

func TestBcryptHasher_MalformedHashIsMismatch(t *testing.T) {
	h, err := NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	for _, hash := range []string{"", "not-a-hash", "$2a$10$short"} {
		assert.False(t, h.Verify("Password1!", hash), "hash %q", hash)
	}
}

func TestNewBcryptHasher_CostRange(t *testing.T) {
	tests := []struct {
		name    string
		cost    int
		wantErr bool
	}{
		{"min", bcrypt.MinCost, false},
		{"default", 10, false},
		{"too low", bcrypt.MinCost - 1, true},
		{"too high", bcrypt.MaxCost + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewBcryptHasher(tt.cost)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cost, h.Cost())
		})
	}
}

func TestBcryptHasher_EncodesCost(t *testing.T) {
	h, err := NewBcryptHasher(bcrypt.MinCost + 1)
	require.NoError(t, err)

	hash, err := h.Hash("Password1!")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)
}
