package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identity "github.com/licentra/identity"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := identity.HashPassword("Sup3r-secret")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "Sup3r-secret", hash)

	assert.NoError(t, identity.ComparePasswordAndHash("Sup3r-secret", hash))
	assert.ErrorIs(t, identity.ComparePasswordAndHash("wrong-password", hash), identity.ErrMismatchedHashAndPassword)
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := identity.HashPassword("")
	assert.ErrorIs(t, err, identity.ErrNoEmptyString)

	assert.ErrorIs(t, identity.ComparePasswordAndHash("", "hash"), identity.ErrNoEmptyString)
	assert.ErrorIs(t, identity.ComparePasswordAndHash("password", ""), identity.ErrNoEmptyString)
}

func TestValidatePasswordPolicy(t *testing.T) {
	testCases := []struct {
		name     string
		password string
		valid    bool
	}{
		{"all requirements", "Abc123!", true},
		{"longer password", "Str0ng&Passw0rd", true},
		{"too short", "Ab1!xy", false},
		{"no uppercase", "abc123!x", false},
		{"no lowercase", "ABC123!X", false},
		{"no digit", "Abcdef!x", false},
		{"no symbol", "Abc123xy", false},
		{"empty", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := identity.ValidatePasswordPolicy(tc.password)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
