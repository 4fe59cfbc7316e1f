package identity_test

import (
	"errors"
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identity "github.com/licentra/identity"
)

func TestSentinelCategories(t *testing.T) {
	cases := []struct {
		err      error
		category goerrors.Category
		textCode string
	}{
		{identity.ErrInvalidCredentials, goerrors.CategoryAuth, identity.TextCodeInvalidCreds},
		{identity.ErrNotActivated, goerrors.CategoryAuth, identity.TextCodeNotActivated},
		{identity.ErrTooManyLoginAttempts, goerrors.CategoryAuth, identity.TextCodeTooManyAttempts},
		{identity.ErrActionTokenInvalid, goerrors.CategoryAuth, identity.TextCodeTokenInvalid},
		{identity.ErrPasswordMismatch, goerrors.CategoryValidation, identity.TextCodePasswordMismatch},
		{identity.ErrForbidden, goerrors.CategoryAuthz, identity.TextCodeForbidden},
		{identity.ErrProtectedAccount, goerrors.CategoryAuthz, identity.TextCodeProtectedAccount},
		{identity.ErrDuplicateUsername, goerrors.CategoryConflict, identity.TextCodeDuplicateUsername},
	}

	for _, tc := range cases {
		var richErr *goerrors.Error
		require.ErrorAs(t, tc.err, &richErr, tc.err.Error())
		assert.Equal(t, tc.category, richErr.Category, tc.err.Error())
		assert.Equal(t, tc.textCode, richErr.TextCode, tc.err.Error())
	}
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("while logging in: %w", identity.ErrInvalidCredentials)
	assert.True(t, errors.Is(wrapped, identity.ErrInvalidCredentials))
	assert.False(t, errors.Is(wrapped, identity.ErrNotActivated))
}

func TestWrapInternal(t *testing.T) {
	assert.NoError(t, identity.WrapInternal(nil, "noop"))

	err := identity.WrapInternal(errors.New("driver exploded"), "query failed")
	require.Error(t, err)

	var richErr *goerrors.Error
	require.ErrorAs(t, err, &richErr)
	assert.Equal(t, goerrors.CategoryInternal, richErr.Category)
	assert.Equal(t, "query failed", richErr.Message)
}
