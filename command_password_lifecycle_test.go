package identity_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identity "github.com/licentra/identity"
)

func TestEmailValidationFlow(t *testing.T) {
	_, repo := setupDB(t)
	ctx := context.Background()

	guard := identity.NewGuard()
	mailer := &capturingMailer{}

	admin := seedUser(t, repo, "admin@example.com", "Adm1n!pass", identity.RoleAdmin, true)

	var created *identity.CreateAccountResponse
	handler := identity.NewCreateAccountHandler(repo, guard).
		WithMailer(mailer).
		WithBaseURL("http://localhost:8080")

	err := handler.Execute(ctx, identity.CreateAccountMessage{
		Actor:     admin,
		Username:  "newuser@example.com",
		FirstName: "New",
		LastName:  "User",
		Role:      identity.RoleBasic,
		OnResponse: func(resp *identity.CreateAccountResponse) {
			created = resp
		},
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	require.NotNil(t, created.Validation)
	assert.False(t, created.User.Activated)
	assert.Empty(t, created.User.PasswordHash)

	require.Len(t, mailer.mails, 1)
	assert.Equal(t, "newuser@example.com", mailer.mails[0].To)
	assert.Contains(t, mailer.mails[0].Link, created.Validation.Token)

	// the wrong confirmation never burns the token
	validate := identity.NewValidateEmailHandler(repo)
	err = validate.Execute(ctx, identity.ValidateEmailMessage{
		Token:           created.Validation.Token,
		Password:        "Abc123!x",
		ConfirmPassword: "different",
	})
	assert.ErrorIs(t, err, identity.ErrPasswordMismatch)

	// a weak password is rejected before the token is touched
	err = validate.Execute(ctx, identity.ValidateEmailMessage{
		Token:           created.Validation.Token,
		Password:        "weak",
		ConfirmPassword: "weak",
	})
	assert.Error(t, err)

	// proper redemption activates the account
	err = validate.Execute(ctx, identity.ValidateEmailMessage{
		Token:           created.Validation.Token,
		Password:        "Abc123!x",
		ConfirmPassword: "Abc123!x",
	})
	require.NoError(t, err)

	user, err := repo.Users().GetByIdentifier(ctx, "newuser@example.com")
	require.NoError(t, err)
	assert.True(t, user.Activated)
	assert.NoError(t, identity.ComparePasswordAndHash("Abc123!x", user.PasswordHash))

	// the token is gone
	err = validate.Execute(ctx, identity.ValidateEmailMessage{
		Token:           created.Validation.Token,
		Password:        "Abc123!x",
		ConfirmPassword: "Abc123!x",
	})
	assert.ErrorIs(t, err, identity.ErrActionTokenInvalid)
}

func TestPasswordResetFlow(t *testing.T) {
	_, repo := setupDB(t)
	ctx := context.Background()

	seedUser(t, repo, "pepe@example.com", "Old1!pass", identity.RoleBasic, true)

	var issued *identity.InitializePasswordResetResponse
	initialize := identity.NewInitializePasswordResetHandler(repo).WithBaseURL("http://localhost:8080")

	err := initialize.Execute(ctx, identity.InitializePasswordResetMessage{
		Email: "pepe@example.com",
		OnResponse: func(resp *identity.InitializePasswordResetResponse) {
			issued = resp
		},
	})
	require.NoError(t, err)
	require.NotNil(t, issued)
	require.NotNil(t, issued.Token)

	finalize := identity.NewFinalizePasswordResetHandler(repo)

	err = finalize.Execute(ctx, identity.FinalizePasswordResetMessage{
		Token:           issued.Token.Token,
		NewPassword:     "New2@pass",
		ConfirmPassword: "New2@pass",
	})
	require.NoError(t, err)

	user, err := repo.Users().GetByIdentifier(ctx, "pepe@example.com")
	require.NoError(t, err)
	assert.NoError(t, identity.ComparePasswordAndHash("New2@pass", user.PasswordHash))
	assert.Error(t, identity.ComparePasswordAndHash("Old1!pass", user.PasswordHash))

	// single use
	err = finalize.Execute(ctx, identity.FinalizePasswordResetMessage{
		Token:           issued.Token.Token,
		NewPassword:     "Other3#pass",
		ConfirmPassword: "Other3#pass",
	})
	assert.ErrorIs(t, err, identity.ErrActionTokenInvalid)
}

func TestForgotPasswordUnknownAddressSucceeds(t *testing.T) {
	_, repo := setupDB(t)

	called := false
	initialize := identity.NewInitializePasswordResetHandler(repo)

	err := initialize.Execute(context.Background(), identity.InitializePasswordResetMessage{
		Email: "nobody@example.com",
		OnResponse: func(resp *identity.InitializePasswordResetResponse) {
			called = true
			assert.Nil(t, resp.Token)
		},
	})
	assert.NoError(t, err)
	assert.True(t, called)
}

func TestReissueInvalidatesPriorResetLink(t *testing.T) {
	_, repo := setupDB(t)
	ctx := context.Background()

	seedUser(t, repo, "pepe@example.com", "Old1!pass", identity.RoleBasic, true)

	initialize := identity.NewInitializePasswordResetHandler(repo)

	var first, second *identity.ActionToken
	require.NoError(t, initialize.Execute(ctx, identity.InitializePasswordResetMessage{
		Email:      "pepe@example.com",
		OnResponse: func(resp *identity.InitializePasswordResetResponse) { first = resp.Token },
	}))
	require.NoError(t, initialize.Execute(ctx, identity.InitializePasswordResetMessage{
		Email:      "pepe@example.com",
		OnResponse: func(resp *identity.InitializePasswordResetResponse) { second = resp.Token },
	}))

	finalize := identity.NewFinalizePasswordResetHandler(repo)

	err := finalize.Execute(ctx, identity.FinalizePasswordResetMessage{
		Token:           first.Token,
		NewPassword:     "New2@pass",
		ConfirmPassword: "New2@pass",
	})
	assert.ErrorIs(t, err, identity.ErrActionTokenInvalid)

	err = finalize.Execute(ctx, identity.FinalizePasswordResetMessage{
		Token:           second.Token,
		NewPassword:     "New2@pass",
		ConfirmPassword: "New2@pass",
	})
	assert.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	_, repo := setupDB(t)
	ctx := context.Background()

	user := seedUser(t, repo, "pepe@example.com", "Old1!pass", identity.RoleBasic, true)

	change := identity.NewChangePasswordHandler(repo)

	// wrong current password
	err := change.Execute(ctx, identity.ChangePasswordMessage{
		Actor:           user,
		OldPassword:     "nope",
		NewPassword:     "New2@pass",
		ConfirmPassword: "New2@pass",
	})
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)

	// mismatched confirmation
	err = change.Execute(ctx, identity.ChangePasswordMessage{
		Actor:           user,
		OldPassword:     "Old1!pass",
		NewPassword:     "New2@pass",
		ConfirmPassword: "different",
	})
	assert.ErrorIs(t, err, identity.ErrPasswordMismatch)

	// keeping the same password is not a change
	err = change.Execute(ctx, identity.ChangePasswordMessage{
		Actor:           user,
		OldPassword:     "Old1!pass",
		NewPassword:     "Old1!pass",
		ConfirmPassword: "Old1!pass",
	})
	assert.ErrorIs(t, err, identity.ErrPasswordReuse)

	stored, err := repo.Users().GetByIdentifier(ctx, "pepe@example.com")
	require.NoError(t, err)
	assert.NoError(t, identity.ComparePasswordAndHash("Old1!pass", stored.PasswordHash))

	// success
	err = change.Execute(ctx, identity.ChangePasswordMessage{
		Actor:           user,
		OldPassword:     "Old1!pass",
		NewPassword:     "New2@pass",
		ConfirmPassword: "New2@pass",
	})
	require.NoError(t, err)

	stored, err = repo.Users().GetByIdentifier(ctx, "pepe@example.com")
	require.NoError(t, err)
	assert.NoError(t, identity.ComparePasswordAndHash("New2@pass", stored.PasswordHash))
}

func TestCreateAccountDuplicateUsername(t *testing.T) {
	_, repo := setupDB(t)
	ctx := context.Background()

	guard := identity.NewGuard()
	admin := seedUser(t, repo, "admin@example.com", "Adm1n!pass", identity.RoleAdmin, true)

	handler := identity.NewCreateAccountHandler(repo, guard)

	err := handler.Execute(ctx, identity.CreateAccountMessage{
		Actor:     admin,
		Username:  "admin@example.com",
		FirstName: "Dup",
		LastName:  "User",
		Role:      identity.RoleBasic,
	})
	assert.ErrorIs(t, err, identity.ErrDuplicateUsername)
}

func TestCreateAccountRequiresCompanyForBoundRoles(t *testing.T) {
	_, repo := setupDB(t)
	ctx := context.Background()

	guard := identity.NewGuard()
	admin := seedUser(t, repo, "admin@example.com", "Adm1n!pass", identity.RoleAdmin, true)

	handler := identity.NewCreateAccountHandler(repo, guard)

	err := handler.Execute(ctx, identity.CreateAccountMessage{
		Actor:     admin,
		Username:  "staff@example.com",
		FirstName: "Staff",
		LastName:  "User",
		Role:      identity.RoleCompanyAdmin,
	})
	assert.Error(t, err)

	company := seedCompany(t, repo, "ACME")
	err = handler.Execute(ctx, identity.CreateAccountMessage{
		Actor:     admin,
		Username:  "staff@example.com",
		FirstName: "Staff",
		LastName:  "User",
		Role:      identity.RoleCompanyAdmin,
		CompanyID: &company.ID,
	})
	require.NoError(t, err)

	staff, err := repo.Users().GetByIdentifier(ctx, "staff@example.com")
	require.NoError(t, err)
	require.NotNil(t, staff.CompanyID)
	assert.Equal(t, company.ID, *staff.CompanyID)
}

func TestCreateAccountUnknownCompany(t *testing.T) {
	_, repo := setupDB(t)
	ctx := context.Background()

	guard := identity.NewGuard()
	admin := seedUser(t, repo, "admin@example.com", "Adm1n!pass", identity.RoleAdmin, true)

	missing := uuid.New()
	handler := identity.NewCreateAccountHandler(repo, guard)

	err := handler.Execute(ctx, identity.CreateAccountMessage{
		Actor:     admin,
		Username:  "ghost@example.com",
		FirstName: "Ghost",
		LastName:  "User",
		Role:      identity.RoleCompanyClient,
		CompanyID: &missing,
	})
	assert.Error(t, err)
}
