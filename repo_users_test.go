package identity_test

import (
	"context"
	"testing"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	identity "github.com/licentra/identity"
)

func TestGetUserByIdentifier(t *testing.T) {
	_, repo := setupDB(t)
	ctx := context.Background()

	user := seedUser(t, repo, "lookup@example.com", "User1!pass", identity.RoleBasic, true)

	byUsername, err := repo.Users().GetByIdentifier(ctx, "lookup@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byUsername.ID)

	byID, err := repo.Users().GetByIdentifier(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, user.Username, byID.Username)

	_, err = repo.Users().GetByIdentifier(ctx, "ghost@example.com")
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestTrackLoginCounters(t *testing.T) {
	_, repo := setupDB(t)
	ctx := context.Background()

	user := seedUser(t, repo, "counter@example.com", "User1!pass", identity.RoleBasic, true)

	for i := 0; i < 3; i++ {
		current, err := repo.Users().GetByID(ctx, user.ID.String())
		require.NoError(t, err)
		require.NoError(t, repo.Users().TrackAttemptedLogin(ctx, current))
	}

	tracked, err := repo.Users().GetByID(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 3, tracked.LoginAttempts)
	require.NotNil(t, tracked.LoginAttemptAt)

	// a successful login clears the counter and stamps the login time
	require.NoError(t, repo.Users().TrackSuccessfulLogin(ctx, tracked))

	cleared, err := repo.Users().GetByID(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 0, cleared.LoginAttempts)
	assert.Nil(t, cleared.LoginAttemptAt)
	require.NotNil(t, cleared.LoggedInAt)
	assert.WithinDuration(t, time.Now(), *cleared.LoggedInAt, time.Minute)
}

func TestActivateSetsPasswordAndFlag(t *testing.T) {
	_, repo := setupDB(t)
	ctx := context.Background()

	user := seedUser(t, repo, "pending@example.com", "", identity.RoleBasic, false)

	hash, err := identity.HashPassword("Fresh1!pass")
	require.NoError(t, err)
	require.NoError(t, repo.Users().Activate(ctx, user.ID, hash))

	activated, err := repo.Users().GetByID(ctx, user.ID.String())
	require.NoError(t, err)
	assert.True(t, activated.Activated)
	assert.NoError(t, identity.ComparePasswordAndHash("Fresh1!pass", activated.PasswordHash))
}

func TestSearchScoped(t *testing.T) {
	_, repo := setupDB(t)
	ctx := context.Background()

	acme := seedCompany(t, repo, "Acme Licensing")
	globex := seedCompany(t, repo, "Globex")

	seedStaff(t, repo, "dev@acme.com", identity.RoleCompanyDevelopper, acme)
	seedClient(t, repo, "client@acme.com", acme)
	seedClient(t, repo, "client@globex.com", globex)
	seedUser(t, repo, "loner@example.com", "User1!pass", identity.RoleBasic, true)

	// unscoped search sees everything matching the pattern
	all, err := repo.Users().Search(ctx, "client", 50)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// company scope sees fixed staff and member clients, nothing else
	scoped, err := repo.Users().SearchScoped(ctx, "@", identity.Scope{CompanyIDs: []uuid.UUID{acme.ID}}, 50)
	require.NoError(t, err)
	require.Len(t, scoped, 2)
	assert.Equal(t, "client@acme.com", scoped[0].Username)
	assert.Equal(t, "dev@acme.com", scoped[1].Username)

	// empty company list yields nothing rather than everything
	none, err := repo.Users().SearchScoped(ctx, "@", identity.Scope{}, 50)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSearchMatchesNames(t *testing.T) {
	_, repo := setupDB(t)
	ctx := context.Background()

	user := seedUser(t, repo, "named@example.com", "User1!pass", identity.RoleBasic, true)
	user.FirstName = "Margaret"
	user.LastName = "Hamilton"
	_, err := repo.Users().Update(ctx, user)
	require.NoError(t, err)

	found, err := repo.Users().Search(ctx, "Hamil", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "named@example.com", found[0].Username)
}

func TestSoftDeleteHidesUser(t *testing.T) {
	db, repo := setupDB(t)
	ctx := context.Background()

	user := seedUser(t, repo, "gone@example.com", "User1!pass", identity.RoleBasic, true)

	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return repo.Users().SoftDeleteTx(ctx, tx, user.ID)
	})
	require.NoError(t, err)

	_, err = repo.Users().GetByIdentifier(ctx, "gone@example.com")
	assert.True(t, repository.IsRecordNotFound(err))

	// the row survives for audit, flagged with a deletion timestamp
	var count int
	count, err = db.NewSelect().
		Model((*identity.User)(nil)).
		WhereAllWithDeleted().
		Where("id = ?", user.ID).
		Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
