package identity_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	identity "github.com/licentra/identity"
)

func setupDB(t *testing.T) (*bun.DB, identity.RepositoryManager) {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	for _, model := range []any{
		(*identity.User)(nil),
		(*identity.Company)(nil),
		(*identity.Membership)(nil),
		(*identity.ActionToken)(nil),
	} {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}

	repo := identity.NewRepositoryManager(db)
	repo.MustValidate()

	return db, repo
}

func seedUser(t *testing.T, repo identity.RepositoryManager, username, password string, role identity.UserRole, activated bool) *identity.User {
	t.Helper()

	user := &identity.User{
		Username:  username,
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
		Activated: activated,
	}

	if password != "" {
		hash, err := identity.HashPassword(password)
		require.NoError(t, err)
		user.PasswordHash = hash
	}

	created, err := repo.Users().Create(context.Background(), user)
	require.NoError(t, err)

	return created
}

// seedStaff creates an activated user bound to a company through the
// fixed company column used by staff roles.
func seedStaff(t *testing.T, repo identity.RepositoryManager, username string, role identity.UserRole, company *identity.Company) *identity.User {
	t.Helper()

	user := seedUser(t, repo, username, "Staff1!pass", role, true)
	user.CompanyID = &company.ID

	updated, err := repo.Users().Update(context.Background(), user)
	require.NoError(t, err)
	updated.CompanyID = &company.ID

	return updated
}

// seedClient creates an activated client account with a membership row
// tying it to the given company.
func seedClient(t *testing.T, repo identity.RepositoryManager, username string, company *identity.Company) *identity.User {
	t.Helper()

	user := seedUser(t, repo, username, "Client1!pw", identity.RoleCompanyClient, true)

	err := repo.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := repo.Memberships().AddTx(ctx, tx, user.ID, company.ID)
		return err
	})
	require.NoError(t, err)

	user.Memberships = []*identity.Membership{{UserID: user.ID, CompanyID: company.ID}}

	return user
}

func seedCompany(t *testing.T, repo identity.RepositoryManager, name string) *identity.Company {
	t.Helper()

	company, err := repo.Companies().Create(context.Background(), &identity.Company{Name: name})
	require.NoError(t, err)

	return company
}
