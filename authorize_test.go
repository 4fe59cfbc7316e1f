package identity_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identity "github.com/licentra/identity"
)

func companyUser(role identity.UserRole, companyID uuid.UUID) *identity.User {
	u := &identity.User{ID: uuid.New(), Role: role}
	if u.HasFixedCompany() {
		u.CompanyID = &companyID
	} else {
		u.Memberships = []*identity.Membership{{UserID: u.ID, CompanyID: companyID}}
	}
	return u
}

func TestCanCreateAccount(t *testing.T) {
	companyA := uuid.New()
	companyB := uuid.New()

	admin := &identity.User{ID: uuid.New(), Role: identity.RoleAdmin}
	companyAdmin := companyUser(identity.RoleCompanyAdmin, companyA)
	commercial := companyUser(identity.RoleCompanyCommercial, companyA)
	basic := &identity.User{ID: uuid.New(), Role: identity.RoleBasic}

	guard := identity.NewGuard()

	// global admin creates anything anywhere
	assert.NoError(t, guard.CanCreateAccount(admin, identity.RoleAdmin, nil))
	assert.NoError(t, guard.CanCreateAccount(admin, identity.RoleCompanyAdmin, &companyB))

	// company admin creates any company role in its own company only
	assert.NoError(t, guard.CanCreateAccount(companyAdmin, identity.RoleCompanyClient, &companyA))
	assert.NoError(t, guard.CanCreateAccount(companyAdmin, identity.RoleCompanyDevelopper, &companyA))
	assert.NoError(t, guard.CanCreateAccount(companyAdmin, identity.RoleCompanyAdmin, &companyA))
	assert.ErrorIs(t, guard.CanCreateAccount(companyAdmin, identity.RoleCompanyClient, &companyB), identity.ErrForbidden)
	assert.ErrorIs(t, guard.CanCreateAccount(companyAdmin, identity.RoleCompanyAdmin, &companyB), identity.ErrForbidden)
	assert.ErrorIs(t, guard.CanCreateAccount(companyAdmin, identity.RoleAdmin, nil), identity.ErrForbidden)

	// commercial staff only creates clients
	assert.NoError(t, guard.CanCreateAccount(commercial, identity.RoleCompanyClient, &companyA))
	assert.ErrorIs(t, guard.CanCreateAccount(commercial, identity.RoleCompanyCommercial, &companyA), identity.ErrForbidden)

	// everyone else creates nothing
	assert.ErrorIs(t, guard.CanCreateAccount(basic, identity.RoleBasic, nil), identity.ErrForbidden)

	// unknown roles are rejected outright
	assert.ErrorIs(t, guard.CanCreateAccount(admin, "superuser", nil), identity.ErrForbidden)
}

func TestCanManageUser(t *testing.T) {
	companyA := uuid.New()
	companyB := uuid.New()

	admin := &identity.User{ID: uuid.New(), Role: identity.RoleAdmin}
	system := &identity.User{ID: uuid.New(), Role: identity.RoleAdmin, System: true}
	companyAdminA := companyUser(identity.RoleCompanyAdmin, companyA)
	clientA := companyUser(identity.RoleCompanyClient, companyA)
	clientB := companyUser(identity.RoleCompanyClient, companyB)
	basic := &identity.User{ID: uuid.New(), Role: identity.RoleBasic}

	guard := identity.NewGuard()

	// nobody touches the protected seed account
	assert.ErrorIs(t, guard.CanManageUser(admin, system), identity.ErrProtectedAccount)
	assert.ErrorIs(t, guard.CanManageUser(system, system), identity.ErrProtectedAccount)

	// self management is allowed
	assert.NoError(t, guard.CanManageUser(basic, basic))
	assert.NoError(t, guard.CanManageUser(clientA, clientA))

	// global admin manages everyone else
	assert.NoError(t, guard.CanManageUser(admin, clientB))
	assert.NoError(t, guard.CanManageUser(admin, companyAdminA))

	// company admin manages company bound accounts inside its company
	assert.NoError(t, guard.CanManageUser(companyAdminA, clientA))
	assert.ErrorIs(t, guard.CanManageUser(companyAdminA, clientB), identity.ErrForbidden)
	assert.ErrorIs(t, guard.CanManageUser(companyAdminA, admin), identity.ErrForbidden)
	assert.ErrorIs(t, guard.CanManageUser(companyAdminA, basic), identity.ErrForbidden)

	// peer company admins in the same company are fair game, the scope
	// is membership, not rank
	otherAdminA := companyUser(identity.RoleCompanyAdmin, companyA)
	assert.NoError(t, guard.CanManageUser(companyAdminA, otherAdminA))
	otherAdminB := companyUser(identity.RoleCompanyAdmin, companyB)
	assert.ErrorIs(t, guard.CanManageUser(companyAdminA, otherAdminB), identity.ErrForbidden)

	// clients manage nobody but themselves
	assert.ErrorIs(t, guard.CanManageUser(clientA, clientB), identity.ErrForbidden)
}

func TestCanChangeUsername(t *testing.T) {
	companyA := uuid.New()

	admin := &identity.User{ID: uuid.New(), Role: identity.RoleAdmin}
	system := &identity.User{ID: uuid.New(), Role: identity.RoleAdmin, System: true}
	companyAdminA := companyUser(identity.RoleCompanyAdmin, companyA)
	clientA := companyUser(identity.RoleCompanyClient, companyA)
	basic := &identity.User{ID: uuid.New(), Role: identity.RoleBasic}

	guard := identity.NewGuard()

	assert.NoError(t, guard.CanChangeUsername(admin, admin))
	assert.NoError(t, guard.CanChangeUsername(admin, clientA))
	assert.NoError(t, guard.CanChangeUsername(companyAdminA, clientA))
	assert.NoError(t, guard.CanChangeUsername(companyAdminA, companyAdminA))

	// renaming yourself is not a profile edit, clients and basic
	// accounts have no way in
	assert.ErrorIs(t, guard.CanChangeUsername(clientA, clientA), identity.ErrForbidden)
	assert.ErrorIs(t, guard.CanChangeUsername(basic, basic), identity.ErrForbidden)

	assert.ErrorIs(t, guard.CanChangeUsername(admin, system), identity.ErrProtectedAccount)
}

func TestSearchScope(t *testing.T) {
	companyA := uuid.New()

	guard := identity.NewGuard()

	scope, err := guard.SearchScope(&identity.User{Role: identity.RoleAdmin})
	require.NoError(t, err)
	assert.True(t, scope.All)

	scope, err = guard.SearchScope(companyUser(identity.RoleCompanyAdmin, companyA))
	require.NoError(t, err)
	assert.False(t, scope.All)
	assert.Equal(t, []uuid.UUID{companyA}, scope.CompanyIDs)

	scope, err = guard.SearchScope(&identity.User{Role: identity.RoleBasic})
	require.NoError(t, err)
	assert.True(t, scope.SelfOnly)

	// company admin with no company binding gets nothing
	_, err = guard.SearchScope(&identity.User{Role: identity.RoleCompanyAdmin})
	assert.ErrorIs(t, err, identity.ErrForbidden)
}

func TestScopeAllows(t *testing.T) {
	companyA := uuid.New()
	companyB := uuid.New()

	clientA := companyUser(identity.RoleCompanyClient, companyA)
	clientB := companyUser(identity.RoleCompanyClient, companyB)

	all := identity.Scope{All: true}
	assert.True(t, all.Allows(clientA))
	assert.True(t, all.Allows(clientB))

	scoped := identity.Scope{CompanyIDs: []uuid.UUID{companyA}}
	assert.True(t, scoped.Allows(clientA))
	assert.False(t, scoped.Allows(clientB))

	self := identity.Scope{SelfOnly: true}
	assert.False(t, self.Allows(clientA))
}

func TestCanManageCompanyAndMembership(t *testing.T) {
	companyA := uuid.New()
	companyB := uuid.New()

	admin := &identity.User{ID: uuid.New(), Role: identity.RoleAdmin}
	companyAdminA := companyUser(identity.RoleCompanyAdmin, companyA)
	clientA := companyUser(identity.RoleCompanyClient, companyA)

	guard := identity.NewGuard()

	assert.NoError(t, guard.CanManageCompany(admin, nil))
	assert.NoError(t, guard.CanManageCompany(admin, &companyA))
	assert.NoError(t, guard.CanManageCompany(companyAdminA, &companyA))
	assert.ErrorIs(t, guard.CanManageCompany(companyAdminA, &companyB), identity.ErrForbidden)
	assert.ErrorIs(t, guard.CanManageCompany(companyAdminA, nil), identity.ErrForbidden)
	assert.ErrorIs(t, guard.CanManageCompany(clientA, &companyA), identity.ErrForbidden)

	assert.NoError(t, guard.CanManageMembership(admin, companyB))
	assert.NoError(t, guard.CanManageMembership(companyAdminA, companyA))
	assert.ErrorIs(t, guard.CanManageMembership(companyAdminA, companyB), identity.ErrForbidden)
	assert.ErrorIs(t, guard.CanManageMembership(clientA, companyA), identity.ErrForbidden)

	// staff may create clients but never move them between companies
	commercialA := companyUser(identity.RoleCompanyCommercial, companyA)
	developperA := companyUser(identity.RoleCompanyDevelopper, companyA)
	assert.ErrorIs(t, guard.CanManageMembership(commercialA, companyA), identity.ErrForbidden)
	assert.ErrorIs(t, guard.CanManageMembership(developperA, companyA), identity.ErrForbidden)
}
