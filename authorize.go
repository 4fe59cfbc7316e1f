package identity

import (
	"github.com/google/uuid"
)

// Scope bounds a query or mutation to what the actor may see.
type Scope struct {
	All        bool
	SelfOnly   bool
	CompanyIDs []uuid.UUID
}

// Allows reports whether a user inside the given companies is visible
// under this scope.
func (s Scope) Allows(target *User) bool {
	if s.All {
		return true
	}

	if s.SelfOnly {
		return false
	}

	for _, id := range s.CompanyIDs {
		if target.BelongsTo(id) {
			return true
		}
	}

	return false
}

// Guard evaluates every administrative decision in one place. Actors
// are full user records so company bindings and the protected flag are
// always available.
type Guard struct {
	logger Logger
}

func NewGuard() *Guard {
	return &Guard{logger: defLogger{}}
}

func (g *Guard) WithLogger(l Logger) *Guard {
	if l != nil {
		g.logger = l
	}
	return g
}

// CanCreateAccount checks whether the actor may create an account with
// the given role, bound to the given company.
func (g *Guard) CanCreateAccount(actor *User, newRole UserRole, companyID *uuid.UUID) error {
	if !ValidRole(newRole) {
		return ErrForbidden
	}

	switch actor.Role {
	case RoleAdmin:
		return nil
	case RoleCompanyAdmin:
		switch newRole {
		case RoleCompanyAdmin, RoleCompanyClient, RoleCompanyCommercial, RoleCompanyDevelopper:
			return g.requireOwnCompany(actor, companyID)
		}
		return ErrForbidden
	case RoleCompanyCommercial, RoleCompanyDevelopper:
		if newRole == RoleCompanyClient {
			return g.requireOwnCompany(actor, companyID)
		}
		return ErrForbidden
	default:
		return ErrForbidden
	}
}

// CanManageUser checks whether the actor may update or delete the
// target account. The protected seed account is immutable to everyone,
// including itself through administrative surfaces. Acting on your own
// account is always allowed here; that covers profile edits and
// self-deletion.
func (g *Guard) CanManageUser(actor, target *User) error {
	if target.System {
		return ErrProtectedAccount
	}

	if actor.ID == target.ID {
		return nil
	}

	return g.canAdminister(actor, target)
}

// CanChangeUsername gates login identifier changes. Unlike profile
// fields, renaming goes through the administrative rules even for the
// actor's own account, so clients and basic users cannot rename
// themselves.
func (g *Guard) CanChangeUsername(actor, target *User) error {
	if target.System {
		return ErrProtectedAccount
	}

	return g.canAdminister(actor, target)
}

// canAdminister holds the shared role rules: global admins act on
// anyone, company admins act on company bound accounts inside their own
// company, peers included, and never on global admins.
func (g *Guard) canAdminister(actor, target *User) error {
	switch actor.Role {
	case RoleAdmin:
		return nil
	case RoleCompanyAdmin:
		if target.Role == RoleAdmin || !CompanyBound(target.Role) {
			return ErrForbidden
		}
		if !g.sharesCompany(actor, target) {
			return ErrForbidden
		}
		return nil
	default:
		return ErrForbidden
	}
}

// CanAssignRole checks a role change on the target.
func (g *Guard) CanAssignRole(actor, target *User, newRole UserRole) error {
	if err := g.CanManageUser(actor, target); err != nil {
		return err
	}

	if !ValidRole(newRole) {
		return ErrForbidden
	}

	switch actor.Role {
	case RoleAdmin:
		return nil
	case RoleCompanyAdmin:
		switch newRole {
		case RoleCompanyClient, RoleCompanyCommercial, RoleCompanyDevelopper:
			return nil
		}
		return ErrForbidden
	default:
		return ErrForbidden
	}
}

// SearchScope returns the visibility window for user searches.
func (g *Guard) SearchScope(actor *User) (Scope, error) {
	switch actor.Role {
	case RoleAdmin:
		return Scope{All: true}, nil
	case RoleCompanyAdmin, RoleCompanyCommercial, RoleCompanyDevelopper:
		ids := actor.CompanyIDs()
		if len(ids) == 0 {
			return Scope{}, ErrForbidden
		}
		return Scope{CompanyIDs: ids}, nil
	default:
		return Scope{SelfOnly: true}, nil
	}
}

// CanManageCompany checks company create, update, and delete.
func (g *Guard) CanManageCompany(actor *User, companyID *uuid.UUID) error {
	switch actor.Role {
	case RoleAdmin:
		return nil
	case RoleCompanyAdmin:
		if companyID == nil {
			// creating new tenants is reserved for global admins
			return ErrForbidden
		}
		return g.requireOwnCompany(actor, companyID)
	default:
		return ErrForbidden
	}
}

// CanManageMembership checks adding or removing a client from a
// company. Commercial and developper accounts may create clients but
// never administer existing ones, so membership changes stay with
// admins.
func (g *Guard) CanManageMembership(actor *User, companyID uuid.UUID) error {
	switch actor.Role {
	case RoleAdmin:
		return nil
	case RoleCompanyAdmin:
		return g.requireOwnCompany(actor, &companyID)
	default:
		return ErrForbidden
	}
}

func (g *Guard) requireOwnCompany(actor *User, companyID *uuid.UUID) error {
	if companyID == nil {
		return ErrForbidden
	}

	if !actor.BelongsTo(*companyID) {
		g.logger.Debug("actor %s denied outside company %s", actor.ID, companyID)
		return ErrForbidden
	}

	return nil
}

func (g *Guard) sharesCompany(actor, target *User) bool {
	for _, id := range actor.CompanyIDs() {
		if target.BelongsTo(id) {
			return true
		}
	}
	return false
}
