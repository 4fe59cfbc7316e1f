package identity

// roleRank orders roles by authority. Higher ranks may act on lower
// ranked accounts, never on peers or above.
var roleRank = map[UserRole]int{
	RoleBasic:             0,
	RoleCompanyClient:     1,
	RoleCompanyCommercial: 2,
	RoleCompanyDevelopper: 2,
	RoleCompanyAdmin:      3,
	RoleAdmin:             4,
}

// ValidRole reports whether the given string names a known role.
func ValidRole(role UserRole) bool {
	_, ok := roleRank[role]
	return ok
}

// RoleRank returns the authority rank for a role, -1 for unknown roles.
func RoleRank(role UserRole) int {
	if rank, ok := roleRank[role]; ok {
		return rank
	}
	return -1
}

// Outranks reports whether role a sits strictly above role b.
func Outranks(a, b UserRole) bool {
	return RoleRank(a) > RoleRank(b)
}

// CompanyBound reports whether a role is always scoped to a company.
func CompanyBound(role UserRole) bool {
	switch role {
	case RoleCompanyAdmin, RoleCompanyCommercial, RoleCompanyDevelopper, RoleCompanyClient:
		return true
	default:
		return false
	}
}

// Roles returns every assignable role.
func Roles() []UserRole {
	return []UserRole{
		RoleBasic,
		RoleCompanyClient,
		RoleCompanyCommercial,
		RoleCompanyDevelopper,
		RoleCompanyAdmin,
		RoleAdmin,
	}
}
