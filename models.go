package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleBasic is an authenticated user with no administrative rights
	RoleBasic UserRole = "basic"
	// RoleCompanyClient is a self-service end user, may belong to many companies
	RoleCompanyClient UserRole = "company_client"
	// RoleCompanyCommercial may create client accounts for its company
	RoleCompanyCommercial UserRole = "company_commercial"
	// RoleCompanyDevelopper may create client accounts for its company
	RoleCompanyDevelopper UserRole = "company_developper"
	// RoleCompanyAdmin manages accounts scoped to its company
	RoleCompanyAdmin UserRole = "company_admin"
	// RoleAdmin is the global administrator, not bound to any company
	RoleAdmin UserRole = "admin"
)

// User is the user model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role           UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	FirstName      string     `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName       string     `bun:"last_name,notnull" json:"last_name,omitempty"`
	Username       string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Phone          string     `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"password_hash,omitempty"`
	Activated      bool       `bun:"activated" json:"activated,omitempty"`
	System         bool       `bun:"is_system" json:"is_system,omitempty"`
	CompanyID      *uuid.UUID `bun:"company_id,nullzero,type:uuid" json:"company_id,omitempty"`
	LoginAttempts  int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`

	Memberships []*Membership `bun:"rel:has-many,join:id=user_id" json:"memberships,omitempty"`
}

// HasFixedCompany reports whether the role carries a single company
// assigned at creation time. Clients are the exception, they hold
// explicit membership rows instead.
func (u *User) HasFixedCompany() bool {
	switch u.Role {
	case RoleCompanyAdmin, RoleCompanyCommercial, RoleCompanyDevelopper:
		return true
	default:
		return false
	}
}

// CompanyIDs returns the set of companies the user belongs to,
// regardless of how the association is stored.
func (u *User) CompanyIDs() []uuid.UUID {
	if u.HasFixedCompany() {
		if u.CompanyID == nil {
			return nil
		}
		return []uuid.UUID{*u.CompanyID}
	}

	ids := make([]uuid.UUID, 0, len(u.Memberships))
	for _, m := range u.Memberships {
		if m != nil {
			ids = append(ids, m.CompanyID)
		}
	}
	return ids
}

// BelongsTo reports whether the user has any association with the company.
func (u *User) BelongsTo(companyID uuid.UUID) bool {
	for _, id := range u.CompanyIDs() {
		if id == companyID {
			return true
		}
	}
	return false
}

// PublicUser is the API-safe projection of a user record.
type PublicUser struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Phone     string     `json:"phone_number,omitempty"`
	Role      UserRole   `json:"user_role"`
	Activated bool       `json:"activated"`
	CompanyID *uuid.UUID `json:"company_id,omitempty"`
}

// Public strips credentials and bookkeeping fields for API responses.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Role:      u.Role,
		Activated: u.Activated,
		CompanyID: u.CompanyID,
	}
}

// Company is a tenant in the license catalog
type Company struct {
	bun.BaseModel `bun:"table:companies,alias:cmp"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"company_name,notnull,unique" json:"company_name,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Membership associates a client user with a company. Only
// company_client users may carry more than one membership row.
type Membership struct {
	bun.BaseModel `bun:"table:memberships,alias:mbr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	CompanyID     uuid.UUID  `bun:"company_id,notnull,type:uuid" json:"company_id,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`

	User    *User    `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Company *Company `bun:"rel:belongs-to,join:company_id=id" json:"company,omitempty"`
}

// TokenPurpose tags an action token with the single flow it may redeem.
type TokenPurpose = string

const (
	// PurposeValidateEmail activates a freshly created account and sets
	// its first password
	PurposeValidateEmail TokenPurpose = "validate_email"
	// PurposeResetPassword redeems a forgot-password request
	PurposeResetPassword TokenPurpose = "reset_password"
)

// ActionToken is a persisted, single-use, time-bounded token used for
// email validation and password reset flows. Once consumed or expired
// it can never be redeemed again.
type ActionToken struct {
	bun.BaseModel `bun:"table:action_tokens,alias:atk"`
	ID            uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Token         string       `bun:"token,notnull,unique" json:"token,omitempty"`
	UserID        uuid.UUID    `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Purpose       TokenPurpose `bun:"purpose,notnull" json:"purpose,omitempty"`
	Consumed      bool         `bun:"consumed" json:"consumed,omitempty"`
	ConsumedAt    *time.Time   `bun:"consumed_at,nullzero" json:"consumed_at,omitempty"`
	ExpiresAt     time.Time    `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	CreatedAt     *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`

	User *User `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
}

// Expired reports whether the token is past its expiry instant.
func (t *ActionToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Redeemable reports whether the token can still be consumed.
func (t *ActionToken) Redeemable(now time.Time) bool {
	return !t.Consumed && !t.Expired(now)
}
