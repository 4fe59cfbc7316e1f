package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims is the session payload carried inside the bearer token.
type JWTClaims struct {
	jwt.RegisteredClaims
	UID      string         `json:"uid,omitempty"`
	UserRole UserRole       `json:"role,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

var (
	_ Session    = (*JWTClaims)(nil)
	_ jwt.Claims = (*JWTClaims)(nil)
)

// UserID returns the user ID the token was minted for.
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Role returns the role frozen into the token at mint time.
func (c *JWTClaims) Role() UserRole {
	return c.UserRole
}

// Audience returns the audience claim.
func (c *JWTClaims) Audience() []string {
	return c.RegisteredClaims.Audience
}

// Issuer returns the issuer claim.
func (c *JWTClaims) Issuer() string {
	return c.RegisteredClaims.Issuer
}

// IssuedAt returns the mint instant, zero when absent.
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// Expires returns the expiry instant, zero when absent.
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// ClaimsMetadata exposes the metadata extension payload.
func (c *JWTClaims) ClaimsMetadata() map[string]any {
	return c.Metadata
}

// HasRole checks whether the session carries the given role.
func (c *JWTClaims) HasRole(role UserRole) bool {
	return c.UserRole == role
}

// IsAtLeast checks whether the session role ranks at or above minRole.
func (c *JWTClaims) IsAtLeast(minRole UserRole) bool {
	return RoleRank(c.UserRole) >= RoleRank(minRole)
}
