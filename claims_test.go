package identity_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	identity "github.com/licentra/identity"
)

func TestClaimsSessionAccessors(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	exp := now.Add(20 * time.Minute)

	claims := &identity.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "identity",
			Subject:   "subject-id",
			Audience:  jwt.ClaimStrings{"api"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UID:      "user-id",
		UserRole: identity.RoleCompanyAdmin,
		Metadata: map[string]any{"tenant": "acme"},
	}

	assert.Equal(t, "user-id", claims.UserID())
	assert.Equal(t, identity.RoleCompanyAdmin, claims.Role())
	assert.Equal(t, "identity", claims.Issuer())
	assert.Equal(t, []string{"api"}, claims.Audience())
	assert.Equal(t, now, claims.IssuedAt())
	assert.Equal(t, exp, claims.Expires())
	assert.Equal(t, "acme", claims.ClaimsMetadata()["tenant"])
}

func TestClaimsFallBackToSubject(t *testing.T) {
	claims := &identity.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "subject-id"},
	}

	assert.Equal(t, "subject-id", claims.UserID())
	assert.True(t, claims.IssuedAt().IsZero())
	assert.True(t, claims.Expires().IsZero())
}

func TestClaimsRoleChecks(t *testing.T) {
	claims := &identity.JWTClaims{UserRole: identity.RoleCompanyAdmin}

	assert.True(t, claims.HasRole(identity.RoleCompanyAdmin))
	assert.False(t, claims.HasRole(identity.RoleAdmin))

	assert.True(t, claims.IsAtLeast(identity.RoleCompanyDevelopper))
	assert.True(t, claims.IsAtLeast(identity.RoleCompanyAdmin))
	assert.False(t, claims.IsAtLeast(identity.RoleAdmin))
}
