package identity

import (
	"context"
	"time"
)

// Identity is the minimal view of an authenticated principal that the
// token layer needs. Concrete users live behind an IdentityProvider.
type Identity interface {
	ID() string
	Username() string
	FirstName() string
	LastName() string
	Role() UserRole
}

// IdentityProvider resolves and verifies identities against a backing
// store.
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// Session is the authenticated state decoded from a bearer token. The
// accessors deliberately avoid the Get prefix so they cannot shadow
// the jwt.Claims methods promoted from jwt.RegisteredClaims.
type Session interface {
	UserID() string
	Role() UserRole
	Audience() []string
	Issuer() string
	IssuedAt() time.Time
	Expires() time.Time
	ClaimsMetadata() map[string]any
}

// Authenticator is the session lifecycle: mint on login, decode on
// every request, re-mint when the advisory rotation window opens.
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (string, error)
	SessionFromToken(token string) (Session, error)
	IdentityFromSession(ctx context.Context, session Session) (Identity, error)
	RefreshIfNeeded(session Session) (string, bool, error)
}

// Config is the read surface the token and HTTP layers need.
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int
	GetRotationThreshold() float64
	GetIssuer() string
	GetAudience() []string
}
