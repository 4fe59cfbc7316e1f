package identity_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	identity "github.com/licentra/identity"
)

// MockIdentityProvider implements identity.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (identity.Identity, error) {
	args := m.Called(ctx, identifier, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(identity.Identity), args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (identity.Identity, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(identity.Identity), args.Error(1)
}

// TestIdentity is a plain identity value for tests
type TestIdentity struct {
	id        string
	username  string
	firstName string
	lastName  string
	role      identity.UserRole
}

func (t TestIdentity) ID() string              { return t.id }
func (t TestIdentity) Username() string        { return t.username }
func (t TestIdentity) FirstName() string       { return t.firstName }
func (t TestIdentity) LastName() string        { return t.lastName }
func (t TestIdentity) Role() identity.UserRole { return t.role }

type mockConfig struct {
	signingKey        string
	tokenExpiration   int
	rotationThreshold float64
	issuer            string
	audience          []string
}

func newMockConfig() *mockConfig {
	return &mockConfig{
		signingKey:        "test-signing-key",
		tokenExpiration:   20,
		rotationThreshold: 0.5,
		issuer:            "identity-test",
		audience:          []string{"test"},
	}
}

func (c *mockConfig) GetSigningKey() string         { return c.signingKey }
func (c *mockConfig) GetSigningMethod() string      { return "HS256" }
func (c *mockConfig) GetContextKey() string         { return "user" }
func (c *mockConfig) GetTokenExpiration() int       { return c.tokenExpiration }
func (c *mockConfig) GetRotationThreshold() float64 { return c.rotationThreshold }
func (c *mockConfig) GetIssuer() string             { return c.issuer }
func (c *mockConfig) GetAudience() []string         { return c.audience }

// MockUserTracker implements identity.UserTracker
type MockUserTracker struct {
	mock.Mock
}

func (m *MockUserTracker) GetByIdentifier(ctx context.Context, identifier string) (*identity.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserTracker) TrackAttemptedLogin(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserTracker) TrackSuccessfulLogin(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

type capturingSink struct {
	events []identity.ActivityEvent
}

func (c *capturingSink) Record(_ context.Context, evt identity.ActivityEvent) error {
	c.events = append(c.events, evt)
	return nil
}

type capturingMailer struct {
	mails []identity.Mail
}

func (c *capturingMailer) Send(_ context.Context, mail identity.Mail) error {
	c.mails = append(c.mails, mail)
	return nil
}
