package identity

import (
	"context"
	"reflect"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Auther is the concrete Authenticator. It mints short-lived bearer
// tokens and rotates them in place while a principal stays active.
type Auther struct {
	provider          IdentityProvider
	signingKey        []byte
	tokenExpiration   int
	rotationThreshold float64
	issuer            string
	audience          []string
	logger            Logger
	tokenService      TokenService
	activitySink      ActivitySink
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, opts Config) *Auther {
	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetTokenExpiration(),
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)

	return &Auther{
		provider:          provider,
		signingKey:        []byte(opts.GetSigningKey()),
		tokenExpiration:   opts.GetTokenExpiration(),
		rotationThreshold: opts.GetRotationThreshold(),
		audience:          opts.GetAudience(),
		issuer:            opts.GetIssuer(),
		logger:            defLogger{},
		tokenService:      tokenService,
		activitySink:      noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	s.tokenService = NewTokenService(
		s.signingKey,
		s.tokenExpiration,
		s.issuer,
		s.audience,
		logger,
	)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies credentials and mints a fresh bearer token.
func (s *Auther) Login(ctx context.Context, identifier, password string) (string, error) {
	var err error
	var identity Identity

	if identity, err = s.provider.VerifyIdentity(ctx, identifier, password); err != nil {
		s.logger.Error("Login verify identity error: %v", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return "", err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      ErrUnableToFindUser.Error(),
		})
		return "", ErrUnableToFindUser
	}

	token, err := s.tokenService.Generate(identity)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromIdentity(identity), identity.ID(), map[string]any{
		"identifier": identifier,
	})

	return token, nil
}

// SessionFromToken decodes and validates a raw bearer token.
func (s *Auther) SessionFromToken(raw string) (Session, error) {
	claims, err := s.tokenService.Validate(raw)
	if err != nil {
		s.logger.Debug("SessionFromToken validation failed: %v", err)
		return nil, err
	}

	return claims, nil
}

// IdentityFromSession resolves the session back to a live identity.
func (s *Auther) IdentityFromSession(ctx context.Context, session Session) (Identity, error) {
	identity, err := s.provider.FindIdentityByIdentifier(ctx, session.UserID())
	if err != nil {
		s.logger.Error("IdentityFromSession find identity by identifier: %v", err)
		return nil, err
	}

	return identity, nil
}

// RefreshIfNeeded re-mints the session token when its remaining
// lifetime falls below the rotation threshold. The returned bool
// reports whether a new token was produced. The old token stays valid
// until its own expiry, rotation is advisory.
func (s *Auther) RefreshIfNeeded(session Session) (string, bool, error) {
	if session == nil {
		return "", false, ErrUnableToDecodeSession
	}

	remaining := time.Until(session.Expires())
	lifetime := time.Duration(s.tokenExpiration) * time.Minute
	if remaining <= 0 || float64(remaining) > s.rotationThreshold*float64(lifetime) {
		return "", false, nil
	}

	now := time.Now()

	var aud jwt.ClaimStrings
	if len(s.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(s.audience))
		copy(aud, s.audience)
	}

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   session.UserID(),
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
		UID:      session.UserID(),
		UserRole: session.Role(),
		Metadata: session.ClaimsMetadata(),
	}

	ensureTokenID(&claims.RegisteredClaims)

	token, err := s.tokenService.SignClaims(claims)
	if err != nil {
		s.logger.Error("RefreshIfNeeded sign claims: %v", err)
		return "", false, err
	}

	s.emitAuthEvent(context.Background(), ActivityEventTokenRotated, ActorRef{ID: session.UserID(), Type: "user"}, session.UserID(), nil)

	return token, true, nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromIdentity(identity Identity) ActorRef {
	if identity == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   identity.ID(),
		Type: "user",
	}
}
