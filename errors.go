package identity

import (
	goerrors "github.com/goliatone/go-errors"
)

// Text codes carried on rich errors so API clients can branch on a
// stable identifier instead of the message.
const (
	TextCodeInvalidCreds      = "INVALID_CREDENTIALS"
	TextCodeInvalidUser       = "INVALID_USER"
	TextCodeNotActivated      = "EMAIL_NOT_VALIDATED"
	TextCodeTooManyAttempts   = "TOO_MANY_LOGIN_ATTEMPTS"
	TextCodeTokenInvalid      = "TOKEN_INVALID"
	TextCodeTokenExpired      = "TOKEN_EXPIRED"
	TextCodePasswordMismatch  = "PASSWORDS_DO_NOT_MATCH"
	TextCodePasswordReuse     = "PASSWORD_REUSED"
	TextCodePasswordPolicy    = "PASSWORD_POLICY"
	TextCodeEmptyPassword     = "EMPTY_PASSWORD"
	TextCodeForbidden         = "FORBIDDEN"
	TextCodeProtectedAccount  = "PROTECTED_ACCOUNT"
	TextCodeDuplicateUsername = "DUPLICATE_USERNAME"
	TextCodeDuplicateCompany  = "DUPLICATE_COMPANY"
)

var (
	// ErrUnableToFindUser is returned when no account matches the
	// presented identifier, or the account was soft deleted.
	ErrUnableToFindUser = goerrors.New("Invalid user.", goerrors.CategoryAuth).
				WithTextCode(TextCodeInvalidUser).
				WithCode(goerrors.CodeUnauthorized)

	// ErrMismatchedHashAndPassword is returned when the presented
	// password does not match the stored hash.
	ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
					WithTextCode(TextCodeInvalidCreds).
					WithCode(goerrors.CodeUnauthorized)

	// ErrInvalidCredentials hides whether the username or the password
	// was wrong.
	ErrInvalidCredentials = goerrors.New("Invalid username or password.", goerrors.CategoryAuth).
				WithTextCode(TextCodeInvalidCreds).
				WithCode(goerrors.CodeUnauthorized)

	// ErrNotActivated is returned when an account exists but its email
	// validation token was never redeemed.
	ErrNotActivated = goerrors.New("Please validate your email address first.", goerrors.CategoryAuth).
			WithTextCode(TextCodeNotActivated).
			WithCode(goerrors.CodeUnauthorized)

	// ErrTooManyLoginAttempts is returned once the login throttle trips.
	ErrTooManyLoginAttempts = goerrors.New("too many login attempts, account locked", goerrors.CategoryAuth).
				WithTextCode(TextCodeTooManyAttempts).
				WithCode(goerrors.CodeUnauthorized)

	// ErrTokenExpired is returned when a session token is structurally
	// valid but past its expiry.
	ErrTokenExpired = goerrors.New("token expired", goerrors.CategoryAuth).
			WithTextCode(TextCodeTokenExpired).
			WithCode(goerrors.CodeUnauthorized)

	// ErrTokenMalformed covers every other session token failure:
	// bad signature, wrong issuer, garbage input.
	ErrTokenMalformed = goerrors.New("token invalid", goerrors.CategoryAuth).
			WithTextCode(TextCodeTokenInvalid).
			WithCode(goerrors.CodeUnauthorized)

	// ErrUnableToDecodeSession is returned when a parsed token carries
	// claims of an unexpected shape.
	ErrUnableToDecodeSession = goerrors.New("unable to decode session claims", goerrors.CategoryAuth).
					WithTextCode(TextCodeTokenInvalid).
					WithCode(goerrors.CodeUnauthorized)

	// ErrActionTokenInvalid deliberately does not distinguish unknown,
	// expired, consumed, and wrong purpose tokens.
	ErrActionTokenInvalid = goerrors.New("invalid or expired token", goerrors.CategoryAuth).
				WithTextCode(TextCodeTokenInvalid).
				WithCode(goerrors.CodeUnauthorized)

	// ErrPasswordMismatch is returned when a confirmation field does
	// not repeat the new password.
	ErrPasswordMismatch = goerrors.New("Passwords do not match.", goerrors.CategoryValidation).
				WithTextCode(TextCodePasswordMismatch)

	// ErrPasswordReuse is returned when a password change presents the
	// password already in place.
	ErrPasswordReuse = goerrors.New("New password must be different from the old password.", goerrors.CategoryValidation).
				WithTextCode(TextCodePasswordReuse)

	// ErrNoEmptyString is returned for blank required string inputs.
	ErrNoEmptyString = goerrors.New("value cannot be an empty string", goerrors.CategoryValidation).
			WithTextCode(TextCodeEmptyPassword)

	// ErrForbidden is the generic authorization failure.
	ErrForbidden = goerrors.New("operation not permitted", goerrors.CategoryAuthz).
			WithTextCode(TextCodeForbidden)

	// ErrProtectedAccount guards the seeded super admin from
	// modification or deletion.
	ErrProtectedAccount = goerrors.New("account is protected", goerrors.CategoryAuthz).
				WithTextCode(TextCodeProtectedAccount)

	// ErrDuplicateUsername is returned when the username is taken.
	ErrDuplicateUsername = goerrors.New("Username already exists.", goerrors.CategoryConflict).
				WithTextCode(TextCodeDuplicateUsername)

	// ErrDuplicateCompany is returned when the company name is taken.
	ErrDuplicateCompany = goerrors.New("Company already exists.", goerrors.CategoryConflict).
				WithTextCode(TextCodeDuplicateCompany)
)

// WrapInternal tags unexpected failures so the HTTP layer renders a
// generic 500 without leaking driver details.
func WrapInternal(err error, msg string) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg).
		WithCode(goerrors.CodeInternal)
}
