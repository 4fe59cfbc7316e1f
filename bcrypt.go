package identity

import (
	"unicode"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword derives a bcrypt hash from the given plain text.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", WrapInternal(err, "unable to hash password")
	}

	return string(hash), nil
}

// ComparePasswordAndHash checks a plain text password against a stored
// bcrypt hash.
func ComparePasswordAndHash(password, hash string) error {
	if password == "" || hash == "" {
		return ErrNoEmptyString
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if err == bcrypt.ErrMismatchedHashAndPassword {
			return ErrMismatchedHashAndPassword
		}
		return WrapInternal(err, "unable to compare password hash")
	}

	return nil
}

// ValidatePasswordPolicy enforces the account password rules: at least
// seven characters with an uppercase letter, a lowercase letter, a
// digit, and a symbol.
func ValidatePasswordPolicy(password string) error {
	var upper, lower, digit, symbol bool
	count := 0
	for _, r := range password {
		count++
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}

	if count >= 7 && upper && lower && digit && symbol {
		return nil
	}

	return goerrors.New(
		"Password must be at least 7 characters long and contain an uppercase letter, a lowercase letter, a digit, and a symbol.",
		goerrors.CategoryValidation,
	).WithTextCode(TextCodePasswordPolicy)
}
