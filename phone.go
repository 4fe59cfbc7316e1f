package identity

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// NormalizePhone parses an international phone number and returns it in
// E.164 form. Empty input passes through untouched, numbers must carry
// their country prefix since accounts are not region scoped.
func NormalizePhone(value string) (string, error) {
	if value == "" {
		return "", nil
	}

	parsed, err := phonenumbers.Parse(value, "")
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryValidation, "invalid phone number").
			WithMetadata(map[string]any{"phone_number": value})
	}

	if !phonenumbers.IsValidNumber(parsed) {
		return "", goerrors.New("invalid phone number", goerrors.CategoryValidation).
			WithMetadata(map[string]any{"phone_number": value})
	}

	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

// ValidPhone is a validation rule for optional phone fields.
func ValidPhone(value any) error {
	str, _ := value.(string)
	_, err := NormalizePhone(str)
	return err
}
