package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")

	// ErrInvalidFormat indicates phone number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits and an optional leading +")

	// ErrInvalidLength indicates the phone number is outside the E.164 length range
	ErrInvalidLength = errors.New("phone number must have between 7 and 15 digits")

	// ErrEmptyEmail indicates email is empty
	ErrEmptyEmail = errors.New("email cannot be empty")

	// ErrInvalidEmail indicates email is not a plausible address
	ErrInvalidEmail = errors.New("email is not a valid address")
)

var (
	phoneRegex = regexp.MustCompile(`^\+?\d+$`)
	emailRegex = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
)

const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

// ContactValidator validates passenger contact details
type ContactValidator struct{}

// NewContactValidator creates a new contact validator instance
func NewContactValidator() *ContactValidator {
	return &ContactValidator{}
}

// ValidatePhone validates an international phone number.
// Accepts formats like +1 555 123 4567, (555) 123-4567 or 555.123.4567.
// Returns the sanitized number and an error if invalid.
func (v *ContactValidator) ValidatePhone(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.SanitizePhone(phone)
	if !phoneRegex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	digits := strings.TrimPrefix(sanitized, "+")
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return "", ErrInvalidLength
	}

	return sanitized, nil
}

// SanitizePhone removes common separators from a phone number
func (v *ContactValidator) SanitizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
	return replacer.Replace(phone)
}

// ValidateEmail checks that email looks like a deliverable address
func (v *ContactValidator) ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmptyEmail
	}
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// IsValidPhone is a convenience method that returns true if phone is valid
func (v *ContactValidator) IsValidPhone(phone string) bool {
	_, err := v.ValidatePhone(phone)
	return err == nil
}
