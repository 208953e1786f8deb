package auth

import (
	"fmt"
	"unicode"

	"poker-lab/errors"
)

const minPasswordLen = 8

// ValidateUserName accepts letters, digits and underscores. Length bounds
// live on the request struct's validator tags.
func ValidateUserName(name string) error {
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return fmt.Errorf("%w: username contains invalid character %q", errors.ErrMalformed, r)
		}
	}
	return nil
}

// ValidatePassword enforces the complexity floor: at least 8 characters
// with an upper case letter, a lower case letter and a digit.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLen {
		return errors.ErrInvalidPassword
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return errors.ErrInvalidPassword
	}
	return nil
}
