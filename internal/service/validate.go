package service

import (
	"github.com/rmoralesc/accounthub/internal/domain/user"
)

// Validation messages mirror the ones clients already display.

func validateName(name string) error {
	if name == "" {
		return invalid("Name is required")
	}

	if !user.ValidName(name) {
		return invalid("Name must contain only letters")
	}

	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return invalid("Email is required")
	}

	if !user.ValidEmail(email) {
		return invalid("Invalid email format")
	}

	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return invalid("Password is required")
	}

	if len(password) < 6 {
		return invalid("Password must be at least 6 characters")
	}

	return nil
}

// The reset flow asks for more than signup does (upper + lower + digit).
// The asymmetry is inherited behavior, kept pending a product decision.
func validateResetPassword(password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}

	var hasLower, hasUpper, hasDigit bool

	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}

	if !hasLower || !hasUpper || !hasDigit {
		return invalid("Password must contain at least one uppercase letter, one lowercase letter, and one number")
	}

	return nil
}
