package auth

import (
	"regexp"

	"github.com/parlabot/parlabot/pkg/domain"
)

// usernamePattern: 3-80 characters, alphanumeric/underscore/hyphen,
// must start with an alphanumeric character.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{2,79}$`)

// ValidateUsername validates a username against the allowed format.
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return domain.ErrInvalidUsername
	}
	return nil
}

// PasswordPolicy defines minimum password requirements.
type PasswordPolicy struct {
	MinLength int
}

// DefaultPasswordPolicy returns the default policy.
func DefaultPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{MinLength: 6}
}

// ValidatePassword checks a password against the policy.
func (p *PasswordPolicy) ValidatePassword(password string) error {
	if len(password) < p.MinLength {
		return domain.ErrWeakPassword
	}
	return nil
}
