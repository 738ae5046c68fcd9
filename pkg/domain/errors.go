package domain

import (
	"errors"
	"fmt"
	"time"
)

// Authentication errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountLocked      = errors.New("account temporarily locked due to too many failed login attempts")
	ErrAccountBanned      = errors.New("account banned")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrSessionRevoked     = errors.New("session revoked")
	ErrInvalidToken       = errors.New("invalid token")
	ErrPermissionDenied   = errors.New("permission denied")
)

// Premium key errors
var (
	ErrKeyNotFound      = errors.New("premium key not found")
	ErrKeyAlreadyUsed   = errors.New("premium key already used")
	ErrKeyExpired       = errors.New("premium key expired")
	ErrInvalidKeyPeriod = errors.New("invalid key period")
)

// Validation errors
var (
	ErrInvalidUsername = errors.New("invalid username format")
	ErrWeakPassword    = errors.New("password does not meet requirements")
	ErrInvalidTOTPCode = errors.New("invalid TOTP code")
)

// LockedError reports a temporary lockout along with when it ends.
// It unwraps to ErrAccountLocked so callers can match with errors.Is.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked, try again in %d minute(s)", e.RetryAfterMinutes())
}

func (e *LockedError) Unwrap() error {
	return ErrAccountLocked
}

// RetryAfterMinutes returns the remaining lockout rounded up to whole minutes.
// Never less than zero.
func (e *LockedError) RetryAfterMinutes() int {
	remaining := time.Until(e.Until)
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Minute - 1) / time.Minute)
}
