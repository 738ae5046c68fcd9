package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	IsPremium    bool
	IsAdmin      bool
	Banned       bool
	FailedLogins int
	LastFailed   *time.Time
	LockedUntil  *time.Time
	LastLoginAt  *time.Time
	LastLoginIP  *string
	TOTPSecret   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsLocked returns true if the account is currently locked. A LockedUntil
// in the past is inert: it is never actively cleared, just no longer enforced.
func (u *User) IsLocked() bool {
	if u.LockedUntil == nil {
		return false
	}
	return time.Now().Before(*u.LockedUntil)
}
