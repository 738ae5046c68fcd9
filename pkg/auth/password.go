package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/parlabot/parlabot/pkg/domain"
)

// Lockout defaults
const (
	DefaultMaxFailedLogins = 5
	DefaultLockoutDuration = 15 * time.Minute
)

// LockoutMode selects what happens when an account crosses the failed-login
// threshold: a temporary lock that expires on its own, or a permanent ban.
type LockoutMode string

const (
	LockoutTemporary LockoutMode = "temporary"
	LockoutPermanent LockoutMode = "permanent"
)

// LockoutPolicy holds brute-force countermeasure configuration.
type LockoutPolicy struct {
	Mode      LockoutMode
	MaxFailed int
	Duration  time.Duration
}

// DefaultLockoutPolicy returns the default policy: 5 attempts, 15 minute lock.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		Mode:      LockoutTemporary,
		MaxFailed: DefaultMaxFailedLogins,
		Duration:  DefaultLockoutDuration,
	}
}

// UserStore is the persistence surface the authentication guard needs.
// RecordLoginFailure and RecordLoginSuccess must be atomic with respect to
// concurrent attempts on the same account.
type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// RecordLoginFailure increments the failed-login counter, stamps
	// last_failed, and promotes to a lock or ban when the threshold is
	// reached. Returns the account state after the update.
	RecordLoginFailure(ctx context.Context, id uuid.UUID, policy LockoutPolicy) (*domain.User, error)
	// RecordLoginSuccess resets the failed-login counter, clears the lock,
	// and records the login timestamp and originating address.
	RecordLoginSuccess(ctx context.Context, id uuid.UUID, ip string) error
	SetAdmin(ctx context.Context, username string, admin bool) error
	SetTOTPSecret(ctx context.Context, username string, secret string) error
}

// PasswordService handles registration and password authentication.
type PasswordService struct {
	users   UserStore
	policy  *PasswordPolicy
	lockout LockoutPolicy
}

// NewPasswordService creates a new password service.
func NewPasswordService(users UserStore, policy *PasswordPolicy, lockout LockoutPolicy) *PasswordService {
	if lockout.MaxFailed <= 0 {
		lockout.MaxFailed = DefaultMaxFailedLogins
	}
	if lockout.Duration <= 0 {
		lockout.Duration = DefaultLockoutDuration
	}
	if lockout.Mode == "" {
		lockout.Mode = LockoutTemporary
	}
	return &PasswordService{
		users:   users,
		policy:  policy,
		lockout: lockout,
	}
}

// Register creates a new account with a hashed password.
func (s *PasswordService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if s.policy != nil {
		if err := s.policy.ValidatePassword(password); err != nil {
			return nil, err
		}
	}

	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if exists {
		return nil, domain.ErrUserAlreadyExists
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies username and password, applying the lockout policy.
// On success the failed-login counter is reset and the login is recorded.
//
// Failure outcomes, in precedence order:
//   - unknown username or wrong password: domain.ErrInvalidCredentials
//     (identical error for both, so usernames cannot be enumerated)
//   - banned account: domain.ErrAccountBanned, regardless of password
//   - active lock: *domain.LockedError with the remaining time
func (s *PasswordService) Authenticate(ctx context.Context, username, password, ip string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if user.Banned {
		return nil, domain.ErrAccountBanned
	}
	if user.IsLocked() {
		return nil, &domain.LockedError{Until: *user.LockedUntil}
	}

	if !VerifyPassword(password, user.PasswordHash) {
		updated, err := s.users.RecordLoginFailure(ctx, user.ID, s.lockout)
		if err != nil {
			// Persistence failure: report as internal, grant nothing.
			return nil, fmt.Errorf("record failed login: %w", err)
		}
		if updated.Banned {
			return nil, domain.ErrAccountBanned
		}
		if updated.IsLocked() {
			return nil, &domain.LockedError{Until: *updated.LockedUntil}
		}
		return nil, domain.ErrInvalidCredentials
	}

	if err := s.users.RecordLoginSuccess(ctx, user.ID, ip); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}

	user.FailedLogins = 0
	user.LastFailed = nil
	user.LockedUntil = nil
	return user, nil
}

// GetUserByID retrieves a user by ID.
func (s *PasswordService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// GetUserByUsername retrieves a user by username.
func (s *PasswordService) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.users.GetByUsername(ctx, username)
}
