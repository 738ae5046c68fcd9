package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/parlabot/parlabot/pkg/auth"
	"github.com/parlabot/parlabot/pkg/domain"
)

const userColumns = `id, username, password_hash, is_premium, is_admin, banned,
	failed_logins, last_failed, locked_until, last_login_at, last_login_ip,
	totp_secret, created_at, updated_at`

// UsersRepository handles user persistence. It implements auth.UserStore.
type UsersRepository struct {
	db *sql.DB
}

// NewUsersRepository creates a new users repository.
func NewUsersRepository(db *sql.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

func scanUser(row *sql.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.IsPremium,
		&user.IsAdmin, &user.Banned, &user.FailedLogins, &user.LastFailed,
		&user.LockedUntil, &user.LastLoginAt, &user.LastLoginIP,
		&user.TOTPSecret, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create creates a new user.
func (r *UsersRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, username, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return domain.ErrUserAlreadyExists
	}
	return err
}

// GetByID retrieves a user by ID.
func (r *UsersRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByUsername retrieves a user by username.
func (r *UsersRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

// ExistsByUsername checks if a user exists by username.
func (r *UsersRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, username).Scan(&exists)
	return exists, err
}

// RecordLoginFailure increments the failed-login counter and promotes to a
// lock or ban at the threshold. The whole read-modify-write happens in one
// UPDATE, so concurrent failures on the same account cannot double-lock.
func (r *UsersRepository) RecordLoginFailure(ctx context.Context, id uuid.UUID, policy auth.LockoutPolicy) (*domain.User, error) {
	permanent := policy.Mode == auth.LockoutPermanent
	query := `
		UPDATE users
		SET failed_logins = failed_logins + 1,
		    last_failed = NOW(),
		    locked_until = CASE
		        WHEN NOT $2 AND failed_logins + 1 >= $3 THEN NOW() + make_interval(secs => $4)
		        ELSE locked_until
		    END,
		    banned = CASE
		        WHEN $2 AND failed_logins + 1 >= $3 THEN TRUE
		        ELSE banned
		    END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns + `
	`
	return scanUser(r.db.QueryRowContext(ctx, query, id, permanent, policy.MaxFailed, policy.Duration.Seconds()))
}

// RecordLoginSuccess resets the failed-login counter, clears the lock, and
// records the login timestamp and originating address.
func (r *UsersRepository) RecordLoginSuccess(ctx context.Context, id uuid.UUID, ip string) error {
	query := `
		UPDATE users
		SET failed_logins = 0,
		    last_failed = NULL,
		    locked_until = NULL,
		    last_login_at = NOW(),
		    last_login_ip = NULLIF($2, ''),
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, ip)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// SetAdmin toggles the admin flag for a user.
func (r *UsersRepository) SetAdmin(ctx context.Context, username string, admin bool) error {
	query := `UPDATE users SET is_admin = $2, updated_at = NOW() WHERE username = $1`
	result, err := r.db.ExecContext(ctx, query, username, admin)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// SetTOTPSecret stores a TOTP secret for a user.
func (r *UsersRepository) SetTOTPSecret(ctx context.Context, username string, secret string) error {
	query := `UPDATE users SET totp_secret = NULLIF($2, ''), updated_at = NOW() WHERE username = $1`
	result, err := r.db.ExecContext(ctx, query, username, secret)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
