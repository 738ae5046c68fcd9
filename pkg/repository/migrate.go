package repository

import (
	"context"
	"database/sql"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username VARCHAR(80) NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		is_premium BOOLEAN NOT NULL DEFAULT FALSE,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		banned BOOLEAN NOT NULL DEFAULT FALSE,
		failed_logins INTEGER NOT NULL DEFAULT 0,
		last_failed TIMESTAMPTZ,
		locked_until TIMESTAMPTZ,
		last_login_at TIMESTAMPTZ,
		last_login_ip TEXT,
		totp_secret TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS premium_keys (
		key VARCHAR(64) PRIMARY KEY,
		used BOOLEAN NOT NULL DEFAULT FALSE,
		expires_at TIMESTAMPTZ,
		redeemed_by VARCHAR(80) REFERENCES users(username),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash VARCHAR(64) NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		revoked_at TIMESTAMPTZ,
		last_seen_at TIMESTAMPTZ,
		metadata JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)`,
}

// Migrate applies the schema. Statements are idempotent, so running at every
// startup is safe.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
