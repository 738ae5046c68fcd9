package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/parlabot/parlabot/pkg/domain"
)

// PremiumKeysRepository handles premium key persistence. It implements
// premium.KeyStore.
type PremiumKeysRepository struct {
	db *sql.DB
}

// NewPremiumKeysRepository creates a new premium keys repository.
func NewPremiumKeysRepository(db *sql.DB) *PremiumKeysRepository {
	return &PremiumKeysRepository{db: db}
}

// Create stores a new key. Uniqueness is enforced by the primary key.
func (r *PremiumKeysRepository) Create(ctx context.Context, key *domain.PremiumKey) error {
	query := `
		INSERT INTO premium_keys (key, used, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query, key.Key, key.Used, key.ExpiresAt, key.CreatedAt)
	return err
}

// Get retrieves a key.
func (r *PremiumKeysRepository) Get(ctx context.Context, rawKey string) (*domain.PremiumKey, error) {
	query := `
		SELECT key, used, expires_at, redeemed_by, created_at
		FROM premium_keys
		WHERE key = $1
	`
	key := &domain.PremiumKey{}
	err := r.db.QueryRowContext(ctx, query, rawKey).Scan(
		&key.Key, &key.Used, &key.ExpiresAt, &key.RedeemedBy, &key.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return key, nil
}

// Redeem marks the key used and grants premium to the account in a single
// transaction. The conditional UPDATE on used = FALSE makes concurrent
// redemptions of the same key lose with ErrKeyAlreadyUsed instead of
// double-granting.
func (r *PremiumKeysRepository) Redeem(ctx context.Context, rawKey, username string) error {
	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE premium_keys
			SET used = TRUE, redeemed_by = $2
			WHERE key = $1 AND used = FALSE
		`, rawKey, username)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			// Either the key vanished or someone else just redeemed it.
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS(SELECT 1 FROM premium_keys WHERE key = $1)`, rawKey,
			).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return domain.ErrKeyNotFound
			}
			return domain.ErrKeyAlreadyUsed
		}

		result, err = tx.ExecContext(ctx, `
			UPDATE users SET is_premium = TRUE, updated_at = NOW() WHERE username = $1
		`, username)
		if err != nil {
			return err
		}
		rows, err = result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrUserNotFound
		}
		return nil
	})
}

// MarkUsed invalidates a key without granting entitlement. Idempotent.
func (r *PremiumKeysRepository) MarkUsed(ctx context.Context, rawKey string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE premium_keys SET used = TRUE WHERE key = $1`, rawKey)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrKeyNotFound
	}
	return nil
}

// List returns all keys, newest first.
func (r *PremiumKeysRepository) List(ctx context.Context) ([]*domain.PremiumKey, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT key, used, expires_at, redeemed_by, created_at
		FROM premium_keys
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []*domain.PremiumKey
	for rows.Next() {
		key := &domain.PremiumKey{}
		if err := rows.Scan(&key.Key, &key.Used, &key.ExpiresAt, &key.RedeemedBy, &key.CreatedAt); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
