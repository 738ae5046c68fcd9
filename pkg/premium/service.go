// Package premium implements the premium entitlement manager: issuing,
// redeeming and revoking the single-use keys that promote an account to
// the premium tier.
package premium

import (
	"context"
	"fmt"
	"time"

	"github.com/parlabot/parlabot/pkg/auth"
	"github.com/parlabot/parlabot/pkg/domain"
)

// 24 random bytes encode to a 32-character key over letters, digits,
// '-' and '_'.
const keyRandomBytes = 24

// KeyStore is the persistence surface for premium keys. Redeem must be
// atomic: marking the key used and granting the entitlement either both
// happen or neither does, and two concurrent redemptions of the same key
// cannot both succeed.
type KeyStore interface {
	Create(ctx context.Context, key *domain.PremiumKey) error
	Get(ctx context.Context, key string) (*domain.PremiumKey, error)
	Redeem(ctx context.Context, key, username string) error
	MarkUsed(ctx context.Context, key string) error
	List(ctx context.Context) ([]*domain.PremiumKey, error)
}

// Service issues and redeems premium keys.
type Service struct {
	keys KeyStore
}

// NewService creates a new premium service.
func NewService(keys KeyStore) *Service {
	return &Service{keys: keys}
}

// GenerateKey creates a new premium key valid for the given period.
// The key string is shown to the administrator once; uniqueness is enforced
// by the storage layer's primary key.
func (s *Service) GenerateKey(ctx context.Context, period domain.KeyPeriod) (*domain.PremiumKey, error) {
	dur, ok := period.Duration()
	if !ok {
		return nil, domain.ErrInvalidKeyPeriod
	}

	raw, err := auth.GenerateToken(keyRandomBytes)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	now := time.Now()
	expiresAt := now.Add(dur)
	key := &domain.PremiumKey{
		Key:       raw,
		ExpiresAt: &expiresAt,
		CreatedAt: now,
	}

	if err := s.keys.Create(ctx, key); err != nil {
		return nil, fmt.Errorf("store key: %w", err)
	}
	return key, nil
}

// Redeem consumes a key and grants premium entitlement to the account.
// Outcomes in check order: ErrKeyNotFound, ErrKeyAlreadyUsed, ErrKeyExpired.
// An expired or used key never mutates state.
func (s *Service) Redeem(ctx context.Context, username, rawKey string) error {
	key, err := s.keys.Get(ctx, rawKey)
	if err != nil {
		return err
	}
	if key.Used {
		return domain.ErrKeyAlreadyUsed
	}
	if key.IsExpired() {
		return domain.ErrKeyExpired
	}

	// The store re-checks used=false inside the transaction, so a
	// concurrent redemption of the same key surfaces as ErrKeyAlreadyUsed.
	return s.keys.Redeem(ctx, rawKey, username)
}

// Revoke invalidates a key without granting entitlement to anyone.
// Revoking an already-used key is a no-op success.
func (s *Service) Revoke(ctx context.Context, rawKey string) error {
	if _, err := s.keys.Get(ctx, rawKey); err != nil {
		return err
	}
	return s.keys.MarkUsed(ctx, rawKey)
}

// ListKeys returns all keys, newest first.
func (s *Service) ListKeys(ctx context.Context) ([]*domain.PremiumKey, error) {
	return s.keys.List(ctx)
}
