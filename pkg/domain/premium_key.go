package domain

import "time"

// KeyPeriod selects the validity window of a newly issued premium key.
type KeyPeriod string

const (
	PeriodMonth KeyPeriod = "month"
	PeriodYear  KeyPeriod = "year"
)

// Duration returns the expiry offset for the period.
func (p KeyPeriod) Duration() (time.Duration, bool) {
	switch p {
	case PeriodMonth:
		return 30 * 24 * time.Hour, true
	case PeriodYear:
		return 365 * 24 * time.Hour, true
	}
	return 0, false
}

// PremiumKey is a single-use, time-limited key that grants premium
// entitlement when redeemed. Once used it can never be redeemed again,
// by any account.
type PremiumKey struct {
	Key        string
	Used       bool
	ExpiresAt  *time.Time
	RedeemedBy *string
	CreatedAt  time.Time
}

// IsExpired returns true if the key has an expiry and it has passed.
func (k *PremiumKey) IsExpired() bool {
	if k.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*k.ExpiresAt)
}

// Redeemable returns true if the key is unused and not expired.
func (k *PremiumKey) Redeemable() bool {
	return !k.Used && !k.IsExpired()
}
