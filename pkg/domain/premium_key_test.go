package domain

import (
	"testing"
	"time"
)

func TestKeyPeriod_Duration(t *testing.T) {
	tests := []struct {
		name   string
		period KeyPeriod
		want   time.Duration
		ok     bool
	}{
		{
			name:   "month is 30 days",
			period: PeriodMonth,
			want:   30 * 24 * time.Hour,
			ok:     true,
		},
		{
			name:   "year is 365 days",
			period: PeriodYear,
			want:   365 * 24 * time.Hour,
			ok:     true,
		},
		{
			name:   "unknown period rejected",
			period: KeyPeriod("week"),
			ok:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.period.Duration()
			if ok != tt.ok {
				t.Fatalf("Duration() ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("Duration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPremiumKey_Redeemable(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name string
		key  PremiumKey
		want bool
	}{
		{
			name: "unused with future expiry",
			key:  PremiumKey{Used: false, ExpiresAt: &future},
			want: true,
		},
		{
			name: "unused without expiry",
			key:  PremiumKey{Used: false},
			want: true,
		},
		{
			name: "used key",
			key:  PremiumKey{Used: true, ExpiresAt: &future},
			want: false,
		},
		{
			name: "expired key",
			key:  PremiumKey{Used: false, ExpiresAt: &past},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.Redeemable(); got != tt.want {
				t.Errorf("Redeemable() = %v, want %v", got, tt.want)
			}
		})
	}
}
