package domain

import (
	"errors"
	"testing"
	"time"
)

func TestUser_IsLocked(t *testing.T) {
	now := time.Now()
	past := now.Add(-1 * time.Hour)
	future := now.Add(1 * time.Hour)

	tests := []struct {
		name        string
		lockedUntil *time.Time
		want        bool
	}{
		{
			name:        "not locked (nil)",
			lockedUntil: nil,
			want:        false,
		},
		{
			name:        "locked (future time)",
			lockedUntil: &future,
			want:        true,
		},
		{
			name:        "lock expired (past time)",
			lockedUntil: &past,
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &User{Username: "testuser", LockedUntil: tt.lockedUntil}
			if got := user.IsLocked(); got != tt.want {
				t.Errorf("IsLocked() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLockedError_RetryAfterMinutes(t *testing.T) {
	tests := []struct {
		name  string
		until time.Time
		want  int
	}{
		{
			name:  "full lockout window rounds up to 15",
			until: time.Now().Add(14*time.Minute + 30*time.Second),
			want:  15,
		},
		{
			name:  "just under one minute rounds up to 1",
			until: time.Now().Add(30 * time.Second),
			want:  1,
		},
		{
			name:  "already elapsed reports 0",
			until: time.Now().Add(-time.Minute),
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &LockedError{Until: tt.until}
			if got := err.RetryAfterMinutes(); got != tt.want {
				t.Errorf("RetryAfterMinutes() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLockedError_UnwrapsToErrAccountLocked(t *testing.T) {
	var err error = &LockedError{Until: time.Now().Add(10 * time.Minute)}
	if !errors.Is(err, ErrAccountLocked) {
		t.Error("LockedError should match ErrAccountLocked with errors.Is")
	}
}
