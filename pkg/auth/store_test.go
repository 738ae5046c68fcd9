package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parlabot/parlabot/pkg/domain"
)

// memUserStore is an in-memory UserStore for tests. A single mutex stands in
// for the per-record atomicity the SQL store gets from conditional updates.
type memUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[uuid.UUID]*domain.User)}
}

func (s *memUserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == user.Username {
			return domain.ErrUserAlreadyExists
		}
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *memUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *memUserStore) ExistsByUsername(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *memUserStore) RecordLoginFailure(_ context.Context, id uuid.UUID, policy LockoutPolicy) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	now := time.Now()
	u.FailedLogins++
	u.LastFailed = &now
	if u.FailedLogins >= policy.MaxFailed {
		if policy.Mode == LockoutPermanent {
			u.Banned = true
		} else {
			until := now.Add(policy.Duration)
			u.LockedUntil = &until
		}
	}
	u.UpdatedAt = now
	cp := *u
	return &cp, nil
}

func (s *memUserStore) RecordLoginSuccess(_ context.Context, id uuid.UUID, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	now := time.Now()
	u.FailedLogins = 0
	u.LastFailed = nil
	u.LockedUntil = nil
	u.LastLoginAt = &now
	if ip != "" {
		u.LastLoginIP = &ip
	}
	u.UpdatedAt = now
	return nil
}

func (s *memUserStore) SetAdmin(_ context.Context, username string, admin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			u.IsAdmin = admin
			return nil
		}
	}
	return domain.ErrUserNotFound
}

func (s *memUserStore) SetTOTPSecret(_ context.Context, username string, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			u.TOTPSecret = &secret
			return nil
		}
	}
	return domain.ErrUserNotFound
}

// memSessionStore is an in-memory SessionStore for tests.
type memSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.Session
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[uuid.UUID]*domain.Session)}
}

func (s *memSessionStore) Create(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *memSessionStore) GetByTokenHash(_ context.Context, tokenHash string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.TokenHash == tokenHash && sess.RevokedAt == nil {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

func (s *memSessionStore) Revoke(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	now := time.Now()
	sess.RevokedAt = &now
	return nil
}

func (s *memSessionStore) RevokeByTokenHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.TokenHash == tokenHash && sess.RevokedAt == nil {
			now := time.Now()
			sess.RevokedAt = &now
		}
	}
	return nil
}

func (s *memSessionStore) RevokeAllByUserID(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.RevokedAt == nil {
			now := time.Now()
			sess.RevokedAt = &now
		}
	}
	return nil
}

func (s *memSessionStore) UpdateLastSeen(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	now := time.Now()
	sess.LastSeenAt = &now
	return nil
}
