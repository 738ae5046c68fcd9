package session

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/parlabot/parlabot/internal/http/middleware"
	"github.com/parlabot/parlabot/pkg/auth"
	"github.com/parlabot/parlabot/pkg/domain"
)

// fakeSessionStore is an in-memory auth.SessionStore.
type fakeSessionStore struct {
	sessions map[uuid.UUID]*domain.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[uuid.UUID]*domain.Session)}
}

func (s *fakeSessionStore) Create(_ context.Context, session *domain.Session) error {
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *fakeSessionStore) GetByTokenHash(_ context.Context, tokenHash string) (*domain.Session, error) {
	for _, sess := range s.sessions {
		if sess.TokenHash == tokenHash && sess.RevokedAt == nil {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

func (s *fakeSessionStore) Revoke(_ context.Context, id uuid.UUID) error {
	sess, ok := s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	now := time.Now()
	sess.RevokedAt = &now
	return nil
}

func (s *fakeSessionStore) RevokeByTokenHash(_ context.Context, tokenHash string) error {
	for _, sess := range s.sessions {
		if sess.TokenHash == tokenHash && sess.RevokedAt == nil {
			now := time.Now()
			sess.RevokedAt = &now
		}
	}
	return nil
}

func (s *fakeSessionStore) RevokeAllByUserID(_ context.Context, userID uuid.UUID) error {
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.RevokedAt == nil {
			now := time.Now()
			sess.RevokedAt = &now
		}
	}
	return nil
}

func (s *fakeSessionStore) UpdateLastSeen(context.Context, uuid.UUID) error { return nil }

// fakeUserStore serves one fixed user.
type fakeUserStore struct {
	user *domain.User
}

func (s *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	if s.user != nil && s.user.ID == id {
		cp := *s.user
		return &cp, nil
	}
	return nil, domain.ErrUserNotFound
}

func (s *fakeUserStore) Create(context.Context, *domain.User) error { return nil }
func (s *fakeUserStore) GetByUsername(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}
func (s *fakeUserStore) ExistsByUsername(context.Context, string) (bool, error) { return false, nil }
func (s *fakeUserStore) RecordLoginFailure(context.Context, uuid.UUID, auth.LockoutPolicy) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}
func (s *fakeUserStore) RecordLoginSuccess(context.Context, uuid.UUID, string) error { return nil }
func (s *fakeUserStore) SetAdmin(context.Context, string, bool) error                { return nil }
func (s *fakeUserStore) SetTOTPSecret(context.Context, string, string) error         { return nil }

func newTestSetup(user *domain.User) (*Handler, *auth.SessionService, *fakeSessionStore) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := newFakeSessionStore()
	service := auth.NewSessionService(auth.SessionConfig{
		JWTSecret: []byte("test-secret"),
		Issuer:    "test",
	}, sessions, &fakeUserStore{user: user})
	return NewHandler(logger, service), service, sessions
}

func TestRefresh_Validation(t *testing.T) {
	handler, _, _ := newTestSetup(nil)

	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{"empty body", `{}`, http.StatusBadRequest},
		{"empty refresh_token", `{"refresh_token": ""}`, http.StatusBadRequest},
		{"invalid json", `{invalid}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			handler.Refresh(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("Status code = %d, want %d", rec.Code, tt.expectedStatus)
			}
		})
	}
}

func TestRefresh_RoundTrip(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Username: "alice", IsPremium: false}
	handler, service, _ := newTestSetup(user)

	tokens, err := service.IssueSession(context.Background(), user, auth.IssueSessionOpts{})
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	// Entitlement change after issuance shows up in the refreshed claims.
	user.IsPremium = true

	body, _ := json.Marshal(RefreshRequest{RefreshToken: tokens.RefreshToken})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Refresh(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status code = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var refreshed domain.TokenPair
	if err := json.NewDecoder(rec.Body).Decode(&refreshed); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	claims, err := service.ValidateAccessToken(refreshed.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if !claims.Premium {
		t.Error("refreshed token should carry the premium entitlement")
	}
}

func TestRefresh_UnknownToken(t *testing.T) {
	handler, _, _ := newTestSetup(nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh",
		bytes.NewBufferString(`{"refresh_token": "no-such-token"}`))
	rec := httptest.NewRecorder()
	handler.Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRefresh_RevokedToken(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Username: "alice"}
	handler, service, _ := newTestSetup(user)

	tokens, err := service.IssueSession(context.Background(), user, auth.IssueSessionOpts{})
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if err := service.RevokeSession(context.Background(), tokens.RefreshToken); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}

	body, _ := json.Marshal(RefreshRequest{RefreshToken: tokens.RefreshToken})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestLogout(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Username: "alice"}
	handler, service, _ := newTestSetup(user)

	tokens, err := service.IssueSession(context.Background(), user, auth.IssueSessionOpts{})
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	body, _ := json.Marshal(RefreshRequest{RefreshToken: tokens.RefreshToken})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status code = %d, want %d", rec.Code, http.StatusOK)
	}

	// The refresh token is dead after logout.
	if _, err := service.RefreshSession(context.Background(), tokens.RefreshToken); err == nil {
		t.Error("expected refresh to fail after logout")
	}

	// Cookies are cleared.
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			t.Errorf("cookie %q not cleared (MaxAge = %d)", c.Name, c.MaxAge)
		}
	}
}

func TestLogout_NoToken(t *testing.T) {
	handler, _, _ := newTestSetup(nil)

	// Logout without a token still succeeds and clears cookies.
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil)
	rec := httptest.NewRecorder()
	handler.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestLogoutAll(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Username: "alice"}
	handler, service, _ := newTestSetup(user)

	var refreshTokens []string
	for i := 0; i < 3; i++ {
		tokens, err := service.IssueSession(context.Background(), user, auth.IssueSessionOpts{})
		if err != nil {
			t.Fatalf("IssueSession: %v", err)
		}
		refreshTokens = append(refreshTokens, tokens.RefreshToken)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout/all", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, user.ID))
	rec := httptest.NewRecorder()
	handler.LogoutAll(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status code = %d, want %d", rec.Code, http.StatusOK)
	}

	for i, token := range refreshTokens {
		if _, err := service.RefreshSession(context.Background(), token); err == nil {
			t.Errorf("session %d still refreshable after logout all", i)
		}
	}
}

func TestLogoutAll_Unauthenticated(t *testing.T) {
	handler, _, _ := newTestSetup(nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout/all", nil)
	rec := httptest.NewRecorder()
	handler.LogoutAll(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
