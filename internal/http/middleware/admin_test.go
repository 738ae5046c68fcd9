package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/parlabot/parlabot/pkg/auth"
	"github.com/parlabot/parlabot/pkg/domain"
	"github.com/pquerna/otp/totp"
)

type stubUserStore struct {
	user *domain.User
}

func (s *stubUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	if s.user != nil && s.user.ID == id {
		cp := *s.user
		return &cp, nil
	}
	return nil, domain.ErrUserNotFound
}

func (s *stubUserStore) Create(context.Context, *domain.User) error { return nil }
func (s *stubUserStore) GetByUsername(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}
func (s *stubUserStore) ExistsByUsername(context.Context, string) (bool, error) { return false, nil }
func (s *stubUserStore) RecordLoginFailure(context.Context, uuid.UUID, auth.LockoutPolicy) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}
func (s *stubUserStore) RecordLoginSuccess(context.Context, uuid.UUID, string) error { return nil }
func (s *stubUserStore) SetAdmin(context.Context, string, bool) error                { return nil }
func (s *stubUserStore) SetTOTPSecret(context.Context, string, string) error         { return nil }

func adminRequest(t *testing.T, user *domain.User, allowlist map[string]struct{}, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	handler := RequireAdmin(&stubUserStore{user: user}, allowlist)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/keys", nil)
	if user != nil {
		req = req.WithContext(context.WithValue(req.Context(), UserIDKey, user.ID))
	}
	if mutate != nil {
		mutate(req)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name           string
		user           *domain.User
		allowlist      map[string]struct{}
		expectedStatus int
	}{
		{
			name:           "unauthenticated",
			user:           nil,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "regular user",
			user:           &domain.User{ID: uuid.New(), Username: "alice"},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "is_admin flag",
			user:           &domain.User{ID: uuid.New(), Username: "alice", IsAdmin: true},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "allowlisted username",
			user:           &domain.User{ID: uuid.New(), Username: "root"},
			allowlist:      map[string]struct{}{"root": {}},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "allowlist does not match other users",
			user:           &domain.User{ID: uuid.New(), Username: "alice"},
			allowlist:      map[string]struct{}{"root": {}},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := adminRequest(t, tt.user, tt.allowlist, nil)
			if rec.Code != tt.expectedStatus {
				t.Errorf("Status code = %d, want %d", rec.Code, tt.expectedStatus)
			}
		})
	}
}

func TestRequireAdmin_TOTPStepUp(t *testing.T) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "test", AccountName: "root"})
	if err != nil {
		t.Fatalf("totp.Generate: %v", err)
	}
	secret := key.Secret()
	user := &domain.User{ID: uuid.New(), Username: "root", IsAdmin: true, TOTPSecret: &secret}

	// Without a code
	rec := adminRequest(t, user, nil, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("no code: status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	// With a wrong code
	rec = adminRequest(t, user, nil, func(r *http.Request) {
		r.Header.Set("X-TOTP-Code", "000000")
	})
	if rec.Code == http.StatusOK {
		t.Error("wrong code should not pass")
	}

	// With a valid code
	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		t.Fatalf("totp.GenerateCode: %v", err)
	}
	rec = adminRequest(t, user, nil, func(r *http.Request) {
		r.Header.Set("X-TOTP-Code", code)
	})
	if rec.Code != http.StatusOK {
		t.Errorf("valid code: status = %d, want %d", rec.Code, http.StatusOK)
	}
}
