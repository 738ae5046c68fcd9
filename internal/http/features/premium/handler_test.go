package premium

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/parlabot/parlabot/internal/http/middleware"
	"github.com/parlabot/parlabot/pkg/auth"
	"github.com/parlabot/parlabot/pkg/domain"
	"github.com/parlabot/parlabot/pkg/premium"
)

// fakeKeyStore is an in-memory premium.KeyStore. Premium grants are
// recorded per username so tests can assert who got the entitlement.
type fakeKeyStore struct {
	mu      sync.Mutex
	keys    map[string]*domain.PremiumKey
	premium map[string]bool
}

func newFakeKeyStore() *fakeKeyStore {
	return &fakeKeyStore{
		keys:    make(map[string]*domain.PremiumKey),
		premium: make(map[string]bool),
	}
}

func (s *fakeKeyStore) Create(_ context.Context, key *domain.PremiumKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *key
	s.keys[key.Key] = &cp
	return nil
}

func (s *fakeKeyStore) Get(_ context.Context, key string) (*domain.PremiumKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[key]
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	cp := *k
	return &cp, nil
}

func (s *fakeKeyStore) Redeem(_ context.Context, key, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[key]
	if !ok {
		return domain.ErrKeyNotFound
	}
	if k.Used {
		return domain.ErrKeyAlreadyUsed
	}
	k.Used = true
	k.RedeemedBy = &username
	s.premium[username] = true
	return nil
}

func (s *fakeKeyStore) MarkUsed(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[key]
	if !ok {
		return domain.ErrKeyNotFound
	}
	k.Used = true
	return nil
}

func (s *fakeKeyStore) List(_ context.Context) ([]*domain.PremiumKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.PremiumKey, 0, len(s.keys))
	for _, k := range s.keys {
		cp := *k
		out = append(out, &cp)
	}
	return out, nil
}

func newTestHandler(keys premium.KeyStore) *Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(logger, premium.NewService(keys))
}

func redeemRequest(username, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/premium/redeem", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if username != "" {
		claims := &auth.AccessTokenClaims{Username: username}
		ctx := context.WithValue(req.Context(), middleware.ClaimsKey, claims)
		req = req.WithContext(ctx)
	}
	return req
}

func TestRedeem_Unauthenticated(t *testing.T) {
	handler := newTestHandler(newFakeKeyStore())

	rec := httptest.NewRecorder()
	handler.Redeem(rec, redeemRequest("", `{"key": "whatever"}`))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRedeem_Validation(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{"invalid json", `{invalid}`, http.StatusBadRequest},
		{"empty body", `{}`, http.StatusBadRequest},
		{"empty key", `{"key": ""}`, http.StatusBadRequest},
	}

	handler := newTestHandler(newFakeKeyStore())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.Redeem(rec, redeemRequest("carol", tt.body))
			if rec.Code != tt.expectedStatus {
				t.Errorf("Status code = %d, want %d", rec.Code, tt.expectedStatus)
			}
		})
	}
}

func TestRedeem_Success(t *testing.T) {
	keys := newFakeKeyStore()
	handler := newTestHandler(keys)

	expires := time.Now().Add(30 * 24 * time.Hour)
	keys.Create(context.Background(), &domain.PremiumKey{
		Key:       "test-key-abcdefghijklmnopqrstuvwxyz",
		ExpiresAt: &expires,
		CreatedAt: time.Now(),
	})

	rec := httptest.NewRecorder()
	handler.Redeem(rec, redeemRequest("carol", `{"key": "test-key-abcdefghijklmnopqrstuvwxyz"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("Status code = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if !keys.premium["carol"] {
		t.Error("carol should have the premium entitlement")
	}

	var response map[string]any
	json.NewDecoder(rec.Body).Decode(&response)
	if response["is_premium"] != true {
		t.Errorf("is_premium = %v, want true", response["is_premium"])
	}
}

func TestRedeem_ErrorMapping(t *testing.T) {
	keys := newFakeKeyStore()
	handler := newTestHandler(keys)

	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)
	carol := "carol"
	keys.Create(context.Background(), &domain.PremiumKey{
		Key:        "used-key-abcdefghijklmnopqrstuvwxy",
		Used:       true,
		RedeemedBy: &carol,
		ExpiresAt:  &future,
	})
	keys.Create(context.Background(), &domain.PremiumKey{
		Key:       "expired-key-abcdefghijklmnopqrstuvw",
		ExpiresAt: &past,
	})

	tests := []struct {
		name           string
		key            string
		expectedStatus int
	}{
		{"unknown key", "no-such-key-abcdefghijklmnopqrstuvw", http.StatusNotFound},
		{"already used key", "used-key-abcdefghijklmnopqrstuvwxy", http.StatusConflict},
		{"expired key", "expired-key-abcdefghijklmnopqrstuvw", http.StatusGone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.Redeem(rec, redeemRequest("dave", `{"key": "`+tt.key+`"}`))
			if rec.Code != tt.expectedStatus {
				t.Errorf("Status code = %d, want %d", rec.Code, tt.expectedStatus)
			}
		})
	}

	if keys.premium["dave"] {
		t.Error("dave must not gain premium from failed redemptions")
	}
}
