// Package admin implements key management and account administration
// endpoints. All routes are gated by the admin middleware.
package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/parlabot/parlabot/internal/httputil"
	"github.com/parlabot/parlabot/pkg/auth"
	"github.com/parlabot/parlabot/pkg/domain"
	"github.com/parlabot/parlabot/pkg/premium"
)

// Handler handles administrative endpoints.
type Handler struct {
	logger  *slog.Logger
	service *premium.Service
	users   auth.UserStore
}

// NewHandler creates a new admin handler.
func NewHandler(logger *slog.Logger, service *premium.Service, users auth.UserStore) *Handler {
	return &Handler{logger: logger, service: service, users: users}
}

// CreateKeyRequest represents a key creation request.
type CreateKeyRequest struct {
	Period string `json:"period"`
}

// KeyResponse is the admin view of a premium key.
type KeyResponse struct {
	Key        string     `json:"key"`
	Used       bool       `json:"used"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	RedeemedBy *string    `json:"redeemed_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toKeyResponse(k *domain.PremiumKey) KeyResponse {
	return KeyResponse{
		Key:        k.Key,
		Used:       k.Used,
		ExpiresAt:  k.ExpiresAt,
		RedeemedBy: k.RedeemedBy,
		CreatedAt:  k.CreatedAt,
	}
}

// CreateKey issues a new premium key.
// POST /v1/admin/keys
func (h *Handler) CreateKey(w http.ResponseWriter, r *http.Request) {
	var req CreateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	key, err := h.service.GenerateKey(r.Context(), domain.KeyPeriod(req.Period))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidKeyPeriod) {
			httputil.Error(w, http.StatusBadRequest, "period must be \"month\" or \"year\"")
			return
		}
		h.logger.Error("key generation failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "key generation failed")
		return
	}

	h.logger.Info("premium key created", "period", req.Period)
	httputil.JSON(w, http.StatusCreated, toKeyResponse(key))
}

// ListKeys returns all premium keys.
// GET /v1/admin/keys
func (h *Handler) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.service.ListKeys(r.Context())
	if err != nil {
		h.logger.Error("key listing failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "key listing failed")
		return
	}

	out := make([]KeyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, toKeyResponse(k))
	}
	httputil.JSON(w, http.StatusOK, map[string]any{"keys": out})
}

// RevokeKey invalidates a key so it can never be redeemed.
// DELETE /v1/admin/keys/{key}
func (h *Handler) RevokeKey(w http.ResponseWriter, r *http.Request) {
	rawKey := chi.URLParam(r, "key")
	if rawKey == "" {
		httputil.Error(w, http.StatusBadRequest, "key is required")
		return
	}

	if err := h.service.Revoke(r.Context(), rawKey); err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			httputil.Error(w, http.StatusNotFound, "key not found")
			return
		}
		h.logger.Error("key revocation failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "key revocation failed")
		return
	}

	h.logger.Info("premium key revoked")
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// SetAdminRequest represents an admin flag change request.
type SetAdminRequest struct {
	IsAdmin bool `json:"is_admin"`
}

// SetAdmin grants or removes the admin flag on an account.
// POST /v1/admin/users/{username}/admin
func (h *Handler) SetAdmin(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		httputil.Error(w, http.StatusBadRequest, "username is required")
		return
	}

	var req SetAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.users.SetAdmin(r.Context(), username, req.IsAdmin); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			httputil.Error(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("admin flag update failed", "error", err, "username", username)
		httputil.Error(w, http.StatusInternalServerError, "admin flag update failed")
		return
	}

	h.logger.Info("admin flag updated", "username", username, "is_admin", req.IsAdmin)
	httputil.JSON(w, http.StatusOK, map[string]any{
		"username": username,
		"is_admin": req.IsAdmin,
	})
}
